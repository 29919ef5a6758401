// Package pca9685 provides a platform-independent driver for the NXP PCA9685
// 16-channel 12-bit PWM controller.
//
// Design notes (datasheet references):
//   - I2C register protocol; per-channel 4-byte LEDn_ON/OFF blocks at 0x06+4n.
//   - PRE_SCALE latches only while SLEEP=1, so SetPwmFreq forces a transient
//     sleep and then restores the previous MODE1 value.
//   - Waking after a sleep that interrupted PWM requires re-asserting RESTART
//     in a second MODE1 write.
//   - Register traffic goes through a retrying access layer; failures
//     accumulate in a sticky error bitmask (see errflags.go).
//
// Operations report success as a bool, with the reason available from
// LastError/ErrorFlags. The driver never panics on bad input; out-of-range
// values are rejected before any register write. A failure in the middle of
// the sleep/prescale/restore sequence of SetPwmFreq can leave MODE1 in an
// intermediate state; callers may Reset() to recover.
//
// A Device assumes a single owner. Calls from multiple goroutines must be
// serialized by the caller.
package pca9685

// deviceState tracks the init/power state machine:
// uninitialized -> initialized <-> sleeping.
type deviceState uint8

const (
	stateUninitialized deviceState = iota
	stateInitialized
	stateSleeping
)

const defaultRetries = 3

// Device drives one PCA9685 over a Bus. Construct with New; do not copy
// (the transport and the accumulated error state are single-owner).
type Device struct {
	bus  Bus
	addr uint8

	st       deviceState
	lastErr  Error
	errFlags Error

	retries    int
	retryDelay DelayFn

	// Optional output-enable hook; drives the active-low /OE pin.
	oeSet func(enabled bool) error

	// Fixed buffers to avoid per-call heap allocations.
	wbuf [1]byte
	blk  [4]byte
}

// New creates a driver for the device at the given 7-bit address
// (AddressDefault if zero). The bus is not touched until Reset or
// EnsureInitialized.
func New(bus Bus, addr uint8) *Device {
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{
		bus:     bus,
		addr:    addr,
		retries: defaultRetries,
	}
}

// Address returns the configured 7-bit device address.
func (d *Device) Address() uint8 { return d.addr }

// IsInitialized reports whether Reset has completed successfully.
func (d *Device) IsInitialized() bool { return d.st != stateUninitialized }

// IsSleeping reports whether the driver last put the device to sleep.
func (d *Device) IsSleeping() bool { return d.st == stateSleeping }

// requireInit gates operations on a completed Reset. On failure it records
// ErrNotInitialized without touching the transport.
func (d *Device) requireInit() bool {
	if d.st == stateUninitialized {
		d.setError(ErrNotInitialized)
		return false
	}
	return true
}

// Reset restores the device to its power-on default state (MODE1 = 0x00,
// awake, all outputs off). On success the driver is Initialized and the
// last-error record is cleared; accumulated flags are kept.
func (d *Device) Reset() bool {
	if err := d.bus.EnsureReady(); err != nil {
		d.setError(ErrDeviceNotFound)
		return false
	}
	if !d.writeReg(regMode1, 0x00) {
		return false
	}
	d.st = stateInitialized
	d.lastErr = ErrNone
	return true
}

// EnsureInitialized performs a lazy Reset on first use and is a cheap no-op
// afterwards.
func (d *Device) EnsureInitialized() bool {
	if d.st != stateUninitialized {
		return true
	}
	return d.Reset()
}

// SetPwmFreq programs the PWM frequency for all channels, 24-1526 Hz.
//
// The prescaler only latches while the oscillator is stopped, so the
// sequence is: read MODE1, write it back with SLEEP set (RESTART masked
// off), write PRE_SCALE, restore the original MODE1. The order must not
// change. The oscillator needs ~500us to stabilise afterwards; any settle
// delay is the caller's responsibility.
func (d *Device) SetPwmFreq(freqHz float32) bool {
	if !d.requireInit() {
		return false
	}
	if freqHz < FreqMinHz || freqHz > FreqMaxHz {
		d.setError(ErrOutOfRange)
		return false
	}
	prescale := prescaleForFreq(freqHz)
	oldmode, ok := d.readReg(regMode1)
	if !ok {
		return false
	}
	sleep := (oldmode &^ mode1Restart) | mode1Sleep
	if !d.writeReg(regMode1, sleep) {
		return false
	}
	if !d.writeReg(regPreScale, prescale) {
		return false
	}
	return d.writeReg(regMode1, oldmode)
}

// SetPwm sets the on/off tick pair for one channel (ticks 0-4095).
func (d *Device) SetPwm(channel uint8, on, off uint16) bool {
	if !d.requireInit() {
		return false
	}
	if channel >= MaxChannels || on > MaxTick || off > MaxTick {
		d.setError(ErrOutOfRange)
		return false
	}
	d.blk = encodePWM(on, off)
	return d.writeRegBlock(channelReg(channel), d.blk[:])
}

// SetDuty sets a channel's duty cycle. Duty outside [0, 1] is clamped,
// never rejected.
func (d *Device) SetDuty(channel uint8, duty float32) bool {
	return d.SetPwm(channel, 0, offTickForDuty(duty))
}

// SetAllPwm writes the same on/off pair to the broadcast ALL_LED block.
func (d *Device) SetAllPwm(on, off uint16) bool {
	if !d.requireInit() {
		return false
	}
	if on > MaxTick || off > MaxTick {
		d.setError(ErrOutOfRange)
		return false
	}
	d.blk = encodePWM(on, off)
	return d.writeRegBlock(regAllLEDOnL, d.blk[:])
}

// SetChannelFullOn forces a channel permanently high, bypassing the tick
// comparison.
func (d *Device) SetChannelFullOn(channel uint8) bool {
	if !d.requireInit() {
		return false
	}
	if channel >= MaxChannels {
		d.setError(ErrOutOfRange)
		return false
	}
	d.blk = encodeFullOn()
	return d.writeRegBlock(channelReg(channel), d.blk[:])
}

// SetChannelFullOff forces a channel permanently low.
func (d *Device) SetChannelFullOff(channel uint8) bool {
	if !d.requireInit() {
		return false
	}
	if channel >= MaxChannels {
		d.setError(ErrOutOfRange)
		return false
	}
	d.blk = encodeFullOff()
	return d.writeRegBlock(channelReg(channel), d.blk[:])
}

// GetPwm reads back a channel's programmed on/off ticks from the device
// (not a cached value).
func (d *Device) GetPwm(channel uint8) (on, off uint16, ok bool) {
	if !d.requireInit() {
		return 0, 0, false
	}
	if channel >= MaxChannels {
		d.setError(ErrOutOfRange)
		return 0, 0, false
	}
	if !d.readRegBlock(channelReg(channel), d.blk[:]) {
		return 0, 0, false
	}
	on, off = decodePWM(d.blk)
	return on, off, true
}

// GetPrescale reads the PRE_SCALE register, reflecting the chip's last
// programmed divisor.
func (d *Device) GetPrescale() (uint8, bool) {
	if !d.requireInit() {
		return 0, false
	}
	return d.readReg(regPreScale)
}

// ---- Power management ----

// Sleep stops the oscillator by setting the SLEEP bit. All outputs are off
// while asleep.
func (d *Device) Sleep() bool {
	if !d.requireInit() {
		return false
	}
	if !d.modifyReg(regMode1, mode1Sleep, mode1Sleep) {
		return false
	}
	d.st = stateSleeping
	return true
}

// Wake clears the SLEEP bit. If RESTART was pending (the device interrupted
// active PWM when it went to sleep), it is re-asserted in a second MODE1
// write so the outputs resume their previous values.
func (d *Device) Wake() bool {
	if !d.requireInit() {
		return false
	}
	oldmode, ok := d.readReg(regMode1)
	if !ok {
		return false
	}
	awake := oldmode &^ (mode1Sleep | mode1Restart)
	if !d.writeReg(regMode1, awake) {
		return false
	}
	if oldmode&mode1Restart != 0 {
		if !d.writeReg(regMode1, awake|mode1Restart) {
			return false
		}
	}
	d.st = stateInitialized
	return true
}

// ---- Output configuration ----

// SetOutputInvert sets or clears the MODE2 INVRT bit (useful for
// common-anode LED wiring).
func (d *Device) SetOutputInvert(invert bool) bool {
	if !d.requireInit() {
		return false
	}
	var v uint8
	if invert {
		v = mode2Invert
	}
	return d.modifyReg(regMode2, mode2Invert, v)
}

// SetOutputDriverMode selects totem-pole (true) or open-drain (false)
// outputs via the MODE2 OUTDRV bit.
func (d *Device) SetOutputDriverMode(totemPole bool) bool {
	if !d.requireInit() {
		return false
	}
	var v uint8
	if totemPole {
		v = mode2OutDrv
	}
	return d.modifyReg(regMode2, mode2OutDrv, v)
}

// SetOutputEnablePin installs a hook that drives the chip's active-low /OE
// pin. Without one, SetOutputEnable is a no-op (the pin is strapped on many
// boards). See OELine for a Linux gpiocdev implementation.
func (d *Device) SetOutputEnablePin(set func(enabled bool) error) {
	d.oeSet = set
}

// SetOutputEnable enables or disables all outputs via the /OE hook.
func (d *Device) SetOutputEnable(enabled bool) bool {
	if d.oeSet == nil {
		return true
	}
	return d.oeSet(enabled) == nil
}
