package pca9685

import (
	"errors"
	"testing"
)

// Compile-time checks.
var (
	_ Bus = (*scriptedBus)(nil)
	_ Bus = (*MemBus)(nil)
)

var errNack = errors.New("nack")

type busCall struct {
	write bool
	reg   uint8
	data  []byte
}

// scriptedBus records every transfer attempt and can inject failures.
type scriptedBus struct {
	regs     [256]byte
	calls    []busCall
	failNext int // fail this many transfers, then succeed
	failAll  bool
	readyErr error
}

func (f *scriptedBus) WriteReg(_, reg uint8, data []byte) error {
	f.calls = append(f.calls, busCall{write: true, reg: reg, data: append([]byte(nil), data...)})
	if f.fail() {
		return errNack
	}
	for i, b := range data {
		f.regs[int(reg)+i] = b
	}
	return nil
}

func (f *scriptedBus) ReadReg(_, reg uint8, data []byte) error {
	f.calls = append(f.calls, busCall{reg: reg})
	if f.fail() {
		return errNack
	}
	for i := range data {
		data[i] = f.regs[int(reg)+i]
	}
	return nil
}

func (f *scriptedBus) EnsureReady() error { return f.readyErr }

func (f *scriptedBus) fail() bool {
	if f.failAll {
		return true
	}
	if f.failNext > 0 {
		f.failNext--
		return true
	}
	return false
}

func (f *scriptedBus) writesTo(reg uint8) []busCall {
	var out []busCall
	for _, c := range f.calls {
		if c.write && c.reg == reg {
			out = append(out, c)
		}
	}
	return out
}

func newInitialized(t *testing.T) (*Device, *scriptedBus) {
	t.Helper()
	f := &scriptedBus{}
	d := New(f, 0)
	if !d.Reset() {
		t.Fatalf("Reset failed: %v", d.LastError())
	}
	f.calls = nil
	return d, f
}

// ---- Init / state machine ----

func TestNewDefaults(t *testing.T) {
	d := New(&scriptedBus{}, 0)
	if d.Address() != AddressDefault {
		t.Errorf("default address = %#x", d.Address())
	}
	if d.IsInitialized() {
		t.Error("fresh device reports initialized")
	}
}

func TestUninitializedRejected(t *testing.T) {
	ops := map[string]func(d *Device) bool{
		"SetPwmFreq":          func(d *Device) bool { return d.SetPwmFreq(50) },
		"SetPwm":              func(d *Device) bool { return d.SetPwm(0, 0, 100) },
		"SetDuty":             func(d *Device) bool { return d.SetDuty(0, 0.5) },
		"SetAllPwm":           func(d *Device) bool { return d.SetAllPwm(0, 100) },
		"SetChannelFullOn":    func(d *Device) bool { return d.SetChannelFullOn(0) },
		"SetChannelFullOff":   func(d *Device) bool { return d.SetChannelFullOff(0) },
		"Sleep":               func(d *Device) bool { return d.Sleep() },
		"Wake":                func(d *Device) bool { return d.Wake() },
		"SetOutputInvert":     func(d *Device) bool { return d.SetOutputInvert(true) },
		"SetOutputDriverMode": func(d *Device) bool { return d.SetOutputDriverMode(true) },
		"GetPrescale":         func(d *Device) bool { _, ok := d.GetPrescale(); return ok },
		"GetPwm":              func(d *Device) bool { _, _, ok := d.GetPwm(0); return ok },
	}
	for name, op := range ops {
		f := &scriptedBus{}
		d := New(f, 0)
		if op(d) {
			t.Errorf("%s succeeded while uninitialized", name)
		}
		if !d.HasError(ErrNotInitialized) {
			t.Errorf("%s did not flag ErrNotInitialized", name)
		}
		if len(f.calls) != 0 {
			t.Errorf("%s touched the transport while uninitialized (%d calls)", name, len(f.calls))
		}
	}
}

func TestResetWritesMode1(t *testing.T) {
	f := &scriptedBus{regs: [256]byte{regMode1: 0xFF}}
	d := New(f, 0x41)
	if !d.Reset() {
		t.Fatal("Reset failed")
	}
	if f.regs[regMode1] != 0x00 {
		t.Errorf("MODE1 after reset = %#x", f.regs[regMode1])
	}
	if !d.IsInitialized() || d.IsSleeping() {
		t.Error("state not Initialized after Reset")
	}
	if d.LastError() != ErrNone {
		t.Errorf("last error after Reset = %v", d.LastError())
	}
}

func TestResetTransportNotReady(t *testing.T) {
	f := &scriptedBus{readyErr: errNack}
	d := New(f, 0)
	if d.Reset() {
		t.Fatal("Reset succeeded with unready transport")
	}
	if !d.HasError(ErrDeviceNotFound) {
		t.Error("ErrDeviceNotFound not flagged")
	}
	if d.IsInitialized() {
		t.Error("state changed on failed Reset")
	}
	if len(f.calls) != 0 {
		t.Error("register traffic before ready-check passed")
	}
}

func TestEnsureInitialized(t *testing.T) {
	d, f := newInitialized(t)
	if !d.EnsureInitialized() {
		t.Fatal("EnsureInitialized failed on initialized device")
	}
	if len(f.calls) != 0 {
		t.Error("EnsureInitialized touched the transport when already initialized")
	}
}

// ---- Frequency ----

func TestSetPwmFreqSequence(t *testing.T) {
	d, f := newInitialized(t)

	// Auto-increment and restart flags live in MODE1; the restore write
	// must bring them back exactly, and the sleep write must mask RESTART.
	f.regs[regMode1] = 0xA1

	if !d.SetPwmFreq(50) {
		t.Fatalf("SetPwmFreq failed: %v", d.LastError())
	}

	mode1Writes := f.writesTo(regMode1)
	if len(mode1Writes) != 2 {
		t.Fatalf("MODE1 writes = %d, want 2", len(mode1Writes))
	}
	if got := mode1Writes[0].data[0]; got != 0x31 {
		t.Errorf("first MODE1 write = %#x, want sleep set and restart masked (0x31)", got)
	}
	if got := mode1Writes[1].data[0]; got != 0xA1 {
		t.Errorf("restore MODE1 write = %#x, want original 0xA1", got)
	}

	ps := f.writesTo(regPreScale)
	if len(ps) != 1 || ps[0].data[0] != 121 {
		t.Fatalf("prescale writes = %v, want single write of 121", ps)
	}

	// The prescale write must land between sleep and restore.
	last := f.calls[len(f.calls)-1]
	if !last.write || last.reg != regMode1 || last.data[0] != 0xA1 {
		t.Errorf("last transfer %+v is not the MODE1 restore", last)
	}
}

func TestSetPwmFreqOutOfRange(t *testing.T) {
	d, f := newInitialized(t)
	for _, freq := range []float32{0, 23.9, 1526.1, -50} {
		if d.SetPwmFreq(freq) {
			t.Errorf("SetPwmFreq(%v) succeeded", freq)
		}
	}
	if !d.HasError(ErrOutOfRange) {
		t.Error("ErrOutOfRange not flagged")
	}
	if len(f.calls) != 0 {
		t.Error("out-of-range frequency reached the transport")
	}
}

func TestSetPwmFreqWhileSleeping(t *testing.T) {
	d, f := newInitialized(t)
	if !d.Sleep() {
		t.Fatal("Sleep failed")
	}
	f.calls = nil
	if !d.SetPwmFreq(200) {
		t.Fatalf("SetPwmFreq while sleeping failed: %v", d.LastError())
	}
	// Restore leaves the device asleep, as it was.
	if f.regs[regMode1]&mode1Sleep == 0 {
		t.Error("sleep bit lost across SetPwmFreq")
	}
	if !d.IsSleeping() {
		t.Error("driver state lost Sleeping across SetPwmFreq")
	}
}

func TestGetPrescalePassthrough(t *testing.T) {
	d, f := newInitialized(t)
	f.regs[regPreScale] = 121
	got, ok := d.GetPrescale()
	if !ok || got != 121 {
		t.Fatalf("GetPrescale = %d, %v", got, ok)
	}
}

// ---- Channel PWM ----

func TestSetPwmBlockWrite(t *testing.T) {
	d, f := newInitialized(t)
	if !d.SetPwm(3, 0x123, 0x456) {
		t.Fatalf("SetPwm failed: %v", d.LastError())
	}
	w := f.writesTo(0x06 + 4*3)
	if len(w) != 1 {
		t.Fatalf("block writes = %d, want 1", len(w))
	}
	want := []byte{0x23, 0x01, 0x56, 0x04}
	if string(w[0].data) != string(want) {
		t.Errorf("block = %#v, want %#v", w[0].data, want)
	}
}

func TestSetPwmValidation(t *testing.T) {
	cases := []struct {
		name    string
		channel uint8
		on, off uint16
	}{
		{"channel", 16, 0, 0},
		{"on tick", 0, 4096, 0},
		{"off tick", 0, 0, 5000},
	}
	for _, c := range cases {
		d, f := newInitialized(t)
		if d.SetPwm(c.channel, c.on, c.off) {
			t.Errorf("%s out of range accepted", c.name)
		}
		if !d.HasError(ErrOutOfRange) {
			t.Errorf("%s: ErrOutOfRange not flagged", c.name)
		}
		if len(f.calls) != 0 {
			t.Errorf("%s: register write issued for invalid input", c.name)
		}
	}
}

func TestSetDuty(t *testing.T) {
	d, f := newInitialized(t)
	if !d.SetDuty(0, 0.5) {
		t.Fatalf("SetDuty failed: %v", d.LastError())
	}
	on, off := decodePWM([4]byte(f.regs[0x06 : 0x06+4]))
	if on != 0 || off != 2048 {
		t.Errorf("duty 0.5 programmed (%d, %d)", on, off)
	}

	// Clamped, not rejected.
	if !d.SetDuty(0, 1.5) {
		t.Error("SetDuty(1.5) rejected")
	}
	if _, off = decodePWM([4]byte(f.regs[0x06 : 0x06+4])); off != 4095 {
		t.Errorf("duty 1.5 programmed off=%d, want 4095", off)
	}
}

func TestSetAllPwmBroadcast(t *testing.T) {
	d, f := newInitialized(t)
	if !d.SetAllPwm(0, 2048) {
		t.Fatalf("SetAllPwm failed: %v", d.LastError())
	}
	if len(f.writesTo(regAllLEDOnL)) != 1 {
		t.Fatal("broadcast block not written")
	}
	if d.SetAllPwm(0, 4096) {
		t.Error("SetAllPwm accepted out-of-range tick")
	}
}

func TestChannelFullOnOff(t *testing.T) {
	d, f := newInitialized(t)
	if !d.SetChannelFullOn(2) {
		t.Fatal("SetChannelFullOn failed")
	}
	base := 0x06 + 4*2
	if f.regs[base+1] != 0x10 || f.regs[base+3] != 0 {
		t.Errorf("full-on block = % x", f.regs[base:base+4])
	}
	if !d.SetChannelFullOff(2) {
		t.Fatal("SetChannelFullOff failed")
	}
	if f.regs[base+1] != 0 || f.regs[base+3] != 0x10 {
		t.Errorf("full-off block = % x", f.regs[base:base+4])
	}
	if d.SetChannelFullOn(16) || d.SetChannelFullOff(16) {
		t.Error("channel 16 accepted")
	}
}

func TestGetPwmReadback(t *testing.T) {
	d, _ := newInitialized(t)
	if !d.SetPwm(5, 100, 900) {
		t.Fatal("SetPwm failed")
	}
	on, off, ok := d.GetPwm(5)
	if !ok || on != 100 || off != 900 {
		t.Fatalf("GetPwm = (%d, %d, %v)", on, off, ok)
	}
}

// ---- Power management ----

func TestSleepWakeRoundTrip(t *testing.T) {
	d, f := newInitialized(t)

	if !d.Sleep() {
		t.Fatal("Sleep failed")
	}
	if !d.IsSleeping() {
		t.Error("state not Sleeping after Sleep")
	}
	if f.regs[regMode1]&mode1Sleep == 0 {
		t.Error("sleep bit not set")
	}

	// Device flags a pending restart while asleep.
	f.regs[regMode1] |= mode1Restart
	f.calls = nil

	if !d.Wake() {
		t.Fatal("Wake failed")
	}
	if d.IsSleeping() {
		t.Error("state still Sleeping after Wake")
	}

	w := f.writesTo(regMode1)
	if len(w) != 2 {
		t.Fatalf("MODE1 writes during Wake = %d, want 2", len(w))
	}
	if w[0].data[0]&(mode1Sleep|mode1Restart) != 0 {
		t.Errorf("first wake write = %#x, want sleep and restart clear", w[0].data[0])
	}
	if w[1].data[0]&mode1Restart == 0 {
		t.Errorf("second wake write = %#x, want restart re-asserted", w[1].data[0])
	}
}

func TestWakeWithoutPendingRestart(t *testing.T) {
	d, f := newInitialized(t)
	if !d.Sleep() {
		t.Fatal("Sleep failed")
	}
	f.calls = nil
	if !d.Wake() {
		t.Fatal("Wake failed")
	}
	if got := len(f.writesTo(regMode1)); got != 1 {
		t.Errorf("MODE1 writes during plain Wake = %d, want 1", got)
	}
}

// ---- Output configuration ----

func TestOutputInvertAndDriverMode(t *testing.T) {
	d, f := newInitialized(t)
	f.regs[regMode2] = 0x04 // totem-pole, no invert

	if !d.SetOutputInvert(true) {
		t.Fatal("SetOutputInvert failed")
	}
	if f.regs[regMode2] != 0x14 {
		t.Errorf("MODE2 = %#x after invert", f.regs[regMode2])
	}
	if !d.SetOutputDriverMode(false) {
		t.Fatal("SetOutputDriverMode failed")
	}
	if f.regs[regMode2] != 0x10 {
		t.Errorf("MODE2 = %#x after open-drain", f.regs[regMode2])
	}
	if !d.SetOutputInvert(false) || !d.SetOutputDriverMode(true) {
		t.Fatal("restoring MODE2 failed")
	}
	if f.regs[regMode2] != 0x04 {
		t.Errorf("MODE2 = %#x after restore", f.regs[regMode2])
	}
}

func TestOutputEnableHook(t *testing.T) {
	d, _ := newInitialized(t)

	// Without a hook the call is a documented no-op.
	if !d.SetOutputEnable(true) {
		t.Error("SetOutputEnable without hook failed")
	}

	var got []bool
	d.SetOutputEnablePin(func(enabled bool) error {
		got = append(got, enabled)
		if !enabled {
			return errNack
		}
		return nil
	})
	if !d.SetOutputEnable(true) {
		t.Error("SetOutputEnable(true) failed")
	}
	if d.SetOutputEnable(false) {
		t.Error("SetOutputEnable(false) ignored hook error")
	}
	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Errorf("hook calls = %v", got)
	}
}

// ---- Retry policy ----

func TestRetrySucceedsWithinBudget(t *testing.T) {
	d, f := newInitialized(t)
	d.SetRetries(2)
	delays := 0
	d.SetRetryDelay(func() { delays++ })

	f.failNext = 2
	if !d.SetPwm(0, 0, 100) {
		t.Fatalf("SetPwm failed despite retry budget: %v", d.LastError())
	}
	if len(f.calls) != 3 {
		t.Errorf("transfer attempts = %d, want 3", len(f.calls))
	}
	if delays != 2 {
		t.Errorf("delay callback invoked %d times, want 2", delays)
	}
	if d.HasError(ErrI2CWrite) {
		t.Error("ErrI2CWrite flagged on eventual success")
	}
}

func TestRetryExhaustedWrite(t *testing.T) {
	d, f := newInitialized(t)
	d.SetRetries(2)
	delays := 0
	d.SetRetryDelay(func() { delays++ })

	f.failAll = true
	if d.SetPwm(0, 0, 100) {
		t.Fatal("SetPwm succeeded on dead bus")
	}
	if len(f.calls) != 3 {
		t.Errorf("transfer attempts = %d, want 3", len(f.calls))
	}
	if delays != 2 {
		t.Errorf("delay callback invoked %d times, want 2 (never after the final attempt)", delays)
	}
	if !d.HasError(ErrI2CWrite) {
		t.Error("ErrI2CWrite not flagged")
	}
}

func TestRetryExhaustedRead(t *testing.T) {
	d, f := newInitialized(t)
	d.SetRetries(1)
	f.failAll = true
	if _, ok := d.GetPrescale(); ok {
		t.Fatal("GetPrescale succeeded on dead bus")
	}
	if len(f.calls) != 2 {
		t.Errorf("transfer attempts = %d, want 2", len(f.calls))
	}
	if !d.HasError(ErrI2CRead) {
		t.Error("ErrI2CRead not flagged")
	}
}

func TestZeroRetriesSingleAttempt(t *testing.T) {
	d, f := newInitialized(t)
	d.SetRetries(0)
	f.failAll = true
	d.SetPwm(0, 0, 1)
	if len(f.calls) != 1 {
		t.Errorf("attempts with zero retries = %d, want 1", len(f.calls))
	}
}

// ---- Error model ----

func TestErrorFlagsSticky(t *testing.T) {
	f := &scriptedBus{}
	d := New(f, 0)

	d.SetPwm(0, 0, 1) // not initialized
	if !d.Reset() {
		t.Fatal("Reset failed")
	}
	d.SetPwm(16, 0, 1) // out of range

	// Both flags accumulate; a later success clears neither.
	if !d.SetPwm(0, 0, 1) {
		t.Fatal("valid SetPwm failed")
	}
	if !d.HasError(ErrNotInitialized) || !d.HasError(ErrOutOfRange) {
		t.Errorf("flags = %v, want NotInitialized|OutOfRange", d.ErrorFlags())
	}
	if d.LastError() != ErrOutOfRange {
		t.Errorf("last error = %v, want ErrOutOfRange", d.LastError())
	}

	d.ClearError(ErrNotInitialized)
	if d.HasError(ErrNotInitialized) || !d.HasError(ErrOutOfRange) {
		t.Errorf("flags after single clear = %v", d.ErrorFlags())
	}

	d.ClearErrorFlags()
	if d.HasAnyError() || d.LastError() != ErrNone {
		t.Error("flags survived ClearErrorFlags")
	}
}

// ---- MemBus ----

func TestMemBusBlockSemantics(t *testing.T) {
	m := NewMemBus()
	d := New(m, 0)
	if !d.Reset() || !d.SetPwmFreq(50) || !d.SetPwm(1, 10, 20) {
		t.Fatalf("driver ops on MemBus failed: %v", d.LastError())
	}
	if m.Reg(regPreScale) != 121 {
		t.Errorf("prescale reg = %d", m.Reg(regPreScale))
	}
	if m.Reg(0x0A) != 10 || m.Reg(0x0C) != 20 {
		t.Errorf("channel 1 block = % x", []byte{m.Reg(0x0A), m.Reg(0x0B), m.Reg(0x0C), m.Reg(0x0D)})
	}
}
