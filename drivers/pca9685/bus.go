package pca9685

// Bus is the transport the driver needs: register-addressed byte transfers
// to a 7-bit device address, plus a lazy readiness check. Platform adapters
// (tinygo drivers.I2C, periph.io, MCP2221A) live alongside this package;
// anything satisfying the contract works.
//
// A non-nil error means the transfer did not complete; the driver treats
// any accompanying data as untrustworthy.
type Bus interface {
	WriteReg(addr, reg uint8, data []byte) error
	ReadReg(addr, reg uint8, data []byte) error
	EnsureReady() error
}

// DelayFn is the optional callback invoked between retry attempts, typically
// a short sleep to let the bus recover. It is never called after the final
// attempt.
type DelayFn func()

// SetRetries sets how many times a failed register transfer is retried
// (0 = single attempt). Negative values are treated as 0.
func (d *Device) SetRetries(retries int) {
	if retries < 0 {
		retries = 0
	}
	d.retries = retries
}

// SetRetryDelay sets the callback invoked between retry attempts, or nil
// for no delay.
func (d *Device) SetRetryDelay(fn DelayFn) {
	d.retryDelay = fn
}

// --- Retrying register access. Each helper makes retries+1 attempts and
// records the corresponding error flag once the budget is exhausted. ---

func (d *Device) writeReg(reg, value uint8) bool {
	d.wbuf[0] = value
	return d.writeRegBlock(reg, d.wbuf[:1])
}

func (d *Device) writeRegBlock(reg uint8, data []byte) bool {
	for attempt := 0; ; attempt++ {
		if err := d.bus.WriteReg(d.addr, reg, data); err == nil {
			return true
		}
		if attempt >= d.retries {
			break
		}
		if d.retryDelay != nil {
			d.retryDelay()
		}
	}
	d.setError(ErrI2CWrite)
	return false
}

func (d *Device) readReg(reg uint8) (uint8, bool) {
	if !d.readRegBlock(reg, d.wbuf[:1]) {
		return 0, false
	}
	return d.wbuf[0], true
}

func (d *Device) readRegBlock(reg uint8, data []byte) bool {
	for attempt := 0; ; attempt++ {
		if err := d.bus.ReadReg(d.addr, reg, data); err == nil {
			return true
		}
		if attempt >= d.retries {
			break
		}
		if d.retryDelay != nil {
			d.retryDelay()
		}
	}
	d.setError(ErrI2CRead)
	return false
}

// modifyReg read-modify-writes the mask bits of a register.
func (d *Device) modifyReg(reg, mask, value uint8) bool {
	cur, ok := d.readReg(reg)
	if !ok {
		return false
	}
	next := (cur &^ mask) | (value & mask)
	if next == cur {
		return true
	}
	return d.writeReg(reg, next)
}
