package pca9685

// Error is a bitmask of failure categories. Flags accumulate across calls
// and are never cleared by a later success; callers clear them explicitly.
// This keeps intermittent bus faults visible between polling cycles.
type Error uint16

const (
	ErrNone           Error = 0
	ErrI2CWrite       Error = 1 << 0 // an I2C write failed after retries
	ErrI2CRead        Error = 1 << 1 // an I2C read failed after retries
	ErrInvalidParam   Error = 1 << 2 // malformed parameter
	ErrDeviceNotFound Error = 1 << 3 // transport ready-check failed
	ErrNotInitialized Error = 1 << 4 // operation before Reset succeeded
	ErrOutOfRange     Error = 1 << 5 // channel, tick or frequency out of bounds
)

func (e Error) String() string {
	switch e {
	case ErrNone:
		return "none"
	case ErrI2CWrite:
		return "i2c_write"
	case ErrI2CRead:
		return "i2c_read"
	case ErrInvalidParam:
		return "invalid_param"
	case ErrDeviceNotFound:
		return "device_not_found"
	case ErrNotInitialized:
		return "not_initialized"
	case ErrOutOfRange:
		return "out_of_range"
	default:
		return "multiple"
	}
}

// Has reports whether flag is set in the mask.
func (e Error) Has(flag Error) bool { return e&flag != 0 }

// setError records e as the most recent error and ORs it into the mask.
func (d *Device) setError(e Error) {
	d.lastErr = e
	d.errFlags |= e
}

// ErrorFlags returns the accumulated error bitmask.
func (d *Device) ErrorFlags() Error { return d.errFlags }

// LastError returns the most recent error, or ErrNone.
func (d *Device) LastError() Error { return d.lastErr }

// HasError reports whether a specific flag is set.
func (d *Device) HasError(e Error) bool { return d.errFlags.Has(e) }

// HasAnyError reports whether any flag is set.
func (d *Device) HasAnyError() bool { return d.errFlags != 0 }

// ClearError clears a single flag.
func (d *Device) ClearError(e Error) { d.errFlags &^= e }

// ClearErrorFlags clears every flag and the last-error record.
func (d *Device) ClearErrorFlags() {
	d.errFlags = 0
	d.lastErr = ErrNone
}
