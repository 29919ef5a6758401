package pca9685

import "tinygo.org/x/drivers"

// I2CBus adapts a tinygo-style I2C bus to the Bus contract. The bus must
// already be configured.
//
// NOTE: I2C.Tx must perform a write followed by a repeated-start read when
// both w and r are provided, without releasing the bus.
type I2CBus struct {
	bus drivers.I2C

	// Fixed buffer for register+block writes (largest block is 4 bytes).
	w [5]byte
}

// NewI2CBus wraps a configured tinygo I2C bus.
func NewI2CBus(bus drivers.I2C) *I2CBus {
	return &I2CBus{bus: bus}
}

func (b *I2CBus) WriteReg(addr, reg uint8, data []byte) error {
	buf := append(b.w[:0], reg)
	buf = append(buf, data...)
	return b.bus.Tx(uint16(addr), buf, nil)
}

func (b *I2CBus) ReadReg(addr, reg uint8, data []byte) error {
	b.w[0] = reg
	return b.bus.Tx(uint16(addr), b.w[:1], data)
}

// EnsureReady is a no-op: the underlying machine bus is configured by the
// caller before the adapter is built.
func (b *I2CBus) EnsureReady() error { return nil }
