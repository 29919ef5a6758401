//go:build linux

package pca9685

import (
	"periph.io/x/conn/v3/i2c"
)

// PeriphBus adapts a periph.io I2C bus (typically opened with i2creg.Open
// after host.Init) to the Bus contract.
type PeriphBus struct {
	bus i2c.Bus
	w   [5]byte
}

// NewPeriphBus wraps an open periph.io bus.
func NewPeriphBus(bus i2c.Bus) *PeriphBus {
	return &PeriphBus{bus: bus}
}

func (b *PeriphBus) WriteReg(addr, reg uint8, data []byte) error {
	buf := append(b.w[:0], reg)
	buf = append(buf, data...)
	return b.bus.Tx(uint16(addr), buf, nil)
}

func (b *PeriphBus) ReadReg(addr, reg uint8, data []byte) error {
	b.w[0] = reg
	return b.bus.Tx(uint16(addr), b.w[:1], data)
}

// EnsureReady is a no-op: i2creg.Open fails early if the bus is absent.
func (b *PeriphBus) EnsureReady() error { return nil }
