//go:build linux || darwin || windows

package pca9685

import (
	"errors"

	mcp "github.com/ardnew/mcp2221a"
)

// MCP2221Bus adapts the MCP2221A USB-to-I2C bridge to the Bus contract,
// for driving a PCA9685 from a desktop host.
type MCP2221Bus struct {
	dev *mcp.MCP2221A
	w   [5]byte
}

var errNoBridge = errors.New("pca9685: no MCP2221A bridge attached")

// NewMCP2221Bus wraps an open bridge handle (see mcp.New).
func NewMCP2221Bus(dev *mcp.MCP2221A) *MCP2221Bus {
	return &MCP2221Bus{dev: dev}
}

func (b *MCP2221Bus) WriteReg(addr, reg uint8, data []byte) error {
	buf := append(b.w[:0], reg)
	buf = append(buf, data...)
	return b.dev.I2C.Write(true, addr, buf, uint16(len(buf)))
}

func (b *MCP2221Bus) ReadReg(addr, reg uint8, data []byte) error {
	out, err := b.dev.I2C.ReadReg(addr, reg, uint16(len(data)))
	if err != nil {
		return err
	}
	copy(data, out)
	return nil
}

// EnsureReady verifies the bridge is attached over USB.
func (b *MCP2221Bus) EnsureReady() error {
	if b.dev == nil || len(mcp.AttachedDevices(mcp.VID, mcp.PID)) == 0 {
		return errNoBridge
	}
	return nil
}
