package pca9685

// MemBus is an in-memory register-map transport for tests and for running
// the demos without hardware. Blocks written at a start register land in
// consecutive register slots, matching the chip's auto-increment behaviour.
type MemBus struct {
	regs [256]byte
}

// NewMemBus returns a bus whose registers read back as zero until written.
func NewMemBus() *MemBus {
	return &MemBus{}
}

func (m *MemBus) WriteReg(_, reg uint8, data []byte) error {
	for i, b := range data {
		m.regs[(int(reg)+i)&0xFF] = b
	}
	return nil
}

func (m *MemBus) ReadReg(_, reg uint8, data []byte) error {
	for i := range data {
		data[i] = m.regs[(int(reg)+i)&0xFF]
	}
	return nil
}

func (m *MemBus) EnsureReady() error { return nil }

// Reg exposes a raw register slot, for assertions in tests and demos.
func (m *MemBus) Reg(reg uint8) byte { return m.regs[reg] }
