package core

// BusTarget decodes register transactions arriving from a bus master. The
// first byte of a write selects the register; any further bytes are
// written to it. A read returns the selected register.
type BusTarget struct {
	regs *RegisterFile
	ptr  uint8
}

// NewBusTarget serves regs on a bus
func NewBusTarget(regs *RegisterFile) *BusTarget {
	return &BusTarget{regs: regs}
}

// Receive handles the bytes of one master write. Write errors are not
// reported to the master; the register file logs them.
func (b *BusTarget) Receive(data []byte) {
	if len(data) == 0 {
		return
	}
	b.ptr = data[0]
	for _, v := range data[1:] {
		_ = b.regs.Write(b.ptr, v)
	}
}

// Request returns the byte for one master read
func (b *BusTarget) Request() uint8 {
	return b.regs.Read(b.ptr)
}

// Pointer returns the selected register address
func (b *BusTarget) Pointer() uint8 {
	return b.ptr
}
