package core

import (
	"sync/atomic"
	"time"

	"servomux/errcode"
)

// Register addresses. One constant per channel and operation; the bus
// transport hands these through verbatim.
const (
	RegReset uint8 = 0x00

	RegEnable0 uint8 = 0x10
	RegEnable1 uint8 = 0x11
	RegEnable2 uint8 = 0x12
	RegEnable3 uint8 = 0x13

	RegDegrees0 uint8 = 0x20
	RegDegrees1 uint8 = 0x21
	RegDegrees2 uint8 = 0x22
	RegDegrees3 uint8 = 0x23

	RegTicks0 uint8 = 0x30
	RegTicks1 uint8 = 0x31
	RegTicks2 uint8 = 0x32
	RegTicks3 uint8 = 0x33
)

// RegUnmapped is returned for reads of unknown addresses, of the reset
// register and of any register after a reset was requested.
const RegUnmapped = 0xFF

// ResetDelay bounds the time between a reset write and the device reset.
// The register file stops answering immediately.
const ResetDelay = 15 * time.Millisecond

type regKind uint8

const (
	regEnable regKind = iota
	regDegrees
	regTicks
)

// channelRegisters is the complete channel address map.
var channelRegisters = [...]struct {
	addr    uint8
	name    string
	channel uint8
	kind    regKind
}{
	{RegEnable0, "enable0", 0, regEnable},
	{RegEnable1, "enable1", 1, regEnable},
	{RegEnable2, "enable2", 2, regEnable},
	{RegEnable3, "enable3", 3, regEnable},

	{RegDegrees0, "degrees0", 0, regDegrees},
	{RegDegrees1, "degrees1", 1, regDegrees},
	{RegDegrees2, "degrees2", 2, regDegrees},
	{RegDegrees3, "degrees3", 3, regDegrees},

	{RegTicks0, "ticks0", 0, regTicks},
	{RegTicks1, "ticks1", 1, regTicks},
	{RegTicks2, "ticks2", 2, regTicks},
	{RegTicks3, "ticks3", 3, regTicks},
}

// Register is one entry of the address map
type Register struct {
	Addr  uint8
	Name  string
	Read  func() uint8
	Write func(value uint8) error
}

// RegisterFile maps single-byte addresses onto channel table operations.
// Reads and writes are what the bus transport (I2C target, line parser)
// calls; neither ever blocks.
type RegisterFile struct {
	table  *ChannelTable
	regs   [256]*Register
	order  []uint8
	halted atomic.Bool
	reset  func()
}

// NewRegisterFile builds the address map for table
func NewRegisterFile(table *ChannelTable) *RegisterFile {
	rf := &RegisterFile{table: table}

	rf.define(RegReset, "reset", func() uint8 { return RegUnmapped }, rf.writeReset)

	for _, r := range channelRegisters {
		ch := r.channel
		switch r.kind {
		case regEnable:
			rf.define(r.addr, r.name,
				func() uint8 {
					on, _ := table.IsEnabled(ch)
					if on {
						return 1
					}
					return 0
				},
				func(v uint8) error {
					if v == 0 {
						return table.Disable(ch)
					}
					return table.Enable(ch)
				})
		case regDegrees:
			rf.define(r.addr, r.name,
				func() uint8 {
					deg, err := table.PositionDegrees(ch)
					if err != nil {
						return RegUnmapped
					}
					return deg
				},
				func(v uint8) error { return table.SetPositionDegrees(ch, v) })
		case regTicks:
			rf.define(r.addr, r.name,
				func() uint8 {
					ticks, err := table.PulseTicks(ch)
					if err != nil {
						return RegUnmapped
					}
					return ticks
				},
				func(v uint8) error { return table.SetPulseTicks(ch, v) })
		}
	}

	return rf
}

func (rf *RegisterFile) define(addr uint8, name string, read func() uint8, write func(uint8) error) {
	rf.regs[addr] = &Register{Addr: addr, Name: name, Read: read, Write: write}
	rf.order = append(rf.order, addr)
}

// SetResetHandler sets the platform-specific reset handler. It runs after
// the register file has halted and is not expected to return on hardware.
func (rf *RegisterFile) SetResetHandler(handler func()) {
	rf.reset = handler
}

// Read returns the value of the register at addr, or RegUnmapped
func (rf *RegisterFile) Read(addr uint8) uint8 {
	if rf.halted.Load() {
		return RegUnmapped
	}
	r := rf.regs[addr]
	if r == nil {
		return RegUnmapped
	}
	return r.Read()
}

// Write stores value into the register at addr. Unknown addresses change
// nothing and report errcode.UnrecognizedAddress.
func (rf *RegisterFile) Write(addr uint8, value uint8) error {
	if rf.halted.Load() {
		return errcode.Halted
	}
	r := rf.regs[addr]
	if r == nil {
		DebugPrintln("[REG] write to unknown register " + hex8(addr))
		return &errcode.E{C: errcode.UnrecognizedAddress, Op: "write", Msg: hex8(addr)}
	}
	if err := r.Write(value); err != nil {
		DebugPrintln("[REG] " + r.Name + " <- " + Utoa(uint32(value)) + ": " + err.Error())
		return err
	}
	return nil
}

func (rf *RegisterFile) writeReset(value uint8) error {
	if value == 0 {
		return nil
	}
	rf.halted.Store(true)
	DebugPrintln("[REG] reset requested")
	if rf.reset != nil {
		rf.reset()
	}
	return nil
}

// Halted reports whether a reset was requested
func (rf *RegisterFile) Halted() bool {
	return rf.halted.Load()
}

// Resume clears the halted state. Only the host simulator uses this, to
// model the device coming back after its reset.
func (rf *RegisterFile) Resume() {
	rf.halted.Store(false)
}

// Lookup returns the register defined at addr
func (rf *RegisterFile) Lookup(addr uint8) (*Register, bool) {
	r := rf.regs[addr]
	return r, r != nil
}

// LookupName finds a register by name, for text front-ends
func (rf *RegisterFile) LookupName(name string) (*Register, bool) {
	for _, addr := range rf.order {
		if r := rf.regs[addr]; r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Addresses returns every defined address in definition order
func (rf *RegisterFile) Addresses() []uint8 {
	out := make([]uint8, len(rf.order))
	copy(out, rf.order)
	return out
}

// Describe returns the register dictionary, one "addr name" line per entry
func (rf *RegisterFile) Describe() string {
	dict := ""
	for _, addr := range rf.order {
		dict += hex8(addr) + " " + rf.regs[addr].Name + "\n"
	}
	return dict
}
