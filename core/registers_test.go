package core

import (
	"errors"
	"strings"
	"testing"

	"servomux/errcode"
)

func TestRegisterMapComplete(t *testing.T) {
	rf := NewRegisterFile(NewChannelTable())

	addrs := rf.Addresses()
	if len(addrs) != 1+3*NumChannels {
		t.Fatalf("%d registers defined, want %d", len(addrs), 1+3*NumChannels)
	}

	for ch := uint8(0); ch < NumChannels; ch++ {
		for _, base := range []uint8{RegEnable0, RegDegrees0, RegTicks0} {
			if _, ok := rf.Lookup(base + ch); !ok {
				t.Errorf("register %s missing", hex8(base+ch))
			}
		}
	}
	if r, ok := rf.LookupName("degrees2"); !ok || r.Addr != RegDegrees2 {
		t.Errorf("LookupName(degrees2) = %+v, %v", r, ok)
	}
	if _, ok := rf.LookupName("degrees9"); ok {
		t.Error("LookupName(degrees9) should fail")
	}
}

func TestEnableRegister(t *testing.T) {
	table := NewChannelTable()
	rf := NewRegisterFile(table)

	if err := rf.Write(RegEnable2, 1); err != nil {
		t.Fatalf("Write(enable2, 1) failed: %v", err)
	}
	if on, _ := table.IsEnabled(2); !on {
		t.Error("channel 2 not enabled")
	}
	if got := rf.Read(RegEnable2); got != 1 {
		t.Errorf("Read(enable2) = %d, want 1", got)
	}

	// Any nonzero value enables
	rf.Write(RegEnable3, 0x80)
	if got := rf.Read(RegEnable3); got != 1 {
		t.Errorf("Read(enable3) = %d, want 1", got)
	}

	rf.Write(RegEnable2, 0)
	if on, _ := table.IsEnabled(2); on {
		t.Error("channel 2 still enabled after writing 0")
	}
}

func TestDegreesRegister(t *testing.T) {
	table := NewChannelTable()
	rf := NewRegisterFile(table)

	if err := rf.Write(RegDegrees1, 90); err != nil {
		t.Fatalf("Write(degrees1, 90) failed: %v", err)
	}
	us, _ := table.PulseWidthUS(1)
	if want := degreesToUS(90, DefaultMinUS, DefaultMaxUS); us > want || want-us >= TickMicros {
		t.Errorf("pulse width %dus, want ~%dus", us, want)
	}
	if got := rf.Read(RegDegrees1); got < 89 || got > 91 {
		t.Errorf("Read(degrees1) = %d, want ~90", got)
	}

	err := rf.Write(RegDegrees1, 181)
	if errcode.Of(err) != errcode.InvalidValue {
		t.Errorf("Write(degrees1, 181): err=%v, want invalid_value", err)
	}
}

func TestTicksRegister(t *testing.T) {
	table := NewChannelTable()
	rf := NewRegisterFile(table)

	for _, v := range []uint8{0, 1, 128, 255} {
		if err := rf.Write(RegTicks3, v); err != nil {
			t.Fatalf("Write(ticks3, %d) failed: %v", v, err)
		}
		if got := rf.Read(RegTicks3); got != v {
			t.Errorf("Read(ticks3) = %d, want %d", got, v)
		}
		if ticks, _ := table.PulseTicks(3); ticks != v {
			t.Errorf("table ticks = %d, want %d", ticks, v)
		}
	}
}

func TestUnknownRegister(t *testing.T) {
	table := NewChannelTable()
	rf := NewRegisterFile(table)

	for _, addr := range []uint8{0x01, 0x14, 0x24, 0x34, 0x40, 0xFF} {
		err := rf.Write(addr, 1)
		if !errors.Is(err, errcode.UnrecognizedAddress) {
			t.Errorf("Write(%s): err=%v, want unrecognized_address", hex8(addr), err)
		}
		if got := rf.Read(addr); got != RegUnmapped {
			t.Errorf("Read(%s) = %d, want %d", hex8(addr), got, RegUnmapped)
		}
	}

	if got := snapshotTable(t, table); got != defaultTableState() {
		t.Errorf("unknown writes changed the table: %+v", got)
	}
}

func TestResetRegister(t *testing.T) {
	table := NewChannelTable()
	rf := NewRegisterFile(table)
	rf.Write(RegTicks0, 42)

	calls := 0
	rf.SetResetHandler(func() { calls++ })

	// Writing zero is accepted and does nothing
	if err := rf.Write(RegReset, 0); err != nil {
		t.Fatalf("Write(reset, 0) failed: %v", err)
	}
	if calls != 0 || rf.Halted() {
		t.Fatalf("reset 0 triggered a reset: calls=%d halted=%v", calls, rf.Halted())
	}
	if got := rf.Read(RegReset); got != RegUnmapped {
		t.Errorf("Read(reset) = %d, want %d", got, RegUnmapped)
	}

	if err := rf.Write(RegReset, 1); err != nil {
		t.Fatalf("Write(reset, 1) failed: %v", err)
	}
	if calls != 1 || !rf.Halted() {
		t.Fatalf("reset 1: calls=%d halted=%v", calls, rf.Halted())
	}

	// Halted: reads are unmapped, writes are refused and change nothing
	if got := rf.Read(RegTicks0); got != RegUnmapped {
		t.Errorf("Read after reset = %d, want %d", got, RegUnmapped)
	}
	if err := rf.Write(RegTicks0, 7); err != errcode.Halted {
		t.Errorf("Write after reset: err=%v, want halted", err)
	}
	if ticks, _ := table.PulseTicks(0); ticks != 42 {
		t.Errorf("write after reset changed ticks to %d", ticks)
	}

	rf.Resume()
	if got := rf.Read(RegTicks0); got != 42 {
		t.Errorf("Read after Resume = %d, want 42", got)
	}
}

func TestDescribe(t *testing.T) {
	rf := NewRegisterFile(NewChannelTable())
	dict := rf.Describe()

	lines := strings.Split(strings.TrimSuffix(dict, "\n"), "\n")
	if len(lines) != 1+3*NumChannels {
		t.Fatalf("Describe returned %d lines", len(lines))
	}
	if lines[0] != "0x00 reset" {
		t.Errorf("first line %q", lines[0])
	}
	if !strings.Contains(dict, "0x31 ticks1\n") {
		t.Errorf("ticks1 missing from %q", dict)
	}
}
