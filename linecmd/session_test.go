package linecmd

import (
	"bytes"
	"strings"
	"testing"

	"servomux/core"
	"servomux/protocol"
)

func newTestSession() (*Session, *core.ChannelTable, *core.RegisterFile, *bytes.Buffer) {
	table := core.NewChannelTable()
	regs := core.NewRegisterFile(table)
	var out bytes.Buffer
	return NewSession(regs, &out), table, regs, &out
}

func TestSessionGetAndModify(t *testing.T) {
	s, table, _, out := newTestSession()

	tests := []struct {
		line  string
		reply string
	}{
		{"G16\r", "16=0\r\n"},
		{"M16 1\r", "ok\r\n"},
		{"G16\r", "16=1\r\n"},
		{"M48 200\r\n", "ok\r\n"},
		{"G48\r", "48=200\r\n"},
		{"M32 0\r", "ok\r\n"},
		{"G32\r", "32=0\r\n"},
		{"G48\r", "48=4\r\n"},
		{"M49 255\r", "ok\r\n"},
		{"G49\r", "49=255\r\n"},
		{"M33 181\r", "error: invalid_value\r\n"},
		{"M64 1\r", "error: unrecognized_address\r\n"},
		{"G64\r", "error: unrecognized_address\r\n"},
		{"M16\r", "error: invalid_value\r\n"},
		{"M16 abc\r", "error: invalid_value\r\n"},
		{"Q", "error: unrecognized_command\r\n"},
	}

	for _, tt := range tests {
		out.Reset()
		s.Receive(protocol.NewSliceInputBuffer([]byte(tt.line)))
		if got := out.String(); got != tt.reply {
			t.Errorf("%q: reply %q, want %q", tt.line, got, tt.reply)
		}
	}

	if on, _ := table.IsEnabled(0); !on {
		t.Error("channel 0 not enabled by M16 1")
	}
	// 0 degrees is 544us, 4 ticks past the pre-roll
	if ticks, _ := table.PulseTicks(0); ticks != 4 {
		t.Errorf("channel 0 ticks = %d, want 4", ticks)
	}
}

func TestSessionSplitAcrossReads(t *testing.T) {
	s, table, _, out := newTestSession()

	for _, chunk := range []string{"M", "4", "9 1", "7", "\r"} {
		s.Receive(protocol.NewSliceInputBuffer([]byte(chunk)))
	}
	if out.String() != "ok\r\n" {
		t.Errorf("reply %q", out.String())
	}
	if ticks, _ := table.PulseTicks(1); ticks != 17 {
		t.Errorf("channel 1 ticks = %d, want 17", ticks)
	}
}

func TestSessionAfterReset(t *testing.T) {
	s, _, regs, out := newTestSession()
	resets := 0
	regs.SetResetHandler(func() { resets++ })

	s.Receive(protocol.NewSliceInputBuffer([]byte("M0 1\r")))
	if resets != 1 {
		t.Fatalf("reset handler ran %d times", resets)
	}
	if out.String() != "ok\r\n" {
		t.Errorf("reset reply %q", out.String())
	}

	out.Reset()
	s.Receive(protocol.NewSliceInputBuffer([]byte("G16\rM16 1\r")))
	if got := out.String(); got != "error: halted\r\nerror: halted\r\n" {
		t.Errorf("replies after reset %q", got)
	}
}

func TestSessionPollsAttachedFifo(t *testing.T) {
	s, _, _, out := newTestSession()
	fifo := protocol.NewFifoBuffer(64)
	s.Attach(fifo)

	fifo.Write([]byte("M50 9\rG50\r"))

	select {
	case <-s.Ready():
	default:
		t.Fatal("no ready signal after the first write")
	}
	s.Poll()

	if got := out.String(); got != "ok\r\n50=9\r\n" {
		t.Errorf("replies %q", got)
	}
	if !fifo.IsEmpty() {
		t.Errorf("%d bytes left in the fifo", fifo.Available())
	}
}

func TestSessionHello(t *testing.T) {
	s, _, _, out := newTestSession()
	s.Hello()
	if !strings.HasPrefix(out.String(), "servomux "+protocol.Version) {
		t.Errorf("banner %q", out.String())
	}
}
