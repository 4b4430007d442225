package core

import (
	"errors"
	"testing"

	"servomux/errcode"
)

type channelState struct {
	enabled bool
	ticks   uint8
	minUS   uint16
	maxUS   uint16
}

func snapshotTable(t *testing.T, table *ChannelTable) [NumChannels]channelState {
	t.Helper()
	var out [NumChannels]channelState
	for i := uint8(0); i < NumChannels; i++ {
		on, _ := table.IsEnabled(i)
		ticks, _ := table.PulseTicks(i)
		minUS, maxUS, _ := table.Range(i)
		out[i] = channelState{on, ticks, minUS, maxUS}
	}
	return out
}

func TestChannelTableDefaults(t *testing.T) {
	table := NewChannelTable()

	for i := uint8(0); i < NumChannels; i++ {
		on, err := table.IsEnabled(i)
		if err != nil || on {
			t.Errorf("channel %d: enabled=%v err=%v, want disabled", i, on, err)
		}
		ticks, _ := table.PulseTicks(i)
		if ticks != DefaultPulseTicks {
			t.Errorf("channel %d: ticks=%d, want %d", i, ticks, DefaultPulseTicks)
		}
		minUS, maxUS, _ := table.Range(i)
		if minUS != DefaultMinUS || maxUS != DefaultMaxUS {
			t.Errorf("channel %d: range=%d..%d, want %d..%d", i, minUS, maxUS, DefaultMinUS, DefaultMaxUS)
		}
	}
}

func TestPulseWidthRoundTrip(t *testing.T) {
	table := NewChannelTable()

	minWidth := uint32((PreRollTicks) * TickMicros)
	maxWidth := uint32((PreRollTicks+MaxTicks+1)*TickMicros - 1)

	for ch := uint8(0); ch < NumChannels; ch++ {
		for w := minWidth; w <= maxWidth; w++ {
			if err := table.SetPulseWidthUS(ch, w); err != nil {
				t.Fatalf("SetPulseWidthUS(%d, %d) failed: %v", ch, w, err)
			}
			got, err := table.PulseWidthUS(ch)
			if err != nil {
				t.Fatalf("PulseWidthUS(%d) failed: %v", ch, err)
			}
			if got > w || w-got >= TickMicros {
				t.Fatalf("channel %d: set %dus, read back %dus", ch, w, got)
			}
		}
	}
}

func TestPulseWidthRejectsOutOfRange(t *testing.T) {
	table := NewChannelTable()
	if err := table.SetPulseWidthUS(0, 1500); err != nil {
		t.Fatalf("SetPulseWidthUS(1500) failed: %v", err)
	}
	before, _ := table.PulseTicks(0)

	for _, w := range []uint32{0, 100, 511, 2560, 5000} {
		err := table.SetPulseWidthUS(0, w)
		if !errors.Is(err, errcode.InvalidValue) {
			t.Errorf("SetPulseWidthUS(%d): err=%v, want invalid_value", w, err)
		}
		if after, _ := table.PulseTicks(0); after != before {
			t.Errorf("SetPulseWidthUS(%d) changed ticks %d -> %d", w, before, after)
		}
	}

	// Edges of the representable range
	if err := table.SetPulseWidthUS(0, 512); err != nil {
		t.Errorf("512us should be accepted: %v", err)
	}
	if ticks, _ := table.PulseTicks(0); ticks != 0 {
		t.Errorf("512us: ticks=%d, want 0", ticks)
	}
	if err := table.SetPulseWidthUS(0, 2559); err != nil {
		t.Errorf("2559us should be accepted: %v", err)
	}
	if ticks, _ := table.PulseTicks(0); ticks != MaxTicks {
		t.Errorf("2559us: ticks=%d, want %d", ticks, MaxTicks)
	}
}

func TestDegreesRoundTrip(t *testing.T) {
	table := NewChannelTable()

	for ch := uint8(0); ch < NumChannels; ch++ {
		for d := 0; d <= MaxDegrees; d++ {
			if err := table.SetPositionDegrees(ch, uint8(d)); err != nil {
				t.Fatalf("SetPositionDegrees(%d, %d) failed: %v", ch, d, err)
			}
			got, err := table.PositionDegrees(ch)
			if err != nil {
				t.Fatalf("PositionDegrees(%d) failed: %v", ch, err)
			}
			diff := d - int(got)
			if diff < -1 || diff > 1 {
				t.Fatalf("channel %d: set %d degrees, read back %d", ch, d, got)
			}
		}
	}

	// Range end points are exact with the default calibration
	table.SetPositionDegrees(0, 0)
	if us, _ := table.PulseWidthUS(0); us != DefaultMinUS {
		t.Errorf("0 degrees -> %dus, want %d", us, DefaultMinUS)
	}
	table.SetPositionDegrees(0, 180)
	if us, _ := table.PulseWidthUS(0); us != DefaultMaxUS {
		t.Errorf("180 degrees -> %dus, want %d", us, DefaultMaxUS)
	}
}

func TestDegreesRejectsOutOfRange(t *testing.T) {
	table := NewChannelTable()
	table.SetPositionDegrees(2, 90)
	before := snapshotTable(t, table)

	for _, d := range []uint8{181, 200, 255} {
		err := table.SetPositionDegrees(2, d)
		if errcode.Of(err) != errcode.InvalidValue {
			t.Errorf("SetPositionDegrees(%d): err=%v, want invalid_value", d, err)
		}
	}

	if after := snapshotTable(t, table); after != before {
		t.Errorf("table changed by rejected writes: %+v -> %+v", before, after)
	}
}

func TestInvalidIndexLeavesTableUnchanged(t *testing.T) {
	table := NewChannelTable()
	table.Enable(1)
	table.SetPulseTicks(3, 42)
	before := snapshotTable(t, table)

	bad := uint8(NumChannels)
	ops := map[string]func() error{
		"enable":      func() error { return table.Enable(bad) },
		"disable":     func() error { return table.Disable(bad) },
		"set_degrees": func() error { return table.SetPositionDegrees(bad, 90) },
		"set_us":      func() error { return table.SetPulseWidthUS(bad, 1500) },
		"set_ticks":   func() error { return table.SetPulseTicks(bad, 10) },
		"set_range":   func() error { return table.SetRange(bad, 1000, 2000) },
		"is_enabled":  func() error { _, err := table.IsEnabled(bad); return err },
		"get_degrees": func() error { _, err := table.PositionDegrees(bad); return err },
		"get_us":      func() error { _, err := table.PulseWidthUS(bad); return err },
		"get_ticks":   func() error { _, err := table.PulseTicks(bad); return err },
		"get_range":   func() error { _, _, err := table.Range(bad); return err },
	}

	for name, op := range ops {
		if err := op(); errcode.Of(err) != errcode.InvalidIndex {
			t.Errorf("%s: err=%v, want invalid_index", name, err)
		}
	}

	if after := snapshotTable(t, table); after != before {
		t.Errorf("table changed by invalid index: %+v -> %+v", before, after)
	}
}

func TestSetRange(t *testing.T) {
	table := NewChannelTable()

	if err := table.SetRange(0, 1000, 2000); err != nil {
		t.Fatalf("SetRange failed: %v", err)
	}
	table.SetPositionDegrees(0, 90)
	if us, _ := table.PulseWidthUS(0); us != 1496 {
		t.Errorf("90 degrees on 1000..2000 -> %dus, want 1496", us)
	}
	if deg, _ := table.PositionDegrees(0); deg < 89 || deg > 90 {
		t.Errorf("PositionDegrees = %d, want ~90", deg)
	}

	for _, r := range [][2]uint16{{0, 2000}, {2000, 2000}, {2400, 544}} {
		if err := table.SetRange(0, r[0], r[1]); errcode.Of(err) != errcode.InvalidValue {
			t.Errorf("SetRange(%d, %d): err=%v, want invalid_value", r[0], r[1], err)
		}
	}
	if minUS, maxUS, _ := table.Range(0); minUS != 1000 || maxUS != 2000 {
		t.Errorf("range changed by rejected writes: %d..%d", minUS, maxUS)
	}
}

func TestPositionDegreesClamps(t *testing.T) {
	table := NewChannelTable()

	// 512us is below the default 544us minimum
	table.SetPulseTicks(0, 0)
	if deg, _ := table.PositionDegrees(0); deg != 0 {
		t.Errorf("below range: %d degrees, want 0", deg)
	}

	// 2552us is above the default 2400us maximum
	table.SetPulseTicks(0, MaxTicks)
	if deg, _ := table.PositionDegrees(0); deg != MaxDegrees {
		t.Errorf("above range: %d degrees, want %d", deg, MaxDegrees)
	}
}

func TestChannelTableReset(t *testing.T) {
	table := NewChannelTable()
	table.Enable(0)
	table.SetPulseTicks(0, 7)
	table.SetRange(0, 900, 2100)

	table.Reset()

	if got := snapshotTable(t, table); got != defaultTableState() {
		t.Errorf("Reset left %+v", got)
	}
}

// defaultTableState is the snapshot of a freshly built table
func defaultTableState() [NumChannels]channelState {
	var out [NumChannels]channelState
	for i := range out {
		out[i] = channelState{false, DefaultPulseTicks, DefaultMinUS, DefaultMaxUS}
	}
	return out
}

func TestTickConversions(t *testing.T) {
	if TickMicros != 8 {
		t.Fatalf("TickMicros = %d, want 8", TickMicros)
	}
	if got := TicksFromUS(1500); got != 187 {
		t.Errorf("TicksFromUS(1500) = %d, want 187", got)
	}
	if got := TicksToUS(FrameTicks); got != 4096 {
		t.Errorf("TicksToUS(FrameTicks) = %d, want 4096", got)
	}
	if got := FrameMicros(); got != 4096*NumChannels {
		t.Errorf("FrameMicros() = %d", got)
	}
}
