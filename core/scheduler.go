package core

import "sync/atomic"

// Phase is the scheduler state executed on the next compare match.
type Phase uint8

const (
	PhaseSetPinHigh Phase = iota
	PhaseWaitPreRoll
	PhaseSetPinLow
	PhaseWaitFrameEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseSetPinHigh:
		return "set_pin_high"
	case PhaseWaitPreRoll:
		return "wait_pre_roll"
	case PhaseSetPinLow:
		return "set_pin_low"
	case PhaseWaitFrameEnd:
		return "wait_frame_end"
	default:
		return "unknown"
	}
}

// PulseScheduler time-multiplexes NumChannels servo pulses on one compare
// timer. Each channel owns a slot of FrameTicks; within it the pin is high
// for PreRollTicks + pulse ticks and the rest of the slot is padded so the
// slot length does not depend on the pulse width.
//
// HandleCompareMatch is the interrupt body. Everything else runs in normal
// context.
type PulseScheduler struct {
	table *ChannelTable
	timer CompareTimer
	gpio  GPIODriver
	pins  [NumChannels]GPIOPin

	// Owned by the compare handler.
	current uint8
	phase   Phase
	driven  bool   // pin was driven high in this slot
	pulse   uint32 // pulse ticks latched for this slot

	slots atomic.Uint32
}

// NewPulseScheduler wires a scheduler to its table and hardware. The first
// slot after Start belongs to channel 0.
func NewPulseScheduler(table *ChannelTable, timer CompareTimer, gpio GPIODriver, pins [NumChannels]GPIOPin) *PulseScheduler {
	return &PulseScheduler{
		table:   table,
		timer:   timer,
		gpio:    gpio,
		pins:    pins,
		current: NumChannels - 1,
		phase:   PhaseSetPinHigh,
	}
}

// Start configures every channel pin as a low output and arms the timer so
// the first compare match arrives after one full counter period. Call it
// before enabling the compare interrupt.
func (s *PulseScheduler) Start() error {
	for _, pin := range s.pins {
		if err := s.gpio.ConfigureOutput(pin); err != nil {
			return err
		}
	}

	state := disableInterrupts()
	s.current = NumChannels - 1
	s.phase = PhaseSetPinHigh
	s.driven = false
	s.arm(MaxTicks)
	restoreInterrupts(state)

	DebugPrintln("[SCHED] started, " + Utoa(NumChannels) + " channels, slot " + Utoa(SlotMicros()) + "us")
	return nil
}

// HandleCompareMatch advances the state machine by one transition. It
// never blocks or allocates and trusts the table's validated values.
func (s *PulseScheduler) HandleCompareMatch() {
	switch s.phase {
	case PhaseSetPinHigh:
		s.current++
		if s.current == NumChannels {
			s.current = 0
		}
		s.driven = s.table.channels[s.current].enabled.Load()
		if s.driven {
			_ = s.gpio.SetPin(s.pins[s.current], true)
		}
		s.arm(PreRollTicks - ISRTrimTicks)
		s.phase = PhaseWaitPreRoll
		RecordTiming(EvtPinHigh, s.current, s.slots.Load(), PreRollTicks-ISRTrimTicks, boolToU32(s.driven))

	case PhaseWaitPreRoll:
		s.pulse = s.table.channels[s.current].pulseTicks.Load()
		s.arm(s.pulse)
		s.phase = PhaseSetPinLow
		RecordTiming(EvtPreRoll, s.current, s.slots.Load(), s.pulse, s.pulse)

	case PhaseSetPinLow:
		if s.driven {
			_ = s.gpio.SetPin(s.pins[s.current], false)
			s.driven = false
		}
		high := PreRollTicks + s.pulse
		var compare uint32
		if high > MaxTicks {
			// The pulse already ran past the mid-slot mark; finish the
			// slot directly. The wait is 193..256 ticks.
			compare = FrameTicks - high
			s.phase = PhaseSetPinHigh
			s.slots.Add(1)
		} else {
			compare = MaxTicks - high
			s.phase = PhaseWaitFrameEnd
		}
		s.arm(compare)
		RecordTiming(EvtPinLow, s.current, s.slots.Load(), compare, s.pulse)

	case PhaseWaitFrameEnd:
		s.arm(MaxTicks)
		s.phase = PhaseSetPinHigh
		s.slots.Add(1)
		RecordTiming(EvtFrameEnd, s.current, s.slots.Load(), MaxTicks, s.pulse)
	}
}

// arm schedules the next compare match wait ticks after a freshly reset
// counter. A counter reset onto the compare value would not match until it
// wrapped, so a zero wait parks the counter at MaxTicks and the match lands
// on the next tick. A wait of MaxTicks+1 is exactly one counter wrap. A
// match that happened while the handler was running is discarded.
func (s *PulseScheduler) arm(wait uint32) {
	switch {
	case wait == 0:
		s.timer.SetCompare(0)
		s.timer.SetCounter(MaxTicks)
	case wait > MaxTicks:
		s.timer.SetCompare(0)
		s.timer.SetCounter(0)
	default:
		s.timer.SetCompare(uint8(wait))
		s.timer.SetCounter(0)
	}
	s.timer.ClearCompareFlag()
}

// Snapshot returns the channel owning the current slot and the phase that
// runs on the next compare match.
func (s *PulseScheduler) Snapshot() (uint8, Phase) {
	state := disableInterrupts()
	current, phase := s.current, s.phase
	restoreInterrupts(state)
	return current, phase
}

// Slots returns the number of channel slots completed since construction
func (s *PulseScheduler) Slots() uint32 {
	return s.slots.Load()
}

// Table returns the channel table the scheduler reads
func (s *PulseScheduler) Table() *ChannelTable {
	return s.table
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
