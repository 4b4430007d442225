package core

// Timer geometry for the reference clock: an 8MHz core clock with the
// compare timer prescaled by 64, so one tick is 8us.
const (
	CPUFrequency = 8000000
	Prescaler    = 64
	TickMicros   = Prescaler * 1000000 / CPUFrequency
)

// Scheduler tick budget. All values are in timer ticks.
const (
	// PreRollTicks is the fixed part of every pulse; the programmed pulse
	// ticks are added on top of it.
	PreRollTicks = 64

	// ISRTrimTicks compensates for the cycles spent inside the compare
	// handler before the counter is reset. Subtracted once per slot.
	ISRTrimTicks = 4

	// MaxTicks is the largest value the 8-bit compare register holds.
	MaxTicks = 255

	// FrameTicks is the length of one channel slot.
	FrameTicks = 512
)

// TicksFromUS converts microseconds to timer ticks, truncating
func TicksFromUS(us uint32) uint32 {
	return us / TickMicros
}

// TicksToUS converts timer ticks to microseconds
func TicksToUS(ticks uint32) uint32 {
	return ticks * TickMicros
}

// SlotMicros returns the nominal length of one channel slot in microseconds
func SlotMicros() uint32 {
	return TicksToUS(FrameTicks)
}

// FrameMicros returns the nominal refresh period of every channel
func FrameMicros() uint32 {
	return SlotMicros() * NumChannels
}
