package core

// SimTimer models an 8-bit up-counter with one compare unit, the way the
// scheduler sees the hardware. It backs the host simulator and the tests.
type SimTimer struct {
	counter uint8
	compare uint8
	pending bool
	now     uint64
}

// NewSimTimer returns a stopped timer with the counter at 0 and the compare
// register at MaxTicks.
func NewSimTimer() *SimTimer {
	return &SimTimer{compare: MaxTicks}
}

// SetCompare programs the compare register. If the counter is already at
// the new value, the match is raised immediately; on hardware that is a
// match landing while the handler is still running.
func (t *SimTimer) SetCompare(value uint8) {
	t.compare = value
	if t.counter == value {
		t.pending = true
	}
}

// SetCounter overwrites the counter
func (t *SimTimer) SetCounter(value uint8) {
	t.counter = value
}

// ClearCompareFlag drops a pending match
func (t *SimTimer) ClearCompareFlag() {
	t.pending = false
}

// Tick advances the counter by one timer tick and reports whether a
// compare match is pending afterwards.
func (t *SimTimer) Tick() bool {
	t.now++
	t.counter++
	if t.counter == t.compare {
		t.pending = true
	}
	return t.pending
}

// Run advances n ticks and calls handler on every compare match, after
// clearing the match flag the way entering the interrupt does.
func (t *SimTimer) Run(n int, handler func()) {
	for i := 0; i < n; i++ {
		if t.Tick() {
			t.pending = false
			handler()
		}
	}
}

// RunUntil ticks until handler has been called events times and returns the
// number of ticks that took.
func (t *SimTimer) RunUntil(events int, handler func()) uint64 {
	start := t.now
	for events > 0 {
		if t.Tick() {
			t.pending = false
			handler()
			events--
		}
	}
	return t.now - start
}

// Now returns the number of ticks since the timer was created
func (t *SimTimer) Now() uint64 {
	return t.now
}

// Counter returns the current counter value
func (t *SimTimer) Counter() uint8 {
	return t.counter
}

// Compare returns the programmed compare value
func (t *SimTimer) Compare() uint8 {
	return t.compare
}

// Pending reports whether a compare match is waiting to be serviced
func (t *SimTimer) Pending() bool {
	return t.pending
}
