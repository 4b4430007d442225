package sim

import "servomux/core"

// Pulse is the last complete high pulse seen on a pin
type Pulse struct {
	Start  uint64 // tick of the rising edge
	Ticks  uint32 // high time in ticks
	Period uint32 // ticks between the last two rising edges
}

// Micros returns the high time in microseconds
func (p Pulse) Micros() uint32 {
	return core.TicksToUS(p.Ticks)
}

// TraceGPIO is a core.GPIODriver that measures the pulses on each channel
// pin against the simulated clock.
type TraceGPIO struct {
	clock  *core.SimTimer
	index  map[core.GPIOPin]int
	level  []bool
	rise   []uint64
	pulses [core.NumChannels]Pulse
}

// NewTraceGPIO traces the given channel pins
func NewTraceGPIO(clock *core.SimTimer, pins [core.NumChannels]core.GPIOPin) *TraceGPIO {
	g := &TraceGPIO{
		clock: clock,
		index: make(map[core.GPIOPin]int),
		level: make([]bool, core.NumChannels),
		rise:  make([]uint64, core.NumChannels),
	}
	for i, pin := range pins {
		g.index[pin] = i
	}
	return g
}

func (g *TraceGPIO) ConfigureOutput(pin core.GPIOPin) error {
	i, ok := g.index[pin]
	if !ok {
		return errUnknownPin
	}
	g.level[i] = false
	return nil
}

func (g *TraceGPIO) SetPin(pin core.GPIOPin, value bool) error {
	i, ok := g.index[pin]
	if !ok {
		return errUnknownPin
	}
	now := g.clock.Now()
	switch {
	case value && !g.level[i]:
		if g.rise[i] != 0 {
			g.pulses[i].Period = uint32(now - g.rise[i])
		}
		g.rise[i] = now
	case !value && g.level[i]:
		g.pulses[i].Start = g.rise[i]
		g.pulses[i].Ticks = uint32(now - g.rise[i])
	}
	g.level[i] = value
	return nil
}

// Level returns the current output level of channel ch
func (g *TraceGPIO) Level(ch int) bool {
	return g.level[ch]
}

// Pulses returns the last measured pulse of every channel
func (g *TraceGPIO) Pulses() [core.NumChannels]Pulse {
	return g.pulses
}

type simError string

func (e simError) Error() string { return string(e) }

const errUnknownPin = simError("pin is not a channel output")
