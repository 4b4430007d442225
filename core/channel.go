package core

import (
	"sync/atomic"

	"servomux/errcode"
)

// NumChannels is the number of servo outputs multiplexed on the timer.
// The register table in registers.go enumerates one entry per channel and
// must be extended alongside this constant.
const NumChannels = 4

// DefaultPulseTicks puts a freshly initialised channel near mid travel.
const DefaultPulseTicks = 128

// Channel is one servo output. Every field is published as a single word so
// the compare handler never observes a torn update.
type Channel struct {
	enabled    atomic.Bool
	pulseTicks atomic.Uint32 // 0..MaxTicks, high time beyond the pre-roll
	rangeUS    atomic.Uint32 // min<<16 | max
}

func packRange(minUS, maxUS uint16) uint32 {
	return uint32(minUS)<<16 | uint32(maxUS)
}

func (c *Channel) loadRange() (uint16, uint16) {
	r := c.rangeUS.Load()
	return uint16(r >> 16), uint16(r)
}

func (c *Channel) reset() {
	c.enabled.Store(false)
	c.pulseTicks.Store(DefaultPulseTicks)
	c.rangeUS.Store(packRange(DefaultMinUS, DefaultMaxUS))
}

// ChannelTable holds the configuration of every channel. It is allocated
// once and shared between the compare handler and normal context.
type ChannelTable struct {
	channels [NumChannels]Channel
}

// NewChannelTable returns a table with every channel disabled, at the
// default pulse width and the default range.
func NewChannelTable() *ChannelTable {
	t := &ChannelTable{}
	t.Reset()
	return t
}

// Reset restores power-on defaults on every channel
func (t *ChannelTable) Reset() {
	for i := range t.channels {
		t.channels[i].reset()
	}
}

func (t *ChannelTable) channel(op string, index uint8) (*Channel, error) {
	if int(index) >= NumChannels {
		return nil, &errcode.E{C: errcode.InvalidIndex, Op: op, Msg: "channel " + Utoa(uint32(index))}
	}
	return &t.channels[index], nil
}

// Enable lets the scheduler drive the channel, starting with its next slot
func (t *ChannelTable) Enable(index uint8) error {
	c, err := t.channel("enable", index)
	if err != nil {
		return err
	}
	c.enabled.Store(true)
	return nil
}

// Disable stops the scheduler from driving the channel. A pulse already
// in flight is still terminated.
func (t *ChannelTable) Disable(index uint8) error {
	c, err := t.channel("disable", index)
	if err != nil {
		return err
	}
	c.enabled.Store(false)
	return nil
}

// IsEnabled reports whether the channel is driven
func (t *ChannelTable) IsEnabled(index uint8) (bool, error) {
	c, err := t.channel("is_enabled", index)
	if err != nil {
		return false, err
	}
	return c.enabled.Load(), nil
}

// SetPositionDegrees moves the channel to 0..180 degrees by interpolating
// across its pulse range.
func (t *ChannelTable) SetPositionDegrees(index uint8, degrees uint8) error {
	c, err := t.channel("set_degrees", index)
	if err != nil {
		return err
	}
	if degrees > MaxDegrees {
		return &errcode.E{C: errcode.InvalidValue, Op: "set_degrees", Msg: Utoa(uint32(degrees)) + " > 180"}
	}
	minUS, maxUS := c.loadRange()
	return t.SetPulseWidthUS(index, degreesToUS(degrees, minUS, maxUS))
}

// PositionDegrees returns the current position, rounded to a whole degree
func (t *ChannelTable) PositionDegrees(index uint8) (uint8, error) {
	c, err := t.channel("get_degrees", index)
	if err != nil {
		return 0, err
	}
	minUS, maxUS := c.loadRange()
	return usToDegrees(pulseUS(c.pulseTicks.Load()), minUS, maxUS), nil
}

// SetPulseWidthUS sets the total high time. Widths that do not fit the
// compare register after removing the pre-roll are rejected and the
// previous value is kept.
func (t *ChannelTable) SetPulseWidthUS(index uint8, us uint32) error {
	c, err := t.channel("set_pulse_us", index)
	if err != nil {
		return err
	}
	ticks := int32(TicksFromUS(us)) - PreRollTicks
	if ticks < 0 || ticks > MaxTicks {
		return &errcode.E{C: errcode.InvalidValue, Op: "set_pulse_us", Msg: Utoa(us) + "us out of range"}
	}
	c.pulseTicks.Store(uint32(ticks))
	return nil
}

// PulseWidthUS returns the total high time in microseconds
func (t *ChannelTable) PulseWidthUS(index uint8) (uint32, error) {
	c, err := t.channel("get_pulse_us", index)
	if err != nil {
		return 0, err
	}
	return pulseUS(c.pulseTicks.Load()), nil
}

// SetPulseTicks writes the raw compare value used after the pre-roll
func (t *ChannelTable) SetPulseTicks(index uint8, ticks uint8) error {
	c, err := t.channel("set_ticks", index)
	if err != nil {
		return err
	}
	c.pulseTicks.Store(uint32(ticks))
	return nil
}

// PulseTicks returns the raw compare value used after the pre-roll
func (t *ChannelTable) PulseTicks(index uint8) (uint8, error) {
	c, err := t.channel("get_ticks", index)
	if err != nil {
		return 0, err
	}
	return uint8(c.pulseTicks.Load()), nil
}

// SetRange sets the pulse widths that correspond to 0 and 180 degrees.
// The current pulse width is left untouched.
func (t *ChannelTable) SetRange(index uint8, minUS, maxUS uint16) error {
	c, err := t.channel("set_range", index)
	if err != nil {
		return err
	}
	if minUS == 0 || minUS >= maxUS {
		return &errcode.E{C: errcode.InvalidValue, Op: "set_range", Msg: Utoa(uint32(minUS)) + ".." + Utoa(uint32(maxUS))}
	}
	c.rangeUS.Store(packRange(minUS, maxUS))
	return nil
}

// Range returns the pulse widths mapped to 0 and 180 degrees
func (t *ChannelTable) Range(index uint8) (uint16, uint16, error) {
	c, err := t.channel("get_range", index)
	if err != nil {
		return 0, 0, err
	}
	minUS, maxUS := c.loadRange()
	return minUS, maxUS, nil
}

func pulseUS(ticks uint32) uint32 {
	return TicksToUS(ticks + PreRollTicks)
}
