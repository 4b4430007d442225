// Package config loads the device configuration: bus address, serial
// speed and per-channel pins and calibration.
package config

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"servomux/core"
)

// Defaults for a bare configuration
const (
	DefaultI2CAddress = 0x40
	DefaultBaud       = 115200
)

// ChannelConfig describes one servo output
type ChannelConfig struct {
	Pin     string // GPIO pin name, e.g. "gpio2"
	MinUS   uint16 // Pulse width at 0 degrees
	MaxUS   uint16 // Pulse width at 180 degrees
	PulseUS uint32 // Initial pulse width (0 = leave at default)
	Enabled bool   // Drive the output from start-up
}

// DeviceConfig is the complete device configuration
type DeviceConfig struct {
	I2CAddress uint16
	Baud       uint32
	Debug      bool
	Channels   []ChannelConfig
}

// LoadConfig parses a JSON configuration and fills in defaults
func LoadConfig(jsonData []byte) (*DeviceConfig, error) {
	var config DeviceConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *DeviceConfig) {
	if config.I2CAddress == 0 {
		config.I2CAddress = DefaultI2CAddress
	}
	if config.Baud == 0 {
		config.Baud = DefaultBaud
	}

	// Missing channels get the default pin layout
	defaults := DefaultConfig().Channels
	for i := len(config.Channels); i < core.NumChannels; i++ {
		config.Channels = append(config.Channels, defaults[i])
	}

	for i := range config.Channels {
		ch := &config.Channels[i]
		if ch.Pin == "" && i < len(defaults) {
			ch.Pin = defaults[i].Pin
		}
		if ch.MinUS == 0 {
			ch.MinUS = core.DefaultMinUS
		}
		if ch.MaxUS == 0 {
			ch.MaxUS = core.DefaultMaxUS
		}
	}
}

// defaultPins keeps clear of the UART0, I2C0 and UART1 pins of the
// reference board.
var defaultPins = [core.NumChannels]int{2, 3, 6, 7}

// DefaultConfig returns the reference board layout with every channel
// disabled.
func DefaultConfig() *DeviceConfig {
	config := &DeviceConfig{
		I2CAddress: DefaultI2CAddress,
		Baud:       DefaultBaud,
	}
	for _, pin := range defaultPins {
		config.Channels = append(config.Channels, ChannelConfig{
			Pin:   "gpio" + strconv.Itoa(pin),
			MinUS: core.DefaultMinUS,
			MaxUS: core.DefaultMaxUS,
		})
	}
	return config
}

// Validate checks the configuration against the hardware limits
func (c *DeviceConfig) Validate() error {
	if c.I2CAddress < 0x08 || c.I2CAddress > 0x77 {
		return errors.New("i2c address out of range: " + strconv.Itoa(int(c.I2CAddress)))
	}
	if len(c.Channels) != core.NumChannels {
		return errors.New("expected " + strconv.Itoa(core.NumChannels) + " channels, got " + strconv.Itoa(len(c.Channels)))
	}

	seen := make(map[core.GPIOPin]int)
	for i, ch := range c.Channels {
		name := "channel " + strconv.Itoa(i)
		pin, err := ParsePin(ch.Pin)
		if err != nil {
			return errors.New(name + ": " + err.Error())
		}
		if other, dup := seen[pin]; dup {
			return errors.New(name + ": pin " + ch.Pin + " already used by channel " + strconv.Itoa(other))
		}
		seen[pin] = i

		if ch.MinUS == 0 || ch.MinUS >= ch.MaxUS {
			return errors.New(name + ": invalid pulse range")
		}
		if ch.PulseUS != 0 {
			low := uint32(core.PreRollTicks * core.TickMicros)
			high := uint32((core.PreRollTicks+core.MaxTicks+1)*core.TickMicros - 1)
			if ch.PulseUS < low || ch.PulseUS > high {
				return errors.New(name + ": pulse width out of range")
			}
		}
	}
	return nil
}

// Pins returns the channel pins in channel order
func (c *DeviceConfig) Pins() ([core.NumChannels]core.GPIOPin, error) {
	var pins [core.NumChannels]core.GPIOPin
	if len(c.Channels) != core.NumChannels {
		return pins, errors.New("channel count mismatch")
	}
	for i, ch := range c.Channels {
		pin, err := ParsePin(ch.Pin)
		if err != nil {
			return pins, err
		}
		pins[i] = pin
	}
	return pins, nil
}

// Apply pushes calibration, initial pulse widths and enables into table
func (c *DeviceConfig) Apply(table *core.ChannelTable) error {
	for i, ch := range c.Channels {
		if i >= core.NumChannels {
			break
		}
		idx := uint8(i)
		if err := table.SetRange(idx, ch.MinUS, ch.MaxUS); err != nil {
			return err
		}
		if ch.PulseUS != 0 {
			if err := table.SetPulseWidthUS(idx, ch.PulseUS); err != nil {
				return err
			}
		}
		if ch.Enabled {
			if err := table.Enable(idx); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParsePin converts a pin name ("gpio15", "GP15" or "15") to a pin number
func ParsePin(name string) (core.GPIOPin, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasPrefix(s, "gpio"):
		s = s[4:]
	case strings.HasPrefix(s, "gp"):
		s = s[2:]
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, errors.New("invalid pin name: " + name)
	}
	return core.GPIOPin(n), nil
}
