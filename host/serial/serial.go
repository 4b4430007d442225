// Package serial opens the UART link to a servomux controller.
package serial

import (
	"io"
	"time"
)

// Port is a serial connection to the controller
type Port interface {
	io.ReadWriteCloser

	// Flush drops anything queued in either direction
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the controller UART
	Baud int

	// ReadTimeout bounds a single Read; zero blocks. The controller only
	// talks in reply to a command, so a bounded read keeps the link reader
	// responsive to Close.
	ReadTimeout time.Duration
}

const (
	// DefaultBaud matches the firmware UART configuration
	DefaultBaud = 115200

	// DefaultReadTimeout is the per-read bound used by DefaultConfig
	DefaultReadTimeout = 100 * time.Millisecond
)

// DefaultConfig returns the configuration for a controller on device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Baud <= 0 {
		out.Baud = DefaultBaud
	}
	if out.ReadTimeout < 0 {
		out.ReadTimeout = 0
	}
	return out
}
