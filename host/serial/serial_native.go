//go:build !tinygo

package serial

import (
	"errors"
	"fmt"

	"github.com/tarm/serial"
)

// uartPort is a controller link over a host UART
type uartPort struct {
	*serial.Port
	device string
}

// Open opens the controller UART described by cfg
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errors.New("serial: nil config")
	}
	if cfg.Device == "" {
		return nil, errors.New("serial: no device given")
	}
	c := cfg.withDefaults()

	port, err := serial.OpenPort(&serial.Config{
		Name:        c.Device,
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", c.Device, err)
	}
	return &uartPort{Port: port, device: c.Device}, nil
}

// String returns the device path
func (p *uartPort) String() string {
	return p.device
}
