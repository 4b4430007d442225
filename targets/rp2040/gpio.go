//go:build rp2040

package main

import (
	"errors"
	"machine"

	"servomux/core"
)

const numGPIO = 30

// RPGPIODriver implements core.GPIODriver for the RP2040. SetPin runs in
// the compare interrupt, so pins live in a fixed table rather than a map.
type RPGPIODriver struct {
	pins       [numGPIO]machine.Pin
	configured uint32 // bit per GPIO
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{}
}

// ConfigureOutput configures a pin as a digital output, driven low
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if pin >= numGPIO {
		return errors.New("no such gpio")
	}

	// RP2040 GPIO numbers map directly to machine.Pin
	machinePin := machine.Pin(pin)
	machinePin.Low()
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	d.pins[pin] = machinePin
	d.configured |= 1 << pin
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	if pin >= numGPIO || d.configured&(1<<pin) == 0 {
		return errors.New("gpio not configured")
	}
	d.pins[pin].Set(value)
	return nil
}
