//go:build rp2040

package main

import (
	"machine"

	"servomux/core"
)

// I2C target pins: I2C0 on its default SDA=GP4, SCL=GP5
var (
	i2cBus = machine.I2C0
	i2cSDA = machine.GP4
	i2cSCL = machine.GP5
)

// InitI2CTarget puts I2C0 in target mode at addr
func InitI2CTarget(addr uint16) error {
	err := i2cBus.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       i2cSDA,
		SCL:       i2cSCL,
		Mode:      machine.I2CModeTarget,
	})
	if err != nil {
		return err
	}
	return i2cBus.Listen(uint8(addr))
}

// i2cTargetLoop answers bus transactions from the register file. It runs
// on its own goroutine and never touches the scheduler directly.
func i2cTargetLoop(target *core.BusTarget) {
	buf := make([]byte, 8)
	reply := make([]byte, 1)

	for {
		evt, n, err := i2cBus.WaitForEvent(buf)
		if err != nil {
			core.DebugAsync("[I2C] " + err.Error())
			continue
		}

		switch evt {
		case machine.I2CReceive:
			target.Receive(buf[:n])
		case machine.I2CRequest:
			reply[0] = target.Request()
			if err := i2cBus.Reply(reply); err != nil {
				core.DebugAsync("[I2C] reply: " + err.Error())
			}
		case machine.I2CFinish:
		}
	}
}
