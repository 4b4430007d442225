//go:build rp2040

package main

import (
	_ "embed"
	"machine"
	"time"

	"servomux/config"
	"servomux/core"
	"servomux/linecmd"
	"servomux/protocol"
)

//go:embed servomux.json
var configJSON []byte

const heartbeat = 500 * time.Millisecond

func main() {
	// Disable the watchdog on boot; a register reset leaves it running
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	cfg, err := config.LoadConfig(configJSON)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	InitDebugUART(cfg.Debug)
	if err != nil {
		core.DebugPrintln("[BOOT] bad embedded config, using defaults: " + err.Error())
	}

	table := core.NewChannelTable()
	if err := cfg.Apply(table); err != nil {
		core.DebugPrintln("[BOOT] config: " + err.Error())
	}
	pins, err := cfg.Pins()
	if err != nil {
		core.DebugPrintln("[BOOT] pins: " + err.Error())
		return
	}

	// Scheduler on the compare interrupt
	timer := NewAlarmTimer()
	sched := core.NewPulseScheduler(table, timer, NewRPGPIODriver(), pins)
	if err := sched.Start(); err != nil {
		core.DebugPrintln("[BOOT] scheduler: " + err.Error())
		return
	}
	timer.Start(sched.HandleCompareMatch)

	regs := core.NewRegisterFile(table)
	regs.SetResetHandler(watchdogReset)

	// I2C register interface
	if err := InitI2CTarget(cfg.I2CAddress); err != nil {
		core.DebugPrintln("[BOOT] i2c: " + err.Error())
	} else {
		go i2cTargetLoop(core.NewBusTarget(regs))
	}

	// Line commands on the UART
	if err := InitUART(cfg.Baud); err != nil {
		core.DebugPrintln("[BOOT] uart: " + err.Error())
	}
	input := protocol.NewFifoBuffer(128)
	session := linecmd.NewSession(regs, cmdUART)
	session.Attach(input)
	go uartReaderLoop(input)
	session.Hello()

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	ledOn := false

	tick := time.NewTicker(heartbeat)
	for {
		select {
		case <-session.Ready():
			session.Poll()
		case <-tick.C:
			ledOn = !ledOn
			led.Set(ledOn)
		}
	}
}

// watchdogReset arms the watchdog so the chip restarts within
// core.ResetDelay. It returns at once so the reply to the reset write
// still goes out.
func watchdogReset() {
	core.DebugPrintln("[BOOT] reset in " + core.ResetDelay.String())
	err := machine.Watchdog.Configure(machine.WatchdogConfig{
		TimeoutMillis: uint32(core.ResetDelay / time.Millisecond),
	})
	if err != nil {
		return
	}
	_ = machine.Watchdog.Start()
}
