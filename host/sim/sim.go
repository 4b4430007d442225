// Package sim runs the controller firmware on the host: the real channel
// table, register file, scheduler and line session driven by a simulated
// compare timer.
package sim

import (
	"context"
	"io"
	"sync"
	"time"

	"servomux/config"
	"servomux/core"
	"servomux/driver"
	"servomux/linecmd"
	"servomux/protocol"
)

// TicksPerMillisecond is the simulated timer rate
const TicksPerMillisecond = 1000 / core.TickMicros

// Device is one simulated controller. All methods are safe for concurrent
// use; the firmware parts run under one lock, the way they share one core
// on the device.
type Device struct {
	mu sync.Mutex

	table   *core.ChannelTable
	regs    *core.RegisterFile
	sched   *core.PulseScheduler
	timer   *core.SimTimer
	gpio    *TraceGPIO
	session *linecmd.Session
	bus     *driver.Loopback
	cfg     *config.DeviceConfig

	// Tick at which a requested reset completes; zero when none is pending
	resetAt uint64
	boots   int
}

// New builds a device from cfg, replying to line commands on out. A nil
// cfg uses config.DefaultConfig.
func New(cfg *config.DeviceConfig, out io.Writer) (*Device, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pins, err := cfg.Pins()
	if err != nil {
		return nil, err
	}

	d := &Device{
		table: core.NewChannelTable(),
		timer: core.NewSimTimer(),
		cfg:   cfg,
	}
	d.gpio = NewTraceGPIO(d.timer, pins)
	d.regs = core.NewRegisterFile(d.table)
	d.regs.SetResetHandler(d.requestReset)
	d.sched = core.NewPulseScheduler(d.table, d.timer, d.gpio, pins)
	d.session = linecmd.NewSession(d.regs, out)
	d.bus = driver.NewLoopback(cfg.I2CAddress, d.regs)

	if err := d.boot(); err != nil {
		return nil, err
	}
	return d, nil
}

// boot brings the firmware to its power-on state
func (d *Device) boot() error {
	d.table.Reset()
	if err := d.cfg.Apply(d.table); err != nil {
		return err
	}
	d.session.Parser().Reset()
	d.regs.Resume()
	d.resetAt = 0
	d.boots++
	return d.sched.Start()
}

// requestReset runs from the register file with d.mu held
func (d *Device) requestReset() {
	core.DebugPrintln("[SIM] reset in " + core.ResetDelay.String())
	d.resetAt = d.timer.Now() + uint64(core.TicksFromUS(uint32(core.ResetDelay/time.Microsecond)))
}

// Hello writes the start-up banner
func (d *Device) Hello() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.session.Hello()
}

// Feed hands received serial bytes to the line session
func (d *Device) Feed(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.session.Receive(protocol.NewSliceInputBuffer(data))
}

// Advance runs the timer for n ticks, calling the compare handler on every
// match. A pending reset completes once its delay has elapsed.
func (d *Device) Advance(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < n; i++ {
		if d.resetAt != 0 && d.timer.Now() >= d.resetAt {
			if err := d.boot(); err != nil {
				core.DebugPrintln("[SIM] boot failed: " + err.Error())
			}
			d.session.Hello()
		}
		d.timer.Run(1, d.sched.HandleCompareMatch)
	}
}

// Run advances the timer in real time until ctx is done
func (d *Device) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Advance(TicksPerMillisecond)
		}
	}
}

// Snapshot reports the scheduler position
func (d *Device) Snapshot() (uint8, core.Phase) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sched.Snapshot()
}

// Now returns the simulated time in ticks
func (d *Device) Now() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer.Now()
}

// Boots counts start-ups, the first one included
func (d *Device) Boots() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.boots
}

// Pulses returns the last measured output pulse of every channel
func (d *Device) Pulses() [core.NumChannels]Pulse {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gpio.Pulses()
}

// Table exposes the channel table for inspection
func (d *Device) Table() *core.ChannelTable {
	return d.table
}

// Tx implements drivers.I2C, so a driver.Device can talk to the simulated
// controller as a bus master at the configured address.
func (d *Device) Tx(addr uint16, w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bus.Tx(addr, w, r)
}

// DumpTiming writes the scheduler timing ring through the debug writer
func (d *Device) DumpTiming() {
	d.mu.Lock()
	defer d.mu.Unlock()
	core.DumpTimingRing()
}
