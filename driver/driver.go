// Package driver is the bus-master side of the servo controller: it talks
// to the register interface over any tinygo.org/x/drivers I2C bus.
package driver

import (
	"servomux/core"
	"servomux/errcode"

	"tinygo.org/x/drivers"
)

// Address is the default 7-bit bus address of the controller
const Address = 0x40

// Device is a servo controller on an I2C bus. Not safe for concurrent use.
type Device struct {
	i2c  drivers.I2C
	addr uint16
	w    [2]byte
	r    [1]byte
}

// New returns a device at addr on bus. It performs no I/O.
func New(bus drivers.I2C, addr uint16) *Device {
	if addr == 0 {
		addr = Address
	}
	return &Device{i2c: bus, addr: addr}
}

func (d *Device) readReg(reg uint8) (uint8, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) writeReg(reg, val uint8) error {
	d.w[0] = reg
	d.w[1] = val
	return d.i2c.Tx(d.addr, d.w[:2], nil)
}

func checkChannel(op string, ch uint8) error {
	if int(ch) >= core.NumChannels {
		return &errcode.E{C: errcode.InvalidIndex, Op: op}
	}
	return nil
}

// Enable starts driving channel ch
func (d *Device) Enable(ch uint8) error {
	if err := checkChannel("enable", ch); err != nil {
		return err
	}
	return d.writeReg(core.RegEnable0+ch, 1)
}

// Disable stops driving channel ch
func (d *Device) Disable(ch uint8) error {
	if err := checkChannel("disable", ch); err != nil {
		return err
	}
	return d.writeReg(core.RegEnable0+ch, 0)
}

// Enabled reports whether channel ch is driven
func (d *Device) Enabled(ch uint8) (bool, error) {
	if err := checkChannel("enabled", ch); err != nil {
		return false, err
	}
	v, err := d.readReg(core.RegEnable0 + ch)
	if err != nil {
		return false, err
	}
	if v == core.RegUnmapped {
		return false, errcode.Halted
	}
	return v != 0, nil
}

// SetAngle moves channel ch to deg degrees, 0..180
func (d *Device) SetAngle(ch uint8, deg uint8) error {
	if err := checkChannel("set_angle", ch); err != nil {
		return err
	}
	if deg > core.MaxDegrees {
		return &errcode.E{C: errcode.InvalidValue, Op: "set_angle"}
	}
	return d.writeReg(core.RegDegrees0+ch, deg)
}

// Angle returns the position of channel ch in degrees
func (d *Device) Angle(ch uint8) (uint8, error) {
	if err := checkChannel("angle", ch); err != nil {
		return 0, err
	}
	v, err := d.readReg(core.RegDegrees0 + ch)
	if err != nil {
		return 0, err
	}
	if v > core.MaxDegrees {
		return 0, errcode.Halted
	}
	return v, nil
}

// SetPulseTicks programs the raw pulse length of channel ch, in timer
// ticks beyond the fixed pre-roll.
func (d *Device) SetPulseTicks(ch uint8, ticks uint8) error {
	if err := checkChannel("set_ticks", ch); err != nil {
		return err
	}
	return d.writeReg(core.RegTicks0+ch, ticks)
}

// PulseTicks returns the raw pulse length of channel ch
func (d *Device) PulseTicks(ch uint8) (uint8, error) {
	if err := checkChannel("ticks", ch); err != nil {
		return 0, err
	}
	return d.readReg(core.RegTicks0 + ch)
}

// PulseWidthUS returns the pulse length of channel ch in microseconds
func (d *Device) PulseWidthUS(ch uint8) (uint32, error) {
	ticks, err := d.PulseTicks(ch)
	if err != nil {
		return 0, err
	}
	return core.TicksToUS(uint32(ticks) + core.PreRollTicks), nil
}

// Reset asks the controller to restart. It stops answering immediately and
// is back after core.ResetDelay plus its boot time.
func (d *Device) Reset() error {
	return d.writeReg(core.RegReset, 1)
}
