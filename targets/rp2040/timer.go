//go:build rp2040

package main

import (
	"device/arm"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"servomux/core"
)

// RP2040 TIMER peripheral. The TinyGo runtime sleeps on alarm 0; the
// scheduler owns alarm 3.
const (
	timerBase     = 0x40054000
	timerALARM3   = timerBase + 0x1C
	timerTIMERAWL = timerBase + 0x28
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38

	alarmBit = 1 << 3
)

var (
	timerAlarm = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM3)))
	timerRAWL  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerIntr  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

// AlarmTimer implements core.CompareTimer on the 1MHz RP2040 system timer.
// It models an 8-bit counter advancing every core.TickMicros: the counter
// is the elapsed time since base, and the alarm is set for the next
// instant the counter reaches the compare value.
type AlarmTimer struct {
	base    uint32 // microsecond timestamp of counter 0
	compare uint8
	handler func()
}

// NewAlarmTimer creates a stopped timer; the counter starts at 0 now
func NewAlarmTimer() *AlarmTimer {
	return &AlarmTimer{base: timerRAWL.Get(), compare: core.MaxTicks}
}

func (t *AlarmTimer) counter(now uint32) uint8 {
	return uint8((now - t.base) / core.TickMicros)
}

// SetCompare programs the compare value and re-arms the alarm
func (t *AlarmTimer) SetCompare(value uint8) {
	t.compare = value
	t.rearm()
}

// SetCounter moves the counter to value and re-arms the alarm
func (t *AlarmTimer) SetCounter(value uint8) {
	now := timerRAWL.Get()
	t.base = now - uint32(value)*core.TickMicros
	t.rearm()
}

// ClearCompareFlag drops a match raised while the handler was running
func (t *AlarmTimer) ClearCompareFlag() {
	timerIntr.Set(alarmBit)
	arm.ClearPendingIRQ(irqTimer3)
}

// rearm schedules the alarm for the next tick on which the counter equals
// the compare value, one full wrap away if it already does.
func (t *AlarmTimer) rearm() {
	now := timerRAWL.Get()
	elapsed := (now - t.base) / core.TickMicros
	ahead := uint32(t.compare-t.counter(now)) & core.MaxTicks
	if ahead == 0 {
		ahead = core.MaxTicks + 1
	}
	timerAlarm.Set(t.base + (elapsed+ahead)*core.TickMicros)
}

// Start enables the alarm interrupt, calling handler on every match
func (t *AlarmTimer) Start(handler func()) {
	t.handler = handler
	alarmTimer = t
	timerInte.SetBits(alarmBit)
	intr := interrupt.New(irqTimer3, handleAlarm)
	intr.SetPriority(0x00)
	intr.Enable()
}

const irqTimer3 = 3

var alarmTimer *AlarmTimer

func handleAlarm(interrupt.Interrupt) {
	timerIntr.Set(alarmBit)
	if alarmTimer != nil && alarmTimer.handler != nil {
		alarmTimer.handler()
	}
}
