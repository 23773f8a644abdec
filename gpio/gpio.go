package gpio

import (
	"sync/atomic"

	"github.com/ardnew/usbmic/hal"
)

// Line is a digital line with a polarity.
//
// Active reports and drives the logical state; for an active-low line the
// electrical level is inverted.
type Line struct {
	pin       hal.Pin
	activeLow bool
}

// NewLine wraps an active-high pin.
func NewLine(pin hal.Pin) Line {
	return Line{pin: pin}
}

// NewActiveLowLine wraps a pin whose asserted level is low, such as a
// button to ground with a pull-up.
func NewActiveLowLine(pin hal.Pin) Line {
	return Line{pin: pin, activeLow: true}
}

// Active returns the logical state of the line.
func (l Line) Active() bool {
	return l.pin.Get() != l.activeLow
}

// SetActive drives the logical state of the line.
func (l Line) SetActive(active bool) {
	l.pin.Set(active != l.activeLow)
}

// Led is an indicator on an output line. It may be driven from the USB
// control loop and the foreground loop at once.
type Led struct {
	line Line
	on   atomic.Bool
}

// NewLed returns an LED driven by line, initially off.
func NewLed(line Line) *Led {
	l := &Led{line: line}
	l.Off()
	return l
}

// NewLiveLed returns the indicator showing audio is reaching the host.
func NewLiveLed(pin hal.Pin) *Led {
	return NewLed(NewLine(pin))
}

// NewLinkLed returns the indicator showing the host has initialized the
// audio function. It doubles as the fault indicator.
func NewLinkLed(pin hal.Pin) *Led {
	return NewLed(NewLine(pin))
}

// On lights the LED.
func (l *Led) On() { l.Set(true) }

// Off extinguishes the LED.
func (l *Led) Off() { l.Set(false) }

// Set lights or extinguishes the LED.
func (l *Led) Set(on bool) {
	l.on.Store(on)
	l.line.SetActive(on)
}

// Toggle inverts the LED.
func (l *Led) Toggle() {
	for {
		on := l.on.Load()
		if l.on.CompareAndSwap(on, !on) {
			l.line.SetActive(!on)
			return
		}
	}
}

// IsOn reports the last state written.
func (l *Led) IsOn() bool { return l.on.Load() }
