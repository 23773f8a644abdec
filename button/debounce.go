package button

import (
	"github.com/ardnew/usbmic/gpio"
	"github.com/ardnew/usbmic/hal"
)

// Default debounce thresholds in milliseconds.
const (
	DefaultPressDelay   = 1
	DefaultReleaseDelay = 100
)

// Event is a confirmed transition reported by a Debouncer.
type Event uint8

// Debouncer events.
const (
	EventNone Event = iota
	EventUp
	EventDown
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventUp:
		return "up"
	case EventDown:
		return "down"
	default:
		return "unknown"
	}
}

// State is the debounce state.
type State uint8

// Debouncer states.
const (
	StateIdle State = iota
	StateDebounceUp
	StateDebounceDown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebounceUp:
		return "debounce-up"
	case StateDebounceDown:
		return "debounce-down"
	default:
		return "unknown"
	}
}

// Debouncer turns a noisy digital input into press and release events.
//
// A new raw level must hold for longer than the delay of its direction
// before the matching event is reported, once. A level that settles back
// to the one last reported produces no event.
type Debouncer struct {
	line  gpio.Line
	clock hal.Clock

	pressDelay   uint32
	releaseDelay uint32

	state     State
	last      bool   // last raw reading
	changedAt uint32 // time of the last raw change
	confirmed bool   // last reported level
}

// NewDebouncer returns a debouncer reading line against clock. The input is
// assumed released at construction.
func NewDebouncer(line gpio.Line, clock hal.Clock, pressDelay, releaseDelay uint32) *Debouncer {
	return &Debouncer{
		line:         line,
		clock:        clock,
		pressDelay:   pressDelay,
		releaseDelay: releaseDelay,
	}
}

// State returns the current debounce state.
func (d *Debouncer) State() State { return d.state }

// Pressed returns the last confirmed level.
func (d *Debouncer) Pressed() bool { return d.confirmed }

// PollAndClear samples the line and advances the state machine.
func (d *Debouncer) PollAndClear() Event {
	return d.Update(d.line.Active(), d.clock.Millis())
}

// Update advances the state machine with a raw reading taken at now
// (milliseconds, wrapping).
func (d *Debouncer) Update(raw bool, now uint32) Event {
	if raw != d.last {
		d.last = raw
		d.changedAt = now
		if raw {
			d.state = StateDebounceDown
		} else {
			d.state = StateDebounceUp
		}
		return EventNone
	}

	var delay uint32
	var event Event
	switch d.state {
	case StateDebounceDown:
		delay, event = d.pressDelay, EventDown
	case StateDebounceUp:
		delay, event = d.releaseDelay, EventUp
	default:
		return EventNone
	}

	if now-d.changedAt <= delay {
		return EventNone
	}

	d.state = StateIdle
	if raw == d.confirmed {
		return EventNone
	}
	d.confirmed = raw
	return event
}
