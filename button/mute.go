package button

import (
	"sync/atomic"

	"github.com/ardnew/usbmic/pkg"
)

// MuteController latches a mute state from a momentary button.
//
// The first press mutes immediately; its release is ignored. The next
// release after that unmutes. IsMuted is safe to call from interrupt
// context.
type MuteController struct {
	input *Debouncer

	muted           atomic.Bool
	suppressRelease bool

	onChange func(muted bool)
}

// NewMuteController returns an unmuted controller reading input.
func NewMuteController(input *Debouncer) *MuteController {
	return &MuteController{input: input}
}

// SetOnChange registers a function called from Run when the mute state
// changes.
func (m *MuteController) SetOnChange(fn func(muted bool)) {
	m.onChange = fn
}

// IsMuted returns the latched state.
func (m *MuteController) IsMuted() bool { return m.muted.Load() }

// Run polls the button once and applies the toggle rule.
// Call it from the foreground loop only.
func (m *MuteController) Run() {
	m.Apply(m.input.PollAndClear())
}

// Apply applies one debounced event.
func (m *MuteController) Apply(event Event) {
	switch event {
	case EventDown:
		if !m.muted.Load() {
			m.muted.Store(true)
			m.suppressRelease = true
			m.changed(true)
		}
	case EventUp:
		if m.muted.Load() {
			if m.suppressRelease {
				m.suppressRelease = false
			} else {
				m.muted.Store(false)
				m.changed(false)
			}
		}
	}
}

func (m *MuteController) changed(muted bool) {
	pkg.LogDebug(pkg.ComponentButton, "mute changed", "muted", muted)
	if m.onChange != nil {
		m.onChange(muted)
	}
}
