package button

import (
	"testing"

	"github.com/ardnew/usbmic/gpio"
	"github.com/ardnew/usbmic/hal/sim"
)

// press simulates a clean press held for hold ms, sampled every ms, and
// returns the time of each non-None event.
func press(d *Debouncer, start, hold, settle uint32) map[Event][]uint32 {
	events := make(map[Event][]uint32)
	for i := uint32(0); i < hold+settle; i++ {
		now := start + i
		if e := d.Update(i < hold, now); e != EventNone {
			events[e] = append(events[e], now)
		}
	}
	return events
}

func TestDebouncer_PressAndRelease(t *testing.T) {
	d := NewDebouncer(gpio.Line{}, nil, DefaultPressDelay, DefaultReleaseDelay)
	events := press(d, 0, 150, 200)

	if len(events[EventDown]) != 1 || len(events[EventUp]) != 1 {
		t.Fatalf("events = %v, want one Down and one Up", events)
	}
	if got := events[EventDown][0]; got != 2 {
		t.Errorf("Down at %d ms, want 2", got)
	}
	if got := events[EventUp][0]; got <= 150+DefaultReleaseDelay {
		t.Errorf("Up at %d ms, want after %d", got, 150+DefaultReleaseDelay)
	}
	if d.State() != StateIdle {
		t.Errorf("State() = %v, want idle", d.State())
	}
}

func TestDebouncer_Thresholds(t *testing.T) {
	tests := []struct {
		name     string
		press    uint32
		release  uint32
		hold     uint32
		wantDown bool
	}{
		{"shorter than press delay", 5, 100, 5, false},
		{"longer than press delay", 5, 100, 7, true},
		{"exactly press delay", 5, 100, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(gpio.Line{}, nil, tt.press, tt.release)
			events := press(d, 10, tt.hold, 300)
			gotDown := len(events[EventDown]) > 0
			if gotDown != tt.wantDown {
				t.Errorf("Down reported = %v, want %v (events %v)", gotDown, tt.wantDown, events)
			}
			if !gotDown && len(events[EventUp]) > 0 {
				t.Errorf("Up reported without Down: %v", events)
			}
			for _, at := range events[EventDown] {
				if at-10 <= tt.press {
					t.Errorf("Down at %d before threshold", at)
				}
			}
		})
	}
}

func TestDebouncer_Bounce(t *testing.T) {
	d := NewDebouncer(gpio.Line{}, nil, 1, 100)

	// Contact chatter for a few ms, then held.
	raw := []bool{true, false, true, false, true, true, true, true}
	var downs int
	for i, r := range raw {
		if d.Update(r, uint32(i)) == EventDown {
			downs++
		}
	}
	if downs != 1 {
		t.Errorf("Down reported %d times, want 1", downs)
	}

	// Release chatter shorter than the release delay never reports Up.
	for now := uint32(10); now < 400; now++ {
		r := (now/30)%2 == 0
		if d.Update(r, now) == EventUp {
			t.Fatalf("Up at %d during chatter", now)
		}
	}
}

func TestDebouncer_ClockWrap(t *testing.T) {
	d := NewDebouncer(gpio.Line{}, nil, 1, 100)
	start := ^uint32(0) - 50
	events := press(d, start, 150, 200)
	if len(events[EventDown]) != 1 || len(events[EventUp]) != 1 {
		t.Fatalf("events across wrap = %v, want one Down and one Up", events)
	}
}

func TestDebouncer_PollAndClear(t *testing.T) {
	pin := sim.NewPin(true) // pull-up, released
	clock := sim.NewManualClock()
	d := NewDebouncer(gpio.NewActiveLowLine(pin), clock, 1, 100)

	if e := d.PollAndClear(); e != EventNone {
		t.Fatalf("idle poll = %v, want none", e)
	}

	pin.Drive(false)
	d.PollAndClear()
	clock.AdvanceMillis(2)
	if e := d.PollAndClear(); e != EventDown {
		t.Errorf("poll after hold = %v, want down", e)
	}
	if !d.Pressed() {
		t.Error("Pressed() should be true")
	}
}

func TestMuteController_Toggle(t *testing.T) {
	m := NewMuteController(nil)
	var changes []bool
	m.SetOnChange(func(muted bool) { changes = append(changes, muted) })

	steps := []struct {
		event Event
		want  bool
	}{
		{EventDown, true}, // first press mutes
		{EventUp, true},   // its release is ignored
		{EventDown, true}, // second press does nothing
		{EventUp, false},  // second release unmutes
		{EventUp, false},  // stray release while unmuted
		{EventDown, true}, // mute again
		{EventNone, true},
	}
	for i, s := range steps {
		m.Apply(s.event)
		if got := m.IsMuted(); got != s.want {
			t.Errorf("step %d (%v): IsMuted() = %v, want %v", i, s.event, got, s.want)
		}
	}

	want := []bool{true, false, true}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, changes[i], want[i])
		}
	}
}

func TestMuteController_Run(t *testing.T) {
	pin := sim.NewPin(true)
	clock := sim.NewManualClock()
	m := NewMuteController(NewDebouncer(gpio.NewActiveLowLine(pin), clock, 1, 100))

	hold := func(pressed bool, ms uint32) {
		pin.Drive(!pressed)
		for i := uint32(0); i < ms; i++ {
			m.Run()
			clock.AdvanceMillis(1)
		}
	}

	hold(true, 150)
	if !m.IsMuted() {
		t.Fatal("press should mute")
	}
	hold(false, 200)
	if !m.IsMuted() {
		t.Fatal("first release should keep mute")
	}
	hold(true, 150)
	hold(false, 200)
	if m.IsMuted() {
		t.Error("second press and release should unmute")
	}
}
