package gpio

import (
	"sync"
	"testing"

	"github.com/ardnew/usbmic/hal/sim"
)

func TestLine_Polarity(t *testing.T) {
	tests := []struct {
		name      string
		activeLow bool
		level     bool
		want      bool
	}{
		{"active-high high", false, true, true},
		{"active-high low", false, false, false},
		{"active-low high", true, true, false},
		{"active-low low", true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pin := sim.NewPin(tt.level)
			line := NewLine(pin)
			if tt.activeLow {
				line = NewActiveLowLine(pin)
			}
			if got := line.Active(); got != tt.want {
				t.Errorf("Active() = %v, want %v", got, tt.want)
			}

			line.SetActive(true)
			if pin.Get() == tt.activeLow {
				t.Errorf("SetActive(true) drove level %v", pin.Get())
			}
		})
	}
}

func TestLed(t *testing.T) {
	pin := sim.NewPin(true)
	led := NewLiveLed(pin)
	if led.IsOn() || pin.Get() {
		t.Fatal("new LED should be off")
	}

	led.On()
	if !led.IsOn() || !pin.Get() {
		t.Error("On() should light the LED")
	}
	led.Toggle()
	if led.IsOn() || pin.Get() {
		t.Error("Toggle() should extinguish a lit LED")
	}
	led.Toggle()
	if !pin.Get() {
		t.Error("second Toggle() should light the LED")
	}
	led.Set(false)
	if pin.Get() {
		t.Error("Set(false) should extinguish the LED")
	}
}

func TestLinkLed(t *testing.T) {
	pin := sim.NewPin(false)
	led := NewLinkLed(pin)
	led.On()
	if !pin.Get() {
		t.Error("link LED should be active-high")
	}
}

func TestLed_ConcurrentToggle(t *testing.T) {
	led := NewLinkLed(sim.NewPin(false))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				led.Toggle()
			}
		}()
	}
	wg.Wait()

	// An even number of toggles leaves the LED where it started.
	if led.IsOn() {
		t.Error("LED on after an even number of toggles")
	}
}
