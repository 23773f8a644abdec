package firmware

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/dsp"
	"github.com/ardnew/usbmic/hal/sim"
	"github.com/ardnew/usbmic/pkg"
)

type testHardware struct {
	capture *sim.CaptureSource
	clock   *sim.ManualClock
	mute    *sim.Pin
	link    *sim.Pin
	live    *sim.Pin
	sent    atomic.Int64
	sinkErr atomic.Pointer[error]
}

func (h *testHardware) hardware() Hardware {
	return Hardware{
		Capture: h.capture,
		Clock:   h.clock,
		MutePin: h.mute,
		LinkPin: h.link,
		LivePin: h.live,
		Sink: audio.SinkFunc(func(block []int16, samples int) error {
			if err := h.sinkErr.Load(); err != nil {
				return *err
			}
			h.sent.Add(int64(samples))
			return nil
		}),
	}
}

func newTestProgram(t *testing.T, cfg Config) (*Program, *testHardware) {
	t.Helper()
	h := &testHardware{
		capture: sim.NewCaptureSource(sim.Constant(1000<<8), 0),
		clock:   sim.NewManualClock(),
		mute:    sim.NewPin(true), // pull-up, released
		link:    sim.NewPin(false),
		live:    sim.NewPin(false),
	}
	p, err := New(h.hardware(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, h
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"volume", func(c *Config) { c.Volume = 101 }},
		{"band", func(c *Config) { c.Equalizer[2] = 13 }},
		{"tick", func(c *Config) { c.Tick = 0 }},
		{"slow tick", func(c *Config) { c.Tick = 5 * time.Millisecond }},
		{"blink", func(c *Config) { c.BlinkPeriod = 0 }},
		{"format", func(c *Config) { c.Format.SampleRate = 44100 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, pkg.ErrInvalidParameter) {
				t.Errorf("Validate() = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestNew_IncompleteHardware(t *testing.T) {
	_, err := New(Hardware{}, DefaultConfig())
	if !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("New() = %v, want ErrInvalidParameter", err)
	}
}

func TestNew_AppliesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Volume = 0
	p, _ := newTestProgram(t, cfg)

	if got := p.Volume().Volume(); got != dsp.MinVolume {
		t.Errorf("initial volume = %d, want %d", got, dsp.MinVolume)
	}
	if got := p.Equalizer().Gains(); got != dsp.DefaultPreset {
		t.Errorf("equalizer = %v, want %v", got, dsp.DefaultPreset)
	}
	if p.LinkLed().IsOn() || p.LiveLed().IsOn() {
		t.Error("indicators should start off")
	}
}

func TestProgram_LiveIndicator(t *testing.T) {
	p, h := newTestProgram(t, DefaultConfig())
	ctl := p.Controls()

	p.Poll()
	if h.live.Get() {
		t.Fatal("live LED on while stopped")
	}

	if err := ctl.Init(48000, 100, 0); err != nil {
		t.Fatal(err)
	}
	if !h.link.Get() {
		t.Error("link LED off after Init")
	}
	if err := ctl.Record(); err != nil {
		t.Fatal(err)
	}
	p.Poll()
	if !h.live.Get() {
		t.Error("live LED off while recording")
	}

	ctl.Mute(1)
	p.Poll()
	if h.live.Get() {
		t.Error("live LED on while host muted")
	}
	ctl.Mute(0)

	ctl.Pause()
	p.Poll()
	if h.live.Get() {
		t.Error("live LED on while paused")
	}
}

func TestProgram_MuteButtonGatesCapture(t *testing.T) {
	p, h := newTestProgram(t, DefaultConfig())
	ctl := p.Controls()
	ctl.Init(48000, 100, 0)
	ctl.Record()

	h.capture.Step()
	if got := h.sent.Load(); got != 480 {
		t.Fatalf("sent = %d samples, want 480", got)
	}

	// Press and hold the button.
	h.mute.Drive(false)
	for i := 0; i < 5; i++ {
		p.Poll()
		h.clock.AdvanceMillis(1)
	}
	if !p.Mute().IsMuted() {
		t.Fatal("button press did not mute")
	}
	if h.live.Get() {
		t.Error("live LED on while button muted")
	}

	h.capture.Step()
	if got := h.sent.Load(); got != 480 {
		t.Errorf("sent = %d samples while muted, want 480", got)
	}
	if got := p.Pipeline().Stats().Skipped; got != 1 {
		t.Errorf("Skipped = %d, want 1", got)
	}
}

func TestProgram_RunStopsWithContext(t *testing.T) {
	p, _ := newTestProgram(t, DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := p.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v, want DeadlineExceeded", err)
	}
}

func TestProgram_FatalHalts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlinkPeriod = 5 * time.Millisecond
	p, h := newTestProgram(t, cfg)
	ctl := p.Controls()
	ctl.Init(48000, 100, 0)
	ctl.Record()

	sinkErr := pkg.ErrHardware
	h.sinkErr.Store(&sinkErr)
	h.capture.Step()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	if !errors.Is(err, pkg.ErrFatal) || !errors.Is(err, pkg.ErrHardware) {
		t.Fatalf("Run() = %v, want ErrFatal wrapping ErrHardware", err)
	}
	if p.Pipeline().State() != audio.StateStopped {
		t.Error("capture not stopped after fatal error")
	}
	if h.capture.Running() {
		t.Error("capture source still running")
	}
	if h.live.Get() {
		t.Error("live LED on after fatal error")
	}
	// On at halt, then toggled every blink period.
	if writes := h.link.Writes(); writes < 5 {
		t.Errorf("link LED written %d times, want blinking", writes)
	}
}

func TestProgram_HaltWhileHostReinitializes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlinkPeriod = time.Millisecond
	p, h := newTestProgram(t, cfg)
	ctl := p.Controls()
	ctl.Init(48000, 100, 0)
	ctl.Record()

	sinkErr := pkg.ErrHardware
	h.sinkErr.Store(&sinkErr)
	h.capture.Step()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The USB control loop keeps driving the link LED while the
	// foreground loop blinks it.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			ctl.Init(48000, 100, 0)
			ctl.DeInit(0)
		}
	}()

	if err := p.Run(ctx); !errors.Is(err, pkg.ErrFatal) {
		t.Errorf("Run() = %v, want ErrFatal", err)
	}
	<-done
}
