package firmware

import (
	"context"
	"fmt"
	"time"

	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/button"
	"github.com/ardnew/usbmic/control"
	"github.com/ardnew/usbmic/dsp"
	"github.com/ardnew/usbmic/gpio"
	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/pkg"
)

// Hardware is the set of peripherals the firmware drives.
type Hardware struct {
	Capture hal.CaptureSource
	Clock   hal.Clock
	MutePin hal.Pin
	LinkPin hal.Pin
	LivePin hal.Pin

	// Sink receives processed audio, normally the USB streaming endpoint.
	Sink audio.Sink
}

// Program is the microphone firmware: it owns the capture pipeline, the
// mute button and the indicators, and runs the foreground loop.
type Program struct {
	cfg Config

	link *gpio.Led
	live *gpio.Led

	mute     *button.MuteController
	eq       *dsp.GraphicEqualizer
	vol      *dsp.VolumeControl
	pipeline *audio.Pipeline
	facade   *control.Facade

	fault chan error
}

// New builds the firmware on hw.
func New(hw Hardware, cfg Config) (*Program, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hw.Capture == nil || hw.Clock == nil || hw.Sink == nil ||
		hw.MutePin == nil || hw.LinkPin == nil || hw.LivePin == nil {
		return nil, fmt.Errorf("%w: incomplete hardware", pkg.ErrInvalidParameter)
	}

	p := &Program{
		cfg:   cfg,
		link:  gpio.NewLinkLed(hw.LinkPin),
		live:  gpio.NewLiveLed(hw.LivePin),
		fault: make(chan error, 1),
	}

	muteLine := gpio.NewLine(hw.MutePin)
	if cfg.MuteActiveLow {
		muteLine = gpio.NewActiveLowLine(hw.MutePin)
	}
	p.mute = button.NewMuteController(
		button.NewDebouncer(muteLine, hw.Clock, cfg.PressDelay, cfg.ReleaseDelay))
	p.mute.SetOnChange(func(muted bool) {
		pkg.LogInfo(pkg.ComponentFirmware, "mute button", "muted", muted)
	})

	rate := float64(cfg.Format.SampleRate)
	p.eq = dsp.NewGraphicEqualizer(rate, cfg.Equalizer)
	p.vol = dsp.NewVolumeControl(rate, cfg.Compression)
	p.vol.SetVolume(control.PercentToNative(cfg.Volume))

	pipeline, err := audio.NewPipeline(audio.Config{
		Format:    cfg.Format,
		Source:    hw.Capture,
		Equalizer: p.eq,
		Volume:    p.vol,
		Sink:      hw.Sink,
		Gate:      p.mute,
		Clock:     hw.Clock,
		OnFatal:   p.onFatal,
	})
	if err != nil {
		return nil, err
	}
	p.pipeline = pipeline
	p.facade = control.New(pipeline, p.vol, p.link, uint32(cfg.Format.SampleRate))

	pkg.LogInfo(pkg.ComponentFirmware, "firmware ready",
		"format", cfg.Format.String(),
		"volume", p.vol.Volume(),
		"equalizer", cfg.Equalizer)
	return p, nil
}

// onFatal runs in interrupt context; it only hands the error to Run.
func (p *Program) onFatal(err error) {
	select {
	case p.fault <- err:
	default:
	}
}

// Controls returns the host command surface.
func (p *Program) Controls() *control.Facade { return p.facade }

// Pipeline returns the capture pipeline.
func (p *Program) Pipeline() *audio.Pipeline { return p.pipeline }

// Equalizer returns the equalizer stage.
func (p *Program) Equalizer() *dsp.GraphicEqualizer { return p.eq }

// Volume returns the volume stage.
func (p *Program) Volume() *dsp.VolumeControl { return p.vol }

// Mute returns the mute button controller.
func (p *Program) Mute() *button.MuteController { return p.mute }

// LinkLed returns the link indicator.
func (p *Program) LinkLed() *gpio.Led { return p.link }

// LiveLed returns the live indicator.
func (p *Program) LiveLed() *gpio.Led { return p.live }

// Poll runs one iteration of the foreground loop: it polls the mute button
// and updates the live indicator.
func (p *Program) Poll() {
	p.mute.Run()
	p.live.Set(p.pipeline.Live(p.facade.SoftMuted()))
}

// Run polls every tick until ctx ends or the pipeline faults. After a
// fault it stops capture and blinks the link indicator until ctx ends,
// then returns the fault, which wraps pkg.ErrFatal.
func (p *Program) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.live.Off()
			return ctx.Err()
		case err := <-p.fault:
			return p.halt(ctx, err)
		case <-ticker.C:
			p.Poll()
		}
	}
}

// halt is the terminal state after a fatal error.
func (p *Program) halt(ctx context.Context, err error) error {
	pkg.LogError(pkg.ComponentFirmware, "halted", "error", err)
	if stopErr := p.pipeline.Stop(); stopErr != nil {
		pkg.LogWarn(pkg.ComponentFirmware, "stop capture", "error", stopErr)
	}
	p.live.Off()
	p.link.On()

	blink := time.NewTicker(p.cfg.BlinkPeriod)
	defer blink.Stop()
	for {
		select {
		case <-ctx.Done():
			return err
		case <-blink.C:
			p.link.Toggle()
		}
	}
}
