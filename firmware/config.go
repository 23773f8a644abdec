package firmware

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/button"
	"github.com/ardnew/usbmic/dsp"
	"github.com/ardnew/usbmic/pkg"
)

// Config holds the tunable parameters of the firmware.
type Config struct {
	// Format of the captured stream.
	Format audio.Format

	// PressDelay and ReleaseDelay are the mute button debounce thresholds
	// in milliseconds.
	PressDelay   uint32
	ReleaseDelay uint32

	// MuteActiveLow is true when the button pulls the line to ground.
	MuteActiveLow bool

	// Equalizer band gains in dB.
	Equalizer dsp.Preset

	// Volume is the initial volume in percent, 0 to 100.
	Volume uint32

	// Compression configures the peak compressor.
	Compression dsp.Compression

	// Tick is the period of the foreground loop.
	Tick time.Duration

	// BlinkPeriod is the link LED toggle period after a fatal error.
	BlinkPeriod time.Duration
}

// DefaultConfig returns the configuration of the reference hardware.
func DefaultConfig() Config {
	return Config{
		Format:        audio.DefaultFormat,
		PressDelay:    button.DefaultPressDelay,
		ReleaseDelay:  button.DefaultReleaseDelay,
		MuteActiveLow: true,
		Equalizer:     dsp.DefaultPreset,
		Volume:        100,
		Compression:   dsp.DefaultCompression,
		Tick:          time.Millisecond,
		BlinkPeriod:   500 * time.Millisecond,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if err := c.Format.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Volume > 100 {
		errs = append(errs, fmt.Errorf("%w: volume %d%% above 100", pkg.ErrInvalidParameter, c.Volume))
	}
	for i, g := range c.Equalizer {
		if g < dsp.MinBandGain || g > dsp.MaxBandGain {
			errs = append(errs, fmt.Errorf("%w: band %d gain %d dB out of range", pkg.ErrInvalidParameter, i, g))
		}
	}
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("%w: tick %v", pkg.ErrInvalidParameter, c.Tick))
	}
	if c.Tick >= time.Duration(min(c.PressDelay, c.ReleaseDelay)+1)*time.Millisecond {
		errs = append(errs, fmt.Errorf("%w: tick %v not faster than debounce", pkg.ErrInvalidParameter, c.Tick))
	}
	if c.BlinkPeriod <= 0 {
		errs = append(errs, fmt.Errorf("%w: blink period %v", pkg.ErrInvalidParameter, c.BlinkPeriod))
	}
	return errors.Join(errs...)
}
