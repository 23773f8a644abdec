package audio

import (
	"fmt"
	"time"

	"github.com/ardnew/usbmic/pkg"
)

// Format describes the captured stream.
type Format struct {
	// SampleRate in Hz.
	SampleRate int

	// Period is the duration of one full capture buffer (two half-blocks).
	Period time.Duration
}

// DefaultFormat is 48 kHz with a 20 ms capture buffer.
var DefaultFormat = Format{SampleRate: 48000, Period: 20 * time.Millisecond}

// SamplesPerBlock returns the mono samples in one full capture buffer.
func (f Format) SamplesPerBlock() int {
	return int(int64(f.SampleRate) * int64(f.Period) / int64(time.Second))
}

// SamplesPerHalf returns the mono samples processed per callback.
func (f Format) SamplesPerHalf() int { return f.SamplesPerBlock() / 2 }

// HalfPeriod returns the time between callbacks, which is also the
// processing deadline of each half-block.
func (f Format) HalfPeriod() time.Duration { return f.Period / 2 }

// CaptureWords returns the length of the capture buffer in 32-bit words:
// two words per frame, two half-blocks.
func (f Format) CaptureWords() int { return f.SamplesPerHalf() * 2 * 2 }

// SamplesPerMillisecond returns the mono samples in one USB frame.
func (f Format) SamplesPerMillisecond() int { return f.SampleRate / 1000 }

// Validate checks that the format yields whole half-blocks of whole
// millisecond packets.
func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.SampleRate%1000 != 0 {
		return fmt.Errorf("%w: sample rate %d is not a positive multiple of 1000", pkg.ErrInvalidParameter, f.SampleRate)
	}
	if f.Period < 2*time.Millisecond || f.Period%(2*time.Millisecond) != 0 {
		return fmt.Errorf("%w: period %v is not a positive multiple of 2ms", pkg.ErrInvalidParameter, f.Period)
	}
	return nil
}

// String returns a short description such as "48000Hz/20ms".
func (f Format) String() string {
	return fmt.Sprintf("%dHz/%v", f.SampleRate, f.Period)
}
