package sim

import (
	"math"
	"sync/atomic"
	"time"
)

// Pin is a software digital line.
type Pin struct {
	level  atomic.Bool
	writes atomic.Uint32
}

// NewPin returns a pin at the given initial level.
func NewPin(level bool) *Pin {
	p := &Pin{}
	p.level.Store(level)
	return p
}

// Get returns the current level.
func (p *Pin) Get() bool { return p.level.Load() }

// Set drives the level.
func (p *Pin) Set(high bool) {
	p.level.Store(high)
	p.writes.Add(1)
}

// Drive changes the level the way external circuitry would, without
// counting as a write by the firmware.
func (p *Pin) Drive(high bool) { p.level.Store(high) }

// Writes returns the number of Set calls.
func (p *Pin) Writes() uint32 { return p.writes.Load() }

// ManualClock is a clock that only moves when told to.
type ManualClock struct {
	micros atomic.Uint64
}

// NewManualClock returns a clock starting at zero.
func NewManualClock() *ManualClock { return &ManualClock{} }

// Millis returns elapsed milliseconds.
func (c *ManualClock) Millis() uint32 { return uint32(c.micros.Load() / 1000) }

// Micros returns elapsed microseconds.
func (c *ManualClock) Micros() uint32 { return uint32(c.micros.Load()) }

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.micros.Add(uint64(d / time.Microsecond))
}

// AdvanceMillis moves the clock forward by ms milliseconds.
func (c *ManualClock) AdvanceMillis(ms uint32) {
	c.micros.Add(uint64(ms) * 1000)
}

// SystemClock reports time elapsed since it was created.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a clock whose epoch is now.
func NewSystemClock() *SystemClock { return &SystemClock{start: time.Now()} }

// Millis returns elapsed milliseconds.
func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// Micros returns elapsed microseconds.
func (c *SystemClock) Micros() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

// Signal produces 24-bit signed samples for a simulated microphone.
type Signal interface {
	Next() int32
}

// FullScale24 is the largest positive 24-bit sample.
const FullScale24 = 1<<23 - 1

// Constant is a signal holding one value.
type Constant int32

// Next returns the constant.
func (c Constant) Next() int32 { return int32(c) }

// Sine is a pure tone.
type Sine struct {
	step  float64
	phase float64
	amp   float64
}

// NewSine returns a tone of frequency hz at the given sample rate.
// Amplitude is relative to 24-bit full scale and clamped to [0, 1].
func NewSine(rate, hz, amplitude float64) *Sine {
	amplitude = math.Max(0, math.Min(1, amplitude))
	return &Sine{
		step: 2 * math.Pi * hz / rate,
		amp:  amplitude * FullScale24,
	}
}

// Next returns the next sample of the tone.
func (s *Sine) Next() int32 {
	v := int32(math.Round(s.amp * math.Sin(s.phase)))
	s.phase += s.step
	if s.phase >= 2*math.Pi {
		s.phase -= 2 * math.Pi
	}
	return v
}
