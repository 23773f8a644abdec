package dsp

import "sync/atomic"

// Bands is the number of equalizer bands.
const Bands = 10

// Band gain limits in dB.
const (
	MinBandGain = -12
	MaxBandGain = 12
)

// bandQ is the quality factor of each peaking section.
const bandQ = 1.0

// BandFrequencies are the center frequencies of the bands in Hz.
var BandFrequencies = [Bands]float64{
	62, 115, 214, 399, 742, 1380, 2567, 4775, 8882, 16520,
}

// Preset is a set of band gains in dB.
type Preset [Bands]int8

// DefaultPreset cuts the lowest three bands and lifts the rest, trimming
// rumble and adding presence to speech.
var DefaultPreset = Preset{-3, -3, -3, 3, 3, 3, 3, 3, 3, 3}

// FlatPreset leaves the signal unchanged.
var FlatPreset = Preset{}

// GraphicEqualizer is a ten band peaking equalizer.
//
// Band gains may be changed from any goroutine; a change takes effect at
// the start of the next Process call. With every band at 0 dB the
// equalizer is bypassed and its output equals its input.
type GraphicEqualizer struct {
	rate  float64
	gains [Bands]atomic.Int32
	dirty atomic.Bool

	// Owned by Process.
	filters [Bands]biquad
	active  bool
}

// NewGraphicEqualizer returns an equalizer for the given sample rate
// initialized to preset.
func NewGraphicEqualizer(rate float64, preset Preset) *GraphicEqualizer {
	e := &GraphicEqualizer{rate: rate}
	e.SetPreset(preset)
	e.update()
	return e
}

// SetBand sets the gain of band index in dB, clamped to
// [MinBandGain, MaxBandGain]. An out-of-range index is ignored.
func (e *GraphicEqualizer) SetBand(index int, gain int) {
	if index < 0 || index >= Bands {
		return
	}
	gain = max(MinBandGain, min(MaxBandGain, gain))
	e.gains[index].Store(int32(gain))
	e.dirty.Store(true)
}

// SetPreset sets all band gains.
func (e *GraphicEqualizer) SetPreset(preset Preset) {
	for i, g := range preset {
		e.SetBand(i, int(g))
	}
}

// Band returns the gain of band index in dB.
func (e *GraphicEqualizer) Band(index int) int {
	if index < 0 || index >= Bands {
		return 0
	}
	return int(e.gains[index].Load())
}

// Gains returns the current band gains.
func (e *GraphicEqualizer) Gains() Preset {
	var p Preset
	for i := range p {
		p[i] = int8(e.gains[i].Load())
	}
	return p
}

// Process equalizes n stereo frames of buf in place.
func (e *GraphicEqualizer) Process(buf []int16, n int) error {
	if err := checkBuffer(buf, n); err != nil {
		return err
	}
	if e.dirty.Load() {
		e.update()
	}
	if !e.active {
		return nil
	}

	for i := 0; i < n; i++ {
		for ch := 0; ch < Channels; ch++ {
			k := i*Channels + ch
			x := float32(buf[k])
			for b := range e.filters {
				x = e.filters[b].step(ch, x)
			}
			buf[k] = clamp16(x)
		}
	}
	return nil
}

// update recomputes coefficients from the band gains.
func (e *GraphicEqualizer) update() {
	e.dirty.Store(false)

	wasActive := e.active
	e.active = false
	for i := range e.filters {
		g := e.gains[i].Load()
		if g != 0 {
			e.active = true
		}
		e.filters[i].setPeaking(e.rate, BandFrequencies[i], float64(g), bandQ)
	}
	if e.active && !wasActive {
		for i := range e.filters {
			e.filters[i].reset()
		}
	}
}
