package dsp

import (
	"math"
	"sync/atomic"
	"time"
)

// Volume limits in native half-dB units (-80 dB to +36 dB).
const (
	MinVolume int16 = -160
	MaxVolume int16 = 72
)

// Compression configures the peak compressor of a VolumeControl.
type Compression struct {
	Enabled   bool
	Threshold float64       // dBFS above which gain is reduced
	Attack    time.Duration // envelope rise time constant
	Release   time.Duration // envelope fall time constant
}

// DefaultCompression keeps amplified speech just below full scale.
var DefaultCompression = Compression{
	Enabled:   true,
	Threshold: -1,
	Attack:    time.Millisecond,
	Release:   100 * time.Millisecond,
}

// ClampVolume limits v to [MinVolume, MaxVolume].
func ClampVolume(v int) int16 {
	return int16(max(int(MinVolume), min(int(MaxVolume), v)))
}

// VolumeControl applies gain in half-dB steps, a soft mute and optional
// peak compression.
//
// Volume and mute may be changed from any goroutine. Gain changes are
// ramped across the next processed block to avoid clicks. At 0 dB with the
// compressor below threshold the output equals the input.
type VolumeControl struct {
	volume atomic.Int32
	muted  atomic.Bool

	compress  bool
	threshold float32
	attack    float32
	release   float32

	// Owned by Process.
	applied  int32 // volume the target gain was computed for
	target   float32
	gain     float32
	envelope float32
}

// NewVolumeControl returns a control at 0 dB for the given sample rate.
func NewVolumeControl(rate float64, c Compression) *VolumeControl {
	return &VolumeControl{
		compress:  c.Enabled,
		threshold: float32(32767 * math.Pow(10, c.Threshold/20)),
		attack:    smoothing(rate, c.Attack),
		release:   smoothing(rate, c.Release),
		target:    1,
		gain:      1,
	}
}

// smoothing returns the one-pole coefficient for time constant tc.
func smoothing(rate float64, tc time.Duration) float32 {
	if tc <= 0 || rate <= 0 {
		return 0
	}
	return float32(math.Exp(-1 / (tc.Seconds() * rate)))
}

// gainOf converts half-dB units to a linear factor.
func gainOf(halfDB int32) float32 {
	return float32(math.Pow(10, float64(halfDB)/40))
}

// SetVolume sets the target volume in half-dB units, clamped to
// [MinVolume, MaxVolume].
func (v *VolumeControl) SetVolume(halfDB int16) {
	v.volume.Store(int32(ClampVolume(int(halfDB))))
}

// Volume returns the target volume in half-dB units.
func (v *VolumeControl) Volume() int16 { return int16(v.volume.Load()) }

// SetMute sets the soft mute. A muted control outputs silence.
func (v *VolumeControl) SetMute(muted bool) { v.muted.Store(muted) }

// IsMuted returns the soft mute state.
func (v *VolumeControl) IsMuted() bool { return v.muted.Load() }

// Process applies gain to n stereo frames of buf in place.
func (v *VolumeControl) Process(buf []int16, n int) error {
	if err := checkBuffer(buf, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	if vol := v.volume.Load(); vol != v.applied {
		v.applied = vol
		v.target = gainOf(vol)
	}
	target := v.target
	if v.muted.Load() {
		target = 0
	}

	start := v.gain
	step := (target - start) / float32(n)
	for i := 0; i < n; i++ {
		g := target
		if i < n-1 {
			g = start + step*float32(i+1)
		}

		l := float32(buf[i*Channels]) * g
		r := float32(buf[i*Channels+1]) * g
		if v.compress {
			red := v.reduction(max(abs32(l), abs32(r)))
			l *= red
			r *= red
		}
		buf[i*Channels] = clamp16(l)
		buf[i*Channels+1] = clamp16(r)
	}
	v.gain = target
	return nil
}

// reduction tracks the joint stereo peak envelope and returns the gain
// factor that holds it at the threshold.
func (v *VolumeControl) reduction(peak float32) float32 {
	coef := v.release
	if peak > v.envelope {
		coef = v.attack
	}
	v.envelope = peak + coef*(v.envelope-peak)
	if v.envelope <= v.threshold {
		return 1
	}
	return v.threshold / v.envelope
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
