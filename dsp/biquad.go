package dsp

import "math"

// biquad is a second-order IIR section in transposed direct form II with
// independent state per channel.
type biquad struct {
	b0, b1, b2, a1, a2 float32
	z1, z2             [Channels]float32
}

// setPeaking configures a peaking equalizer section (RBJ cookbook) at
// center frequency f0 with gain dB and quality q for sample rate fs.
func (b *biquad) setPeaking(fs, f0, gainDB, q float64) {
	if f0 >= fs/2 {
		f0 = fs/2 - 1
	}
	A := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * f0 / fs
	alpha := math.Sin(w0) / (2 * q)
	cosw := math.Cos(w0)

	a0 := 1 + alpha/A
	b.b0 = float32((1 + alpha*A) / a0)
	b.b1 = float32(-2 * cosw / a0)
	b.b2 = float32((1 - alpha*A) / a0)
	b.a1 = float32(-2 * cosw / a0)
	b.a2 = float32((1 - alpha/A) / a0)
}

// step filters one sample on channel ch.
func (b *biquad) step(ch int, x float32) float32 {
	y := b.b0*x + b.z1[ch]
	b.z1[ch] = b.b1*x - b.a1*y + b.z2[ch]
	b.z2[ch] = b.b2*x - b.a2*y
	return y
}

// reset clears the filter history.
func (b *biquad) reset() {
	b.z1 = [Channels]float32{}
	b.z2 = [Channels]float32{}
}
