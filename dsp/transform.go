package dsp

import "github.com/ardnew/usbmic/pkg"

// Channels is the number of interleaved channels a Transform processes.
const Channels = 2

// Transform is a signal conditioning stage.
//
// Process works in place on interleaved stereo int16 samples; n is the
// number of samples per channel, so buf holds at least 2*n values.
// Process runs in interrupt context: it must not block or allocate.
type Transform interface {
	Process(buf []int16, n int) error
}

// clamp16 saturates v to the int16 range.
func clamp16(v float32) int16 {
	switch {
	case v >= 32767:
		return 32767
	case v <= -32768:
		return -32768
	case v >= 0:
		return int16(v + 0.5)
	default:
		return int16(v - 0.5)
	}
}

// checkBuffer validates the arguments of Process.
func checkBuffer(buf []int16, n int) error {
	if n < 0 || len(buf) < n*Channels {
		return pkg.ErrBufferTooSmall
	}
	return nil
}
