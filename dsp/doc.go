// Package dsp implements the signal conditioning stages applied to each
// captured block: a ten band graphic equalizer followed by a volume
// control with soft mute and peak compression.
//
// Both stages implement [Transform] and operate in place on interleaved
// stereo int16 samples. They never allocate in Process, so they are safe
// to run from the capture interrupt. Parameters are single-word atomics
// and may be changed concurrently from the control path.
package dsp
