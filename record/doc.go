// Package record moves microphone audio to and from WAV files.
//
// [Recorder] writes 16-bit mono PCM, either from isochronous packets read
// on the host side of a bus or directly as an [audio.Sink] tap on the
// capture pipeline. [Clip] loads a WAV file as a looping input signal for
// the simulated capture source.
//
// [audio.Sink]: github.com/ardnew/usbmic/audio.Sink
package record
