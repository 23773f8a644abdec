// Package control implements the host command surface of the microphone.
//
// [Facade] translates USB Audio Class events into pipeline lifecycle calls
// and volume changes, converting between the host's 1/256 dB volume units
// and the native half-dB units of the gain stage.
package control
