// Package firmware assembles the microphone from its parts and runs it.
//
// [New] builds the indicators, the debounced mute button, the equalizer
// and volume stages, the capture pipeline and the host command facade on
// top of a [Hardware] set. [Program.Run] is the foreground loop: each tick
// it polls the mute button and shows on the live LED whether audio is
// reaching the host. The capture pipeline runs independently from the
// capture source's callbacks.
//
// A fatal pipeline error halts the device: capture stops, the live LED
// goes dark and the link LED blinks at 1 Hz.
package firmware
