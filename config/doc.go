// Package config loads device profiles from YAML.
//
// A profile gathers everything needed to bring up a microphone: the audio
// format, debounce timing, equalizer preset, volume and compressor, USB
// identity, and for the simulator the input signal and a scripted
// scenario. Keys absent from a document keep the values of [Default].
//
//	audio:
//	  sample_rate: 48000
//	  period: 20ms
//	equalizer: [-3, -3, -3, 3, 3, 3, 3, 3, 3, 3]
//	simulator:
//	  scenario:
//	    - {at: 200ms, action: press}
//	    - {at: 400ms, action: release}
//
// The firmware core does not import this package; it is used by host-side
// tools such as cmd/usbmic-sim.
package config
