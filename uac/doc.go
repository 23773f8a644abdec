// Package uac implements a USB Audio Class 1.0 microphone on top of a
// hal.USB device controller.
//
// The device exposes one configuration with two interfaces:
//
//	Interface 0 (AudioControl)
//	    Input terminal 1 (microphone)
//	    Feature unit 2 (master mute and volume)
//	    Output terminal 3 (USB streaming)
//	Interface 1 (AudioStreaming)
//	    Alternate 0: zero bandwidth
//	    Alternate 1: isochronous IN endpoint 0x81, PCM16 mono
//
// [Stack] serves the control endpoint: standard enumeration requests,
// feature unit requests and the endpoint sampling frequency control. Host
// actions reach the device through the [Controls] interface:
//
//	SET_CONFIGURATION 1      → Init
//	SET_CONFIGURATION 0      → DeInit
//	SET_INTERFACE 1, alt 1   → Record
//	SET_INTERFACE 1, alt 0   → Stop
//	bus suspend / resume     → Pause / Resume
//	bus reset                → DeInit
//	feature unit SET_CUR     → Volume / Mute
//
// [Streamer] is the audio sink: it splits each processed block into 1 ms
// packets and writes them to the isochronous endpoint while streaming is
// active.
package uac
