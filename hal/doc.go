// Package hal defines the hardware abstraction the microphone firmware runs on.
//
// The firmware core never touches registers. Everything it needs from the
// board is reached through four small interfaces:
//
//   - [Pin]: a single digital line (mute button, LEDs)
//   - [Clock]: a wrapping millisecond/microsecond counter
//   - [CaptureSource]: a circular DMA audio receiver with half/full
//     completion callbacks
//   - [USB]: the device-side USB controller (control endpoint plus one
//     isochronous IN endpoint)
//
// # Interrupt Context
//
// CaptureSource callbacks run where the hardware delivers them, which on a
// microcontroller is the DMA interrupt. Implementations must guarantee the
// half and full callbacks alternate and never run concurrently with each
// other. Code reached from a callback must not block or allocate.
//
// # Implementations
//
// A software implementation of every interface, suitable for tests and
// for running the firmware on a workstation, is available in
// [github.com/ardnew/usbmic/hal/sim].
package hal
