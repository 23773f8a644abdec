// Package audio implements the real-time capture pipeline.
//
// A [Pipeline] owns three buffers sized from a [Format]: the circular
// capture buffer filled by a hal.CaptureSource, a stereo staging buffer
// where the dsp stages run, and a two-half transmit buffer handed to a
// [Sink]. The capture source calls OnHalfReady and OnFullReady in strict
// alternation; each call must finish within [Format.HalfPeriod].
//
// # Lifecycle
//
// Start, Stop, Pause and Resume forward to the capture source and update
// the lifecycle state only when the source succeeds. Blocks that complete
// while the pipeline is not running, or while the hardware mute gate is
// set, are discarded without touching the dsp stages or the sink.
//
// # Faults
//
// A failing stage or sink is unrecoverable. The pipeline latches the
// fault, stops processing and reports an error wrapping pkg.ErrFatal to
// the configured [FatalHandler].
package audio
