package hal

// Pin is a single digital line.
//
// The method set matches TinyGo's machine.Pin, so a configured board pin
// satisfies it without an adapter.
type Pin interface {
	// Get returns true when the line reads high.
	Get() bool

	// Set drives the line high (true) or low (false).
	Set(high bool)
}

// Clock is a free-running monotonic time source.
//
// Both counters wrap; consumers compare timestamps with unsigned
// subtraction so wrap-around is harmless.
type Clock interface {
	// Millis returns milliseconds since an arbitrary epoch.
	Millis() uint32

	// Micros returns microseconds since the same epoch.
	Micros() uint32
}

// CaptureSource is a circular DMA audio receiver such as an I2S peripheral.
//
// After Receive the source writes frames into buf continuously, wrapping at
// the end. It invokes the half callback when the first half of buf has been
// filled and the full callback when the second half has been filled. The two
// callbacks strictly alternate and never overlap; each must return before
// the source finishes filling the other half or samples are overwritten.
//
// Callbacks run in interrupt context: they must not block or allocate.
type CaptureSource interface {
	// SetCallbacks registers the half- and full-complete handlers.
	// Must be called before Receive.
	SetCallbacks(half, full func())

	// Receive starts circular reception into buf.
	Receive(buf []int32) error

	// Stop ends reception.
	Stop() error

	// Pause suspends reception without releasing buf.
	Pause() error

	// Resume continues a paused reception.
	Resume() error
}
