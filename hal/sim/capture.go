package sim

import (
	"sync"
	"time"

	"github.com/ardnew/usbmic/pkg"
)

// Op identifies a capture source operation for fault injection.
type Op uint8

// Capture source operations.
const (
	OpReceive Op = iota
	OpStop
	OpPause
	OpResume
	opCount
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpReceive:
		return "receive"
	case OpStop:
		return "stop"
	case OpPause:
		return "pause"
	case OpResume:
		return "resume"
	default:
		return "unknown"
	}
}

type captureState uint8

const (
	captureIdle captureState = iota
	captureRunning
	capturePaused
)

// CaptureSource emulates a circular I2S DMA receiver.
//
// Each delivery fills the next half of the buffer with stereo frames whose
// left word carries a 24-bit sample from the signal, left-justified, and
// whose right word is zero. Half and full callbacks alternate starting with
// half.
//
// With a positive period a goroutine delivers one half per period while
// running. With a zero period nothing is delivered until Step is called.
type CaptureSource struct {
	mutex    sync.Mutex
	state    captureState
	buf      []int32
	next     int
	failures [opCount]pkg.Status
	stop     chan struct{}

	// Serializes deliveries so callbacks never overlap.
	deliver sync.Mutex

	half, full func()
	signal     Signal
	period     time.Duration
	delivered  uint64
}

// NewCaptureSource returns a source producing signal, delivering one
// half-block every period.
func NewCaptureSource(signal Signal, period time.Duration) *CaptureSource {
	if signal == nil {
		signal = Constant(0)
	}
	return &CaptureSource{signal: signal, period: period}
}

// SetCallbacks registers the half- and full-complete handlers.
func (c *CaptureSource) SetCallbacks(half, full func()) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.half, c.full = half, full
}

// FailNext makes the next call of op report status without effect, the
// way a vendor HAL returns a non-OK code.
func (c *CaptureSource) FailNext(op Op, status pkg.Status) {
	if op >= opCount {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.failures[op] = status
}

// takeFailure returns and clears the injected failure for op.
// Caller must hold c.mutex.
func (c *CaptureSource) takeFailure(op Op) error {
	status := c.failures[op]
	c.failures[op] = pkg.StatusOK
	return status.Error()
}

// Receive starts circular reception into buf.
func (c *CaptureSource) Receive(buf []int32) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.takeFailure(OpReceive); err != nil {
		return err
	}
	if c.state != captureIdle {
		return pkg.ErrBusy
	}
	if len(buf) == 0 || len(buf)%4 != 0 {
		return pkg.ErrInvalidParameter
	}

	c.buf = buf
	c.next = 0
	c.state = captureRunning
	if c.period > 0 {
		c.stop = make(chan struct{})
		go c.run(c.stop)
	}
	pkg.LogDebug(pkg.ComponentSim, "capture started", "words", len(buf), "period", c.period)
	return nil
}

// Stop ends reception.
func (c *CaptureSource) Stop() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.takeFailure(OpStop); err != nil {
		return err
	}
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.state = captureIdle
	pkg.LogDebug(pkg.ComponentSim, "capture stopped")
	return nil
}

// Pause holds delivery.
func (c *CaptureSource) Pause() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.takeFailure(OpPause); err != nil {
		return err
	}
	if c.state == captureIdle {
		return pkg.ErrInvalidState
	}
	c.state = capturePaused
	return nil
}

// Resume continues a paused reception.
func (c *CaptureSource) Resume() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.takeFailure(OpResume); err != nil {
		return err
	}
	if c.state != capturePaused {
		return pkg.ErrInvalidState
	}
	c.state = captureRunning
	return nil
}

// Running reports whether the source is delivering.
func (c *CaptureSource) Running() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state == captureRunning
}

// Delivered returns the number of half-blocks delivered.
func (c *CaptureSource) Delivered() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.delivered
}

// Step fills the next half of the buffer and invokes its callback.
// Returns false if the source is not running.
func (c *CaptureSource) Step() bool {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mutex.Lock()
	if c.state != captureRunning {
		c.mutex.Unlock()
		return false
	}
	buf, which := c.buf, c.next
	cb := c.half
	if which == 1 {
		cb = c.full
	}
	c.next ^= 1
	c.delivered++
	c.mutex.Unlock()

	n := len(buf) / 2
	c.fill(buf[which*n : (which+1)*n])
	if cb != nil {
		cb()
	}
	return true
}

// fill writes frames from the signal into half.
func (c *CaptureSource) fill(half []int32) {
	for i := 0; i+1 < len(half); i += 2 {
		half[i] = c.signal.Next() << 8
		half[i+1] = 0
	}
}

func (c *CaptureSource) run(stop <-chan struct{}) {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Step()
		}
	}
}
