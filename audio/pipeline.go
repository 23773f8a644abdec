package audio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ardnew/usbmic/dsp"
	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/pkg"
)

// Sink receives processed mono blocks.
//
// Transmit is called from interrupt context; samples is the number of
// values of block to send. The block remains valid until the same half of the transmit
// buffer is processed again, one half-period later. A returned error is
// fatal.
type Sink interface {
	Transmit(block []int16, samples int) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(block []int16, samples int) error

// Transmit calls f.
func (f SinkFunc) Transmit(block []int16, samples int) error { return f(block, samples) }

// MuteGate reports whether capture output is suppressed.
type MuteGate interface {
	IsMuted() bool
}

// FatalHandler is called once when the pipeline hits an unrecoverable
// error. It runs in interrupt context and must not block.
type FatalHandler func(err error)

// Config holds the collaborators of a Pipeline.
type Config struct {
	Format    Format
	Source    hal.CaptureSource
	Equalizer dsp.Transform
	Volume    dsp.Transform
	Sink      Sink

	// Gate is the hardware mute. Optional.
	Gate MuteGate

	// Clock times each block for Stats. Optional.
	Clock hal.Clock

	// OnFatal is called on the first fatal error. Optional.
	OnFatal FatalHandler
}

// Stats summarizes pipeline activity.
type Stats struct {
	Blocks   uint64        // half-blocks transmitted
	Skipped  uint64        // half-blocks discarded while stopped, paused or muted
	Overruns uint64        // half-blocks that took longer than the half period
	Worst    time.Duration // longest processing time of a half-block
}

// Pipeline moves captured audio through the conditioning stages to the
// sink.
//
// The capture source fills a circular buffer of two half-blocks and calls
// back after each half. Each callback narrows the finished half to 16 bits,
// duplicates it to stereo, equalizes and scales it, then hands the left
// channel to the sink while the source fills the other half.
type Pipeline struct {
	format Format
	source hal.CaptureSource
	stages [2]dsp.Transform
	sink   Sink
	gate   MuteGate
	clock  hal.Clock
	fatal  FatalHandler

	half     int
	deadline uint32 // microseconds

	capture  []int32
	staging  []int16
	transmit []int16

	state   atomic.Uint32
	faulted atomic.Bool

	blocks   atomic.Uint64
	skipped  atomic.Uint64
	overruns atomic.Uint64
	worst    atomic.Uint32
}

// NewPipeline allocates the buffers and registers the half and full
// callbacks with the capture source.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Format == (Format{}) {
		cfg.Format = DefaultFormat
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if cfg.Source == nil || cfg.Equalizer == nil || cfg.Volume == nil || cfg.Sink == nil {
		return nil, fmt.Errorf("%w: pipeline needs a source, two stages and a sink", pkg.ErrInvalidParameter)
	}

	half := cfg.Format.SamplesPerHalf()
	p := &Pipeline{
		format:   cfg.Format,
		source:   cfg.Source,
		stages:   [2]dsp.Transform{cfg.Equalizer, cfg.Volume},
		sink:     cfg.Sink,
		gate:     cfg.Gate,
		clock:    cfg.Clock,
		fatal:    cfg.OnFatal,
		half:     half,
		deadline: uint32(cfg.Format.HalfPeriod() / time.Microsecond),
		capture:  make([]int32, cfg.Format.CaptureWords()),
		staging:  make([]int16, half*dsp.Channels),
		transmit: make([]int16, half*2),
	}
	p.source.SetCallbacks(p.OnHalfReady, p.OnFullReady)
	return p, nil
}

// Format returns the stream format.
func (p *Pipeline) Format() Format { return p.format }

// State returns the lifecycle state.
func (p *Pipeline) State() State { return State(p.state.Load()) }

// Faulted reports whether a fatal error has occurred.
func (p *Pipeline) Faulted() bool { return p.faulted.Load() }

// Start begins capture. On error the state is unchanged.
func (p *Pipeline) Start() error {
	if err := p.source.Receive(p.capture); err != nil {
		return err
	}
	p.setState(StateRunning)
	return nil
}

// Stop ends capture. On error the state is unchanged.
func (p *Pipeline) Stop() error {
	if err := p.source.Stop(); err != nil {
		return err
	}
	p.setState(StateStopped)
	return nil
}

// Pause suspends capture. On error the state is unchanged.
func (p *Pipeline) Pause() error {
	if err := p.source.Pause(); err != nil {
		return err
	}
	p.setState(StatePaused)
	return nil
}

// Resume continues a paused capture. On error the state is unchanged.
func (p *Pipeline) Resume() error {
	if err := p.source.Resume(); err != nil {
		return err
	}
	p.setState(StateRunning)
	return nil
}

func (p *Pipeline) setState(s State) {
	if prev := State(p.state.Swap(uint32(s))); prev != s {
		pkg.LogDebug(pkg.ComponentAudio, "capture state", "from", prev, "to", s)
	}
}

// Live reports whether audio is reaching the host: running and not muted
// by either the button or the host.
func (p *Pipeline) Live(softMuted bool) bool {
	return p.State() == StateRunning && !softMuted && !p.gateMuted()
}

func (p *Pipeline) gateMuted() bool {
	return p.gate != nil && p.gate.IsMuted()
}

// OnHalfReady processes the first half of the capture buffer.
func (p *Pipeline) OnHalfReady() {
	words := p.half * 2
	p.processBlock(p.capture[:words], p.transmit[:p.half])
}

// OnFullReady processes the second half of the capture buffer.
func (p *Pipeline) OnFullReady() {
	words := p.half * 2
	p.processBlock(p.capture[words:], p.transmit[p.half:])
}

// processBlock conditions one half-block and transmits it.
func (p *Pipeline) processBlock(src []int32, dst []int16) {
	if p.faulted.Load() {
		return
	}
	if p.State() != StateRunning || p.gateMuted() {
		p.skipped.Add(1)
		return
	}

	var start uint32
	if p.clock != nil {
		start = p.clock.Micros()
	}

	// Left word of each frame carries the sample in its upper 24 bits.
	for i := 0; i < p.half; i++ {
		s := int16(src[i*2] >> 16)
		p.staging[i*2] = s
		p.staging[i*2+1] = s
	}

	for _, stage := range p.stages {
		if err := stage.Process(p.staging, p.half); err != nil {
			p.fail("transform", err)
			return
		}
	}

	for i := 0; i < p.half; i++ {
		dst[i] = p.staging[i*2]
	}

	if err := p.sink.Transmit(dst, p.half); err != nil {
		p.fail("transmit", err)
		return
	}
	p.blocks.Add(1)

	if p.clock != nil {
		p.account(p.clock.Micros() - start)
	}
}

// account records the processing time of one block.
func (p *Pipeline) account(elapsed uint32) {
	for {
		worst := p.worst.Load()
		if elapsed <= worst || p.worst.CompareAndSwap(worst, elapsed) {
			break
		}
	}
	if elapsed > p.deadline {
		p.overruns.Add(1)
		pkg.LogWarn(pkg.ComponentAudio, "deadline overrun",
			"elapsed_us", elapsed, "deadline_us", p.deadline)
	}
}

// fail latches the fault and reports it once.
func (p *Pipeline) fail(op string, err error) {
	if !p.faulted.CompareAndSwap(false, true) {
		return
	}
	err = fmt.Errorf("%w: %s: %w", pkg.ErrFatal, op, err)
	pkg.LogError(pkg.ComponentAudio, "capture halted", "error", err)
	if p.fatal != nil {
		p.fatal(err)
	}
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Blocks:   p.blocks.Load(),
		Skipped:  p.skipped.Load(),
		Overruns: p.overruns.Load(),
		Worst:    time.Duration(p.worst.Load()) * time.Microsecond,
	}
}
