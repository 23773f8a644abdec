package record

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ardnew/usbmic/pkg"
)

// Output format of a recording.
const (
	BitDepth = 16
	Channels = 1

	formatPCM = 1
)

// Recorder encodes 16-bit mono samples to a WAV stream. It is safe for
// concurrent use.
type Recorder struct {
	mu      sync.Mutex
	enc     *wav.Encoder
	closer  io.Closer
	buf     audio.IntBuffer
	rate    int
	samples int
	closed  bool
}

// Create opens path for writing and returns a recorder for a stream of
// the given sample rate.
func Create(path string, sampleRate int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("record: create %q: %w", path, err)
	}
	r := NewRecorder(f, sampleRate)
	r.closer = f
	return r, nil
}

// NewRecorder returns a recorder writing to w. The WAV header is finalized
// by Close, which does not close w.
func NewRecorder(w io.WriteSeeker, sampleRate int) *Recorder {
	return &Recorder{
		enc:  wav.NewEncoder(w, sampleRate, BitDepth, Channels, formatPCM),
		rate: sampleRate,
		buf: audio.IntBuffer{
			Format:         &audio.Format{NumChannels: Channels, SampleRate: sampleRate},
			SourceBitDepth: BitDepth,
		},
	}
}

// Transmit appends the first n samples of block.
func (r *Recorder) Transmit(block []int16, n int) error {
	if n < 0 || n > len(block) {
		return fmt.Errorf("%w: %d samples from block of %d", pkg.ErrBufferTooSmall, n, len(block))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf.Data = r.buf.Data[:0]
	for _, s := range block[:n] {
		r.buf.Data = append(r.buf.Data, int(s))
	}
	return r.flush()
}

// WritePacket appends an isochronous packet of little-endian samples.
func (r *Recorder) WritePacket(p []byte) error {
	if len(p)%2 != 0 {
		return fmt.Errorf("%w: odd packet length %d", pkg.ErrInvalidParameter, len(p))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf.Data = r.buf.Data[:0]
	for i := 0; i < len(p); i += 2 {
		r.buf.Data = append(r.buf.Data, int(int16(binary.LittleEndian.Uint16(p[i:]))))
	}
	return r.flush()
}

func (r *Recorder) flush() error {
	if r.closed {
		return pkg.ErrInvalidState
	}
	if len(r.buf.Data) == 0 {
		return nil
	}
	if err := r.enc.Write(&r.buf); err != nil {
		return fmt.Errorf("record: write: %w", err)
	}
	r.samples += len(r.buf.Data)
	return nil
}

// Samples returns the number of samples written.
func (r *Recorder) Samples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples
}

// Duration returns the length of the recording.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Duration(r.samples) * time.Second / time.Duration(r.rate)
}

// Close writes the WAV header and closes the file opened by Create.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	err := r.enc.Close()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("record: close: %w", err)
	}
	return nil
}
