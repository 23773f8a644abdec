package record

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// Clip is a decoded WAV file played back as a looping 24-bit signal.
// Multi-channel files contribute their first channel.
type Clip struct {
	samples []int32
	pos     int
	rate    int
}

// errInvalidWAV reports a file the decoder does not recognize.
var errInvalidWAV = errors.New("not a PCM WAV file")

// LoadClip decodes the WAV file at path.
func LoadClip(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("record: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("record: %q: %w", path, errInvalidWAV)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("record: decode %q: %w", path, err)
	}

	chans := int(dec.NumChans)
	if chans < 1 {
		chans = 1
	}
	shift := 24 - int(dec.BitDepth)

	c := &Clip{
		samples: make([]int32, 0, len(buf.Data)/chans),
		rate:    int(dec.SampleRate),
	}
	for i := 0; i < len(buf.Data); i += chans {
		v := int32(buf.Data[i])
		if dec.BitDepth == 8 {
			v -= 128 // unsigned
		}
		switch {
		case shift > 0:
			v <<= shift
		case shift < 0:
			v >>= -shift
		}
		c.samples = append(c.samples, v)
	}
	return c, nil
}

// SampleRate returns the rate the file was recorded at.
func (c *Clip) SampleRate() int { return c.rate }

// Len returns the number of samples in one loop.
func (c *Clip) Len() int { return len(c.samples) }

// Next returns the next sample, wrapping at the end. An empty clip is
// silent.
func (c *Clip) Next() int32 {
	if len(c.samples) == 0 {
		return 0
	}
	v := c.samples[c.pos]
	if c.pos++; c.pos == len(c.samples) {
		c.pos = 0
	}
	return v
}
