package uac

import (
	"context"
	"encoding/binary"
	"sync/atomic"

	"github.com/ardnew/usbmic/hal"
)

// Streamer sends processed audio to the host on the isochronous endpoint.
//
// It implements audio.Sink. Each block is split into 1 ms packets of
// little-endian int16 samples. While the host has not selected the
// operational alternate setting, blocks are dropped without error.
type Streamer struct {
	usb       hal.USB
	ctx       atomic.Pointer[context.Context]
	perPacket int
	packet    []byte

	active  atomic.Bool
	packets atomic.Uint64
	dropped atomic.Uint64
}

// NewStreamer returns a streamer writing to usb at sampleRate.
func NewStreamer(usb hal.USB, sampleRate int) *Streamer {
	s := &Streamer{
		usb:       usb,
		perPacket: sampleRate / 1000,
		packet:    make([]byte, PacketSize(sampleRate)),
	}
	s.bind(context.Background())
	return s
}

// bind sets the context used for endpoint writes.
func (s *Streamer) bind(ctx context.Context) { s.ctx.Store(&ctx) }

func (s *Streamer) activate()   { s.active.Store(true) }
func (s *Streamer) deactivate() { s.active.Store(false) }

// Active reports whether the host is receiving the stream.
func (s *Streamer) Active() bool { return s.active.Load() }

// Packets returns the number of packets written.
func (s *Streamer) Packets() uint64 { return s.packets.Load() }

// Dropped returns the number of blocks discarded while inactive.
func (s *Streamer) Dropped() uint64 { return s.dropped.Load() }

// Transmit writes samples values of block as packets.
func (s *Streamer) Transmit(block []int16, samples int) error {
	ctx := *s.ctx.Load()
	if !s.active.Load() || ctx.Err() != nil {
		s.dropped.Add(1)
		return nil
	}

	for off := 0; off < samples; off += s.perPacket {
		n := min(s.perPacket, samples-off)
		for i, v := range block[off : off+n] {
			binary.LittleEndian.PutUint16(s.packet[i*2:], uint16(v))
		}
		if _, err := s.usb.Write(ctx, EndpointAddress, s.packet[:n*2]); err != nil {
			return err
		}
		s.packets.Add(1)
	}
	return nil
}
