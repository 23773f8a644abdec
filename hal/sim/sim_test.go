package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/pkg"
)

func TestPin(t *testing.T) {
	p := NewPin(true)
	if !p.Get() {
		t.Fatal("initial level should be high")
	}
	p.Set(false)
	p.Drive(true)
	if !p.Get() {
		t.Error("Drive should change level")
	}
	if p.Writes() != 1 {
		t.Errorf("Writes() = %d, want 1", p.Writes())
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock()
	c.AdvanceMillis(3)
	c.Advance(1500 * time.Microsecond)
	if got := c.Millis(); got != 4 {
		t.Errorf("Millis() = %d, want 4", got)
	}
	if got := c.Micros(); got != 4500 {
		t.Errorf("Micros() = %d, want 4500", got)
	}
}

func TestSine(t *testing.T) {
	s := NewSine(48000, 12000, 1)
	want := []int32{0, FullScale24, 0, -FullScale24}
	for i, w := range want {
		if got := s.Next(); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestCaptureSource_Alternates(t *testing.T) {
	src := NewCaptureSource(Constant(0x123456), 0)
	var order []string
	src.SetCallbacks(
		func() { order = append(order, "half") },
		func() { order = append(order, "full") },
	)

	if src.Step() {
		t.Fatal("Step before Receive should not deliver")
	}

	buf := make([]int32, 8)
	if err := src.Receive(buf); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	for i := 0; i < 4; i++ {
		src.Step()
	}

	want := []string{"half", "full", "half", "full"}
	if len(order) != len(want) {
		t.Fatalf("callbacks = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("callback %d = %s, want %s", i, order[i], want[i])
		}
	}
	for i := 0; i < len(buf); i += 2 {
		if buf[i] != 0x12345600 || buf[i+1] != 0 {
			t.Errorf("frame %d = (%#x, %#x), want (0x12345600, 0)", i/2, buf[i], buf[i+1])
		}
	}
	if src.Delivered() != 4 {
		t.Errorf("Delivered() = %d, want 4", src.Delivered())
	}
}

func TestCaptureSource_States(t *testing.T) {
	src := NewCaptureSource(nil, 0)
	buf := make([]int32, 8)

	if err := src.Resume(); !errors.Is(err, pkg.ErrInvalidState) {
		t.Errorf("Resume() while idle = %v, want ErrInvalidState", err)
	}
	if err := src.Receive(buf); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if err := src.Receive(buf); !errors.Is(err, pkg.ErrBusy) {
		t.Errorf("second Receive() = %v, want ErrBusy", err)
	}
	if err := src.Resume(); !errors.Is(err, pkg.ErrInvalidState) {
		t.Errorf("Resume() while running = %v, want ErrInvalidState", err)
	}
	if err := src.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if src.Step() {
		t.Error("Step while paused should not deliver")
	}
	if err := src.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if !src.Step() {
		t.Error("Step after Resume should deliver")
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if src.Running() {
		t.Error("Running() after Stop should be false")
	}
}

func TestCaptureSource_FailNext(t *testing.T) {
	src := NewCaptureSource(nil, 0)
	src.FailNext(OpReceive, pkg.StatusError)

	buf := make([]int32, 8)
	if err := src.Receive(buf); !errors.Is(err, pkg.ErrHardware) {
		t.Fatalf("Receive() = %v, want ErrHardware", err)
	}
	if src.Running() {
		t.Fatal("failed Receive should not start the source")
	}
	if err := src.Receive(buf); err != nil {
		t.Fatalf("Receive() after injected failure = %v", err)
	}
}

func TestCaptureSource_FailNextStatus(t *testing.T) {
	tests := []struct {
		status pkg.Status
		want   error
	}{
		{pkg.StatusError, pkg.ErrHardware},
		{pkg.StatusBusy, pkg.ErrBusy},
		{pkg.StatusTimeout, pkg.ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			src := NewCaptureSource(nil, 0)
			if err := src.Receive(make([]int32, 8)); err != nil {
				t.Fatal(err)
			}
			src.FailNext(OpPause, tt.status)
			err := src.Pause()
			if !errors.Is(err, tt.want) {
				t.Errorf("Pause() = %v, want %v", err, tt.want)
			}
			if got := pkg.StatusOf(err); got != tt.status {
				t.Errorf("StatusOf(Pause()) = %v, want %v", got, tt.status)
			}
			// An OK status injects nothing.
			src.FailNext(OpPause, pkg.StatusOK)
			if err := src.Pause(); err != nil {
				t.Errorf("Pause() after OK status = %v", err)
			}
		})
	}
}

func TestCaptureSource_Ticker(t *testing.T) {
	src := NewCaptureSource(nil, time.Millisecond)
	done := make(chan struct{})
	var n int
	src.SetCallbacks(func() { n++ }, func() {
		n++
		if n == 4 {
			close(done)
		}
	})
	if err := src.Receive(make([]int32, 8)); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	defer src.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for deliveries")
	}
}

func TestUSB_Control(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	u := NewUSB(4)
	go func() {
		var setup hal.SetupPacket
		for {
			if err := u.ReadSetup(ctx, &setup); err != nil {
				return
			}
			switch {
			case setup.Request == 0xFF:
				u.StallEP0()
			case setup.IsDeviceToHost():
				u.WriteEP0(ctx, []byte{1, 2, 3, 4})
				u.ReadEP0(ctx, nil)
			default:
				buf := make([]byte, setup.Length)
				u.ReadEP0(ctx, buf)
				u.AckEP0()
			}
		}
	}()

	host := u.Host()
	data, err := host.Control(ctx, hal.SetupPacket{
		RequestType: hal.RequestDirectionDeviceToHost,
		Length:      2,
	}, nil)
	if err != nil {
		t.Fatalf("IN Control() error = %v", err)
	}
	if len(data) != 2 || data[0] != 1 || data[1] != 2 {
		t.Errorf("IN data = %v, want [1 2]", data)
	}

	if _, err := host.Control(ctx, hal.SetupPacket{Length: 1}, []byte{9}); err != nil {
		t.Errorf("OUT Control() error = %v", err)
	}

	_, err = host.Control(ctx, hal.SetupPacket{Request: 0xFF}, nil)
	if !errors.Is(err, pkg.ErrStall) {
		t.Errorf("Control() = %v, want ErrStall", err)
	}
}

func TestUSB_BusEvents(t *testing.T) {
	ctx := context.Background()
	u := NewUSB(0)
	host := u.Host()

	host.Reset()
	host.Suspend()
	host.Resume()

	var setup hal.SetupPacket
	for _, want := range []error{pkg.ErrReset, pkg.ErrSuspend, pkg.ErrResume} {
		if err := u.ReadSetup(ctx, &setup); !errors.Is(err, want) {
			t.Errorf("ReadSetup() = %v, want %v", err, want)
		}
	}
}

func TestUSB_IsochronousQueue(t *testing.T) {
	ctx := context.Background()
	u := NewUSB(2)
	host := u.Host()

	if _, err := u.Write(ctx, 0x81, []byte{0}); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Write() before Start = %v, want ErrNotConfigured", err)
	}
	if err := u.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !u.IsConnected() || u.GetSpeed() != hal.SpeedFull {
		t.Fatal("device should be connected at full speed")
	}

	// Disabled endpoint discards.
	if n, err := u.Write(ctx, 0x81, []byte{0}); n != 0 || err != nil {
		t.Errorf("Write() to disabled endpoint = (%d, %v), want (0, nil)", n, err)
	}

	err := u.ConfigureEndpoints([]hal.EndpointConfig{{Address: 0x81, Attributes: 0x05, MaxPacketSize: 96}})
	if err != nil {
		t.Fatalf("ConfigureEndpoints() error = %v", err)
	}
	for i := byte(1); i <= 3; i++ {
		if _, err := u.Write(ctx, 0x81, []byte{i}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if host.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", host.Dropped())
	}
	for _, want := range []byte{2, 3} {
		pkt, err := host.ReadPacket(ctx)
		if err != nil {
			t.Fatalf("ReadPacket() error = %v", err)
		}
		if len(pkt) != 1 || pkt[0] != want {
			t.Errorf("packet = %v, want [%d]", pkt, want)
		}
	}

	u.FailWrites(pkg.ErrHardware)
	if _, err := u.Write(ctx, 0x81, []byte{0}); !errors.Is(err, pkg.ErrHardware) {
		t.Errorf("Write() = %v, want ErrHardware", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := host.ReadPacket(cctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadPacket() on empty queue = %v, want context.Canceled", err)
	}
}
