package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardnew/usbmic/firmware"
	"github.com/ardnew/usbmic/hal/sim"
	"github.com/ardnew/usbmic/pkg"
	"github.com/ardnew/usbmic/uac"
)

type rig struct {
	ctx     context.Context
	usb     *sim.USB
	capture *sim.CaptureSource
	program *firmware.Program
	stack   *uac.Stack
}

func newRig(t *testing.T) *rig {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	usb := sim.NewUSB(32)
	capture := sim.NewCaptureSource(sim.Constant(1000<<8), 0)
	streamer := uac.NewStreamer(usb, 48000)

	prog, err := firmware.New(firmware.Hardware{
		Capture: capture,
		Clock:   sim.NewManualClock(),
		MutePin: sim.NewPin(true),
		LinkPin: sim.NewPin(false),
		LivePin: sim.NewPin(false),
		Sink:    streamer,
	}, firmware.DefaultConfig())
	if err != nil {
		t.Fatalf("firmware.New() error = %v", err)
	}

	stack, err := uac.NewStack(usb, prog.Controls(), streamer, uac.DefaultConfig())
	if err != nil {
		t.Fatalf("NewStack() error = %v", err)
	}
	if err := stack.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { stack.Stop() })

	return &rig{ctx: ctx, usb: usb, capture: capture, program: prog, stack: stack}
}

func (r *rig) enumerate(t *testing.T) *Device {
	t.Helper()
	dev, err := Enumerate(r.ctx, r.usb.Host(), 7)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	return dev
}

func TestEnumerate(t *testing.T) {
	r := newRig(t)
	dev := r.enumerate(t)
	want := uac.DefaultConfig()

	if dev.Address != 7 || r.usb.Address() != 7 {
		t.Errorf("address = %d (bus %d), want 7", dev.Address, r.usb.Address())
	}
	if !r.stack.Configured() || dev.Configuration != uac.ConfigValue {
		t.Errorf("configuration = %d, configured = %v", dev.Configuration, r.stack.Configured())
	}
	if dev.Info.VendorID != want.VendorID || dev.Info.ProductID != want.ProductID {
		t.Errorf("id = %04x:%04x", dev.Info.VendorID, dev.Info.ProductID)
	}
	if dev.Info.Manufacturer != want.Manufacturer || dev.Info.Product != want.Product || dev.Info.Serial != want.Serial {
		t.Errorf("strings = %q %q %q", dev.Info.Manufacturer, dev.Info.Product, dev.Info.Serial)
	}
	if dev.Rate != 48000 || dev.Channels != 1 || dev.BitResolution != 16 {
		t.Errorf("format = %d Hz, %d ch, %d bit", dev.Rate, dev.Channels, dev.BitResolution)
	}
	if dev.Endpoint != uac.EndpointAddress || dev.MaxPacketSize != 96 {
		t.Errorf("endpoint = %#x, max packet %d", dev.Endpoint, dev.MaxPacketSize)
	}
	if dev.VolumeMin != uac.VolumeMin || dev.VolumeMax != uac.VolumeMax || dev.VolumeRes != uac.VolumeRes {
		t.Errorf("volume range = [%d, %d] step %d", dev.VolumeMin, dev.VolumeMax, dev.VolumeRes)
	}
}

func TestEnumerate_InvalidAddress(t *testing.T) {
	r := newRig(t)
	for _, addr := range []uint8{0, 128} {
		if _, err := Enumerate(r.ctx, r.usb.Host(), addr); !errors.Is(err, pkg.ErrInvalidParameter) {
			t.Errorf("Enumerate(%d) error = %v, want ErrInvalidParameter", addr, err)
		}
	}
}

func TestDevice_VolumeAndMute(t *testing.T) {
	r := newRig(t)
	dev := r.enumerate(t)

	if err := dev.SetVolume(r.ctx, -20*256); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	if got, err := dev.Volume(r.ctx); err != nil || got != -20*256 {
		t.Errorf("Volume() = %d, %v, want %d", got, err, -20*256)
	}

	if err := dev.SetMute(r.ctx, true); err != nil {
		t.Fatalf("SetMute() error = %v", err)
	}
	if muted, err := dev.Muted(r.ctx); err != nil || !muted {
		t.Errorf("Muted() = %v, %v, want true", muted, err)
	}
	if !r.program.Controls().SoftMuted() {
		t.Error("firmware not soft muted")
	}
	if err := dev.SetMute(r.ctx, false); err != nil {
		t.Fatal(err)
	}
	if r.program.Controls().SoftMuted() {
		t.Error("firmware still soft muted")
	}
}

func TestDevice_SampleRate(t *testing.T) {
	r := newRig(t)
	dev := r.enumerate(t)

	if got, err := dev.SampleRate(r.ctx); err != nil || got != 48000 {
		t.Errorf("SampleRate() = %d, %v, want 48000", got, err)
	}
	if err := dev.SetSampleRate(r.ctx, 48000); err != nil {
		t.Errorf("SetSampleRate(48000) error = %v", err)
	}
	if err := dev.SetSampleRate(r.ctx, 44100); !errors.Is(err, pkg.ErrStall) {
		t.Errorf("SetSampleRate(44100) error = %v, want ErrStall", err)
	}
}

func TestDevice_Streaming(t *testing.T) {
	r := newRig(t)
	dev := r.enumerate(t)

	if err := dev.StartStreaming(r.ctx); err != nil {
		t.Fatalf("StartStreaming() error = %v", err)
	}
	if !r.capture.Running() {
		t.Fatal("capture not running after StartStreaming")
	}

	// One half-block is 10ms: ten 1ms packets of 48 samples.
	if !r.capture.Step() {
		t.Fatal("Step() delivered nothing")
	}
	for i := 0; i < 10; i++ {
		pkt, err := r.usb.Host().ReadPacket(r.ctx)
		if err != nil {
			t.Fatalf("ReadPacket() #%d error = %v", i, err)
		}
		if len(pkt) != int(dev.MaxPacketSize) {
			t.Errorf("packet %d length = %d, want %d", i, len(pkt), dev.MaxPacketSize)
		}
	}

	if err := dev.StopStreaming(r.ctx); err != nil {
		t.Fatalf("StopStreaming() error = %v", err)
	}
	if r.capture.Running() {
		t.Error("capture still running after StopStreaming")
	}
}

func TestParseConfiguration_NotMicrophone(t *testing.T) {
	// Configuration header and a single vendor interface.
	cfg := []byte{
		9, uac.DescriptorTypeConfiguration, 18, 0, 1, 1, 0, 0x80, 50,
		9, uac.DescriptorTypeInterface, 0, 0, 0, 0xff, 0, 0, 0,
	}
	var d Device
	if err := d.parseConfiguration(cfg); !errors.Is(err, ErrNotMicrophone) {
		t.Errorf("parseConfiguration() = %v, want ErrNotMicrophone", err)
	}

	if err := d.parseConfiguration(cfg[:4]); !errors.Is(err, ErrEnumerationFailed) {
		t.Errorf("short parseConfiguration() = %v, want ErrEnumerationFailed", err)
	}

	bad := append([]byte(nil), cfg...)
	bad[9] = 40 // runs past the end
	if err := d.parseConfiguration(bad); !errors.Is(err, ErrEnumerationFailed) {
		t.Errorf("truncated parseConfiguration() = %v, want ErrEnumerationFailed", err)
	}
}
