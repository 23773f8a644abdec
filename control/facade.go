package control

import (
	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/dsp"
	"github.com/ardnew/usbmic/pkg"
)

// Capture is the lifecycle surface of the capture pipeline.
type Capture interface {
	Start() error
	Stop() error
	Pause() error
	Resume() error
	State() audio.State
}

// Volume is the gain stage controlled by the host.
type Volume interface {
	SetVolume(halfDB int16)
	Volume() int16
	SetMute(muted bool)
	IsMuted() bool
}

// Indicator is an LED.
type Indicator interface {
	Set(on bool)
}

// levelPerStep is the number of 1/256 dB host volume units in one native
// half-dB step.
const levelPerStep = 128

// LevelToNative converts a host volume in 1/256 dB to native half-dB
// units, clamped to [dsp.MinVolume, dsp.MaxVolume].
func LevelToNative(level int16) int16 {
	return dsp.ClampVolume(int(level) / levelPerStep)
}

// NativeToLevel converts native half-dB units to a host volume in
// 1/256 dB.
func NativeToLevel(native int16) int16 {
	return int16(int(dsp.ClampVolume(int(native))) * levelPerStep)
}

// PercentToNative maps a volume of 0 to 100 percent linearly onto
// [dsp.MinVolume, dsp.MaxVolume]: 0 percent is the minimum gain. Values
// above 100 select the maximum. Only Init takes percent; Volume takes a
// host level in dB.
func PercentToNative(percent uint32) int16 {
	percent = min(percent, 100)
	span := int(dsp.MaxVolume) - int(dsp.MinVolume)
	return dsp.ClampVolume(int(dsp.MinVolume) + int(percent)*span/100)
}

// Facade carries out host audio commands on the device.
//
// Lifecycle commands forward to the capture pipeline and return its errors
// unchanged. Volume and mute commands never fail: out-of-range values are
// clamped.
type Facade struct {
	capture Capture
	volume  Volume
	link    Indicator
	rate    uint32
}

// New returns a facade for a device streaming at sampleRate.
// The link indicator is optional.
func New(capture Capture, volume Volume, link Indicator, sampleRate uint32) *Facade {
	return &Facade{
		capture: capture,
		volume:  volume,
		link:    link,
		rate:    sampleRate,
	}
}

// SampleRate returns the only rate the device streams at.
func (f *Facade) SampleRate() uint32 { return f.rate }

// Init is called when the host enables the audio function. It lights the
// link indicator and applies an initial volume in percent.
func (f *Facade) Init(freq, volumePercent, options uint32) error {
	if freq != 0 && freq != f.rate {
		pkg.LogWarn(pkg.ComponentControl, "unsupported sample rate", "freq", freq, "rate", f.rate)
		return pkg.ErrNotSupported
	}
	if f.link != nil {
		f.link.Set(true)
	}
	f.volume.SetVolume(PercentToNative(volumePercent))
	pkg.LogInfo(pkg.ComponentControl, "audio init",
		"freq", f.rate, "volume", f.volume.Volume(), "options", options)
	return nil
}

// DeInit is called when the host disables the audio function.
func (f *Facade) DeInit(options uint32) error {
	if f.capture.State() != audio.StateStopped {
		if err := f.capture.Stop(); err != nil {
			return err
		}
	}
	if f.link != nil {
		f.link.Set(false)
	}
	pkg.LogInfo(pkg.ComponentControl, "audio deinit", "options", options)
	return nil
}

// Record starts capture.
func (f *Facade) Record() error {
	pkg.LogDebug(pkg.ComponentControl, "record")
	return f.capture.Start()
}

// Stop ends capture.
func (f *Facade) Stop() error {
	pkg.LogDebug(pkg.ComponentControl, "stop")
	return f.capture.Stop()
}

// Pause suspends capture.
func (f *Facade) Pause() error {
	pkg.LogDebug(pkg.ComponentControl, "pause")
	return f.capture.Pause()
}

// Resume continues capture.
func (f *Facade) Resume() error {
	pkg.LogDebug(pkg.ComponentControl, "resume")
	return f.capture.Resume()
}

// Volume sets the gain from a host level in 1/256 dB. A level of 0 is
// 0 dB, not the minimum; see PercentToNative for the percent scale Init
// uses.
func (f *Facade) Volume(level int16) error {
	native := LevelToNative(level)
	f.volume.SetVolume(native)
	pkg.LogDebug(pkg.ComponentControl, "volume", "level", level, "native", native)
	return nil
}

// CurrentVolume returns the gain as a host level in 1/256 dB.
func (f *Facade) CurrentVolume() int16 {
	return NativeToLevel(f.volume.Volume())
}

// Mute sets the host mute; a non-zero cmd mutes.
func (f *Facade) Mute(cmd uint8) error {
	f.volume.SetMute(cmd != 0)
	pkg.LogDebug(pkg.ComponentControl, "mute", "muted", cmd != 0)
	return nil
}

// SoftMuted reports whether the host has muted the device.
func (f *Facade) SoftMuted() bool { return f.volume.IsMuted() }

// Command accepts a miscellaneous class command. It has no effect.
func (f *Facade) Command(cmd uint8) error {
	pkg.LogDebug(pkg.ComponentControl, "command", "cmd", cmd)
	return nil
}
