package config

import (
	"time"

	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/button"
	"github.com/ardnew/usbmic/dsp"
	"github.com/ardnew/usbmic/firmware"
	"github.com/ardnew/usbmic/hal/sim"
	"github.com/ardnew/usbmic/pkg"
	"github.com/ardnew/usbmic/record"
	"github.com/ardnew/usbmic/uac"
)

// Profile is the complete description of a device and, for the simulator,
// the signal it hears and the events it sees.
type Profile struct {
	Log       LogConfig       `yaml:"log"`
	Audio     AudioConfig     `yaml:"audio"`
	Button    ButtonConfig    `yaml:"button"`
	Equalizer []int           `yaml:"equalizer"`
	Volume    VolumeConfig    `yaml:"volume"`
	USB       USBConfig       `yaml:"usb"`
	Firmware  FirmwareConfig  `yaml:"firmware"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// AudioConfig is the captured stream format.
type AudioConfig struct {
	SampleRate int           `yaml:"sample_rate"`
	Period     time.Duration `yaml:"period"`
}

// ButtonConfig describes the mute button.
type ButtonConfig struct {
	PressDelayMs   uint32 `yaml:"press_delay_ms"`
	ReleaseDelayMs uint32 `yaml:"release_delay_ms"`
	ActiveLow      bool   `yaml:"active_low"`
}

// VolumeConfig is the initial gain and the compressor.
type VolumeConfig struct {
	InitialPercent uint32            `yaml:"initial_percent"`
	Compression    CompressionConfig `yaml:"compression"`
}

// CompressionConfig mirrors dsp.Compression.
type CompressionConfig struct {
	Enabled     bool          `yaml:"enabled"`
	ThresholdDB float64       `yaml:"threshold_db"`
	Attack      time.Duration `yaml:"attack"`
	Release     time.Duration `yaml:"release"`
}

// USBConfig is the identity presented to the host.
type USBConfig struct {
	VendorID      uint16 `yaml:"vendor_id"`
	ProductID     uint16 `yaml:"product_id"`
	DeviceVersion uint16 `yaml:"device_version"`
	Manufacturer  string `yaml:"manufacturer"`
	Product       string `yaml:"product"`
	Serial        string `yaml:"serial"`
}

// FirmwareConfig holds foreground loop timing.
type FirmwareConfig struct {
	Tick        time.Duration `yaml:"tick"`
	BlinkPeriod time.Duration `yaml:"blink_period"`
}

// SimulatorConfig drives cmd/usbmic-sim.
type SimulatorConfig struct {
	Signal     SignalConfig `yaml:"signal"`
	QueueDepth int          `yaml:"queue_depth"`
	Scenario   []Step       `yaml:"scenario"`
}

// SignalConfig selects the simulated microphone input.
type SignalConfig struct {
	Kind      string  `yaml:"kind"` // sine, constant, silence, wav
	Frequency float64 `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude"`
	Value     int32   `yaml:"value"`
	Path      string  `yaml:"path"` // WAV file looped as input
}

// Signal kinds.
const (
	SignalSine     = "sine"
	SignalConstant = "constant"
	SignalSilence  = "silence"
	SignalWAV      = "wav"
)

// Step is one scripted event of a simulator scenario.
type Step struct {
	At     time.Duration `yaml:"at"`
	Action Action        `yaml:"action"`
	Value  int           `yaml:"value"`
	Band   int           `yaml:"band"`
}

// Action is a scenario event.
type Action string

// Scenario actions.
const (
	ActionPress     Action = "press"     // hold the mute button down
	ActionRelease   Action = "release"   // let the mute button go
	ActionVolume    Action = "volume"    // host SET_CUR volume, Value in 1/256 dB
	ActionMute      Action = "mute"      // host SET_CUR mute on
	ActionUnmute    Action = "unmute"    // host SET_CUR mute off
	ActionStop      Action = "stop"      // host selects alternate setting 0
	ActionRecord    Action = "record"    // host selects alternate setting 1
	ActionSuspend   Action = "suspend"   // bus suspend
	ActionResume    Action = "resume"    // bus resume
	ActionEqualizer Action = "equalizer" // set Band to Value dB
	ActionFault     Action = "fault"     // make the endpoint fail
)

var validActions = []Action{
	ActionPress, ActionRelease, ActionVolume, ActionMute, ActionUnmute,
	ActionStop, ActionRecord, ActionSuspend, ActionResume, ActionEqualizer,
	ActionFault,
}

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	for _, v := range validActions {
		if a == v {
			return true
		}
	}
	return false
}

// Default returns the profile of the reference microphone with a 1 kHz
// test tone and no scripted events.
func Default() Profile {
	fw := firmware.DefaultConfig()
	id := uac.DefaultConfig()

	eq := make([]int, dsp.Bands)
	for i, g := range fw.Equalizer {
		eq[i] = int(g)
	}

	return Profile{
		Log: LogConfig{Level: "warn", Format: "text"},
		Audio: AudioConfig{
			SampleRate: fw.Format.SampleRate,
			Period:     fw.Format.Period,
		},
		Button: ButtonConfig{
			PressDelayMs:   button.DefaultPressDelay,
			ReleaseDelayMs: button.DefaultReleaseDelay,
			ActiveLow:      fw.MuteActiveLow,
		},
		Equalizer: eq,
		Volume: VolumeConfig{
			InitialPercent: fw.Volume,
			Compression: CompressionConfig{
				Enabled:     fw.Compression.Enabled,
				ThresholdDB: fw.Compression.Threshold,
				Attack:      fw.Compression.Attack,
				Release:     fw.Compression.Release,
			},
		},
		USB: USBConfig{
			VendorID:      id.VendorID,
			ProductID:     id.ProductID,
			DeviceVersion: id.DeviceVersion,
			Manufacturer:  id.Manufacturer,
			Product:       id.Product,
			Serial:        id.Serial,
		},
		Firmware: FirmwareConfig{
			Tick:        fw.Tick,
			BlinkPeriod: fw.BlinkPeriod,
		},
		Simulator: SimulatorConfig{
			Signal: SignalConfig{
				Kind:      SignalSine,
				Frequency: 1000,
				Amplitude: 0.25,
			},
			QueueDepth: 64,
		},
	}
}

// Format returns the audio format.
func (p *Profile) Format() audio.Format {
	return audio.Format{SampleRate: p.Audio.SampleRate, Period: p.Audio.Period}
}

// Program returns the firmware configuration.
func (p *Profile) Program() firmware.Config {
	var preset dsp.Preset
	for i := 0; i < len(preset) && i < len(p.Equalizer); i++ {
		preset[i] = int8(p.Equalizer[i])
	}
	return firmware.Config{
		Format:        p.Format(),
		PressDelay:    p.Button.PressDelayMs,
		ReleaseDelay:  p.Button.ReleaseDelayMs,
		MuteActiveLow: p.Button.ActiveLow,
		Equalizer:     preset,
		Volume:        p.Volume.InitialPercent,
		Compression: dsp.Compression{
			Enabled:   p.Volume.Compression.Enabled,
			Threshold: p.Volume.Compression.ThresholdDB,
			Attack:    p.Volume.Compression.Attack,
			Release:   p.Volume.Compression.Release,
		},
		Tick:        p.Firmware.Tick,
		BlinkPeriod: p.Firmware.BlinkPeriod,
	}
}

// Device returns the USB stack configuration.
func (p *Profile) Device() uac.Config {
	return uac.Config{
		VendorID:      p.USB.VendorID,
		ProductID:     p.USB.ProductID,
		DeviceVersion: p.USB.DeviceVersion,
		Manufacturer:  p.USB.Manufacturer,
		Product:       p.USB.Product,
		Serial:        p.USB.Serial,
		SampleRate:    p.Audio.SampleRate,
		Volume:        p.Volume.InitialPercent,
	}
}

// Build returns the simulated input described by s. A WAV clip recorded
// at a different rate plays back at sampleRate without resampling.
func (s SignalConfig) Build(sampleRate int) (sim.Signal, error) {
	switch s.Kind {
	case SignalSine:
		return sim.NewSine(float64(sampleRate), s.Frequency, s.Amplitude), nil
	case SignalConstant:
		return sim.Constant(s.Value), nil
	case SignalWAV:
		clip, err := record.LoadClip(s.Path)
		if err != nil {
			return nil, err
		}
		if clip.SampleRate() != sampleRate {
			pkg.LogWarn(pkg.ComponentSim, "clip sample rate differs from stream",
				"path", s.Path, "clip", clip.SampleRate(), "stream", sampleRate)
		}
		return clip, nil
	default:
		return sim.Constant(0), nil
	}
}
