package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf16"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/usbmic/dsp"
	"github.com/ardnew/usbmic/pkg"
)

// maxStringUnits is the longest string a USB string descriptor can carry.
const maxStringUnits = 126

// Load reads the YAML profile at path on top of Default and validates it.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	p, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return p, nil
}

// LoadFromReader decodes a YAML profile from r. Keys absent from the
// document keep their default value; unknown keys are an error.
func LoadFromReader(r io.Reader) (*Profile, error) {
	p := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks p for errors that the decoder cannot catch.
func Validate(p *Profile) error {
	var errs []error

	if _, err := pkg.ParseLogLevel(p.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q is invalid", p.Log.Level))
	}
	if _, err := p.Log.LogFormat(); err != nil {
		errs = append(errs, err)
	}

	if len(p.Equalizer) != dsp.Bands {
		errs = append(errs, fmt.Errorf("equalizer has %d bands, want %d", len(p.Equalizer), dsp.Bands))
	}
	for i, g := range p.Equalizer {
		if g < dsp.MinBandGain || g > dsp.MaxBandGain {
			errs = append(errs, fmt.Errorf("equalizer[%d] gain %d dB outside [%d, %d]",
				i, g, dsp.MinBandGain, dsp.MaxBandGain))
		}
	}

	if err := p.Program().Validate(); err != nil {
		errs = append(errs, err)
	}
	if p.Audio.SampleRate >= 1<<24 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d does not fit the descriptor", p.Audio.SampleRate))
	}

	for _, s := range [...]struct{ key, val string }{
		{"usb.manufacturer", p.USB.Manufacturer},
		{"usb.product", p.USB.Product},
		{"usb.serial", p.USB.Serial},
	} {
		if len(utf16.Encode([]rune(s.val))) > maxStringUnits {
			errs = append(errs, fmt.Errorf("%s is longer than %d UTF-16 units", s.key, maxStringUnits))
		}
	}

	sc := p.Simulator
	switch sc.Signal.Kind {
	case SignalSine:
		if sc.Signal.Frequency <= 0 || sc.Signal.Frequency >= float64(p.Audio.SampleRate)/2 {
			errs = append(errs, fmt.Errorf("simulator.signal.frequency %g Hz is outside (0, Nyquist)", sc.Signal.Frequency))
		}
		if sc.Signal.Amplitude < 0 || sc.Signal.Amplitude > 1 {
			errs = append(errs, fmt.Errorf("simulator.signal.amplitude %g is outside [0, 1]", sc.Signal.Amplitude))
		}
	case SignalWAV:
		if sc.Signal.Path == "" {
			errs = append(errs, errors.New("simulator.signal.path is required for wav input"))
		}
	case SignalConstant, SignalSilence:
	default:
		errs = append(errs, fmt.Errorf("simulator.signal.kind %q is invalid", sc.Signal.Kind))
	}
	if sc.QueueDepth <= 0 {
		errs = append(errs, fmt.Errorf("simulator.queue_depth must be positive, got %d", sc.QueueDepth))
	}
	for i, step := range sc.Scenario {
		if !step.Action.IsValid() {
			errs = append(errs, fmt.Errorf("simulator.scenario[%d].action %q is invalid", i, step.Action))
		}
		if step.At < 0 {
			errs = append(errs, fmt.Errorf("simulator.scenario[%d].at %v is negative", i, step.At))
		}
		if step.Action == ActionEqualizer && (step.Band < 0 || step.Band >= dsp.Bands) {
			errs = append(errs, fmt.Errorf("simulator.scenario[%d].band %d is invalid", i, step.Band))
		}
	}

	return errors.Join(errs...)
}

// LogFormat parses the configured log encoding.
func (c LogConfig) LogFormat() (pkg.LogFormat, error) {
	switch c.Format {
	case "", "text":
		return pkg.LogFormatText, nil
	case "json":
		return pkg.LogFormatJSON, nil
	}
	return pkg.LogFormatText, fmt.Errorf("log.format %q is invalid (want text or json)", c.Format)
}
