package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ardnew/usbmic/config"
	"github.com/ardnew/usbmic/pkg"
	"github.com/ardnew/usbmic/record"
)

func newTestSimulation(t *testing.T, steps ...config.Step) (*simulation, *record.Recorder) {
	t.Helper()
	p := config.Default()
	p.Simulator.Scenario = steps
	if err := config.Validate(&p); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	s, err := newSimulation(&p)
	if err != nil {
		t.Fatalf("newSimulation() error = %v", err)
	}
	rec, err := record.Create(filepath.Join(t.TempDir(), "out.wav"), p.Audio.SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rec.Close() })
	return s, rec
}

func TestSimulation_Records(t *testing.T) {
	s, rec := newTestSimulation(t,
		config.Step{At: 10 * time.Millisecond, Action: config.ActionVolume, Value: -10 * 256},
		config.Step{At: 20 * time.Millisecond, Action: config.ActionEqualizer, Band: 0, Value: 6},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := s.run(ctx, rec); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if rec.Samples() == 0 {
		t.Error("nothing recorded")
	}
	if got := s.program.Controls().CurrentVolume(); got != -10*256 {
		t.Errorf("volume = %d, want %d", got, -10*256)
	}
	if got := s.program.Equalizer().Band(0); got != 6 {
		t.Errorf("band 0 = %d, want 6", got)
	}

	var out bytes.Buffer
	s.summarize(&out, rec, "out.wav")
	for _, want := range []string{"pipeline", "recording", "out.wav"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, out.String())
		}
	}
}

func TestSimulation_Fault(t *testing.T) {
	s, rec := newTestSimulation(t,
		config.Step{At: 20 * time.Millisecond, Action: config.ActionFault},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := s.run(ctx, rec); err == nil {
		t.Fatal("run() succeeded after an endpoint fault")
	}
	if !s.program.Pipeline().Faulted() {
		t.Error("pipeline not faulted")
	}
}

func TestApply_Button(t *testing.T) {
	s, _ := newTestSimulation(t)

	// Active-low button: pressing pulls the line low.
	if err := s.apply(context.Background(), nil, config.Step{Action: config.ActionPress}); err != nil {
		t.Fatal(err)
	}
	if s.mutePin.Get() {
		t.Error("press left the line high")
	}
	if err := s.apply(context.Background(), nil, config.Step{Action: config.ActionRelease}); err != nil {
		t.Fatal(err)
	}
	if !s.mutePin.Get() {
		t.Error("release left the line low")
	}
}

func TestLogSettings(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.LogConfig
		verbose    bool
		jsonLog    bool
		wantLevel  slog.Level
		wantFormat pkg.LogFormat
		wantErr    bool
	}{
		{"profile", config.LogConfig{Level: "info", Format: "json"}, false, false, slog.LevelInfo, pkg.LogFormatJSON, false},
		{"flags override", config.LogConfig{Level: "error", Format: "text"}, true, true, slog.LevelDebug, pkg.LogFormatJSON, false},
		{"bad level", config.LogConfig{Level: "loud"}, false, false, 0, 0, true},
		{"bad format", config.LogConfig{Level: "warn", Format: "xml"}, false, false, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, format, err := logSettings(tt.cfg, tt.verbose, tt.jsonLog)
			if (err != nil) != tt.wantErr {
				t.Fatalf("logSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if level != tt.wantLevel || format != tt.wantFormat {
				t.Errorf("logSettings() = %v, %v, want %v, %v", level, format, tt.wantLevel, tt.wantFormat)
			}
		})
	}
}

func TestQuiet(t *testing.T) {
	if quiet(context.Canceled) != nil || quiet(context.DeadlineExceeded) != nil || quiet(nil) != nil {
		t.Error("quiet() reported the end of the run")
	}
	if quiet(errTest) == nil {
		t.Error("quiet() swallowed a real error")
	}
}

var errTest = errorString("test")

type errorString string

func (e errorString) Error() string { return string(e) }
