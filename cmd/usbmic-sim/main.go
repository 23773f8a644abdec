// Command usbmic-sim runs the microphone firmware against a simulated
// microphone, mute button and USB host, and records what the host
// receives to a WAV file.
//
// Usage:
//
//	usbmic-sim [options]
//
// Options:
//
//	-config path      YAML device profile (default: built-in profile)
//	-out path         WAV file receiving the host's recording (default: usbmic.wav)
//	-duration d       Length of the run (default: 2s)
//	-v                Enable verbose (debug) logging
//	-json             Use JSON log format
//
// The profile's simulator.scenario scripts button presses and host
// requests at fixed offsets from the start of the run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/usbmic/config"
	"github.com/ardnew/usbmic/firmware"
	"github.com/ardnew/usbmic/hal/sim"
	"github.com/ardnew/usbmic/host"
	"github.com/ardnew/usbmic/pkg"
	"github.com/ardnew/usbmic/record"
	"github.com/ardnew/usbmic/uac"
)

// component identifies this executable for structured logging.
const component = pkg.ComponentSim

// deviceAddress is assigned to the microphone during enumeration.
const deviceAddress = 1

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML device profile")
	outPath := flag.String("out", "usbmic.wav", "WAV file receiving the recording")
	duration := flag.Duration("duration", 2*time.Second, "length of the run")
	verbose := flag.Bool("v", false, "enable verbose (debug) logging")
	jsonLog := flag.Bool("json", false, "use JSON log format")
	flag.Parse()

	profile, err := loadProfile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "usbmic-sim: %v\n", err)
		return 1
	}

	level, format, err := logSettings(profile.Log, *verbose, *jsonLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "usbmic-sim: %v\n", err)
		return 1
	}
	pkg.SetLogFormat(format)
	pkg.SetLogLevel(level)

	s, err := newSimulation(profile)
	if err != nil {
		pkg.LogError(component, "setup failed", "error", err)
		return 1
	}

	rec, err := record.Create(*outPath, profile.Audio.SampleRate)
	if err != nil {
		pkg.LogError(component, "create recording", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	pkg.LogInfo(component, "simulation starting",
		"format", profile.Format().String(),
		"duration", *duration,
		"out", *outPath,
		"steps", len(profile.Simulator.Scenario))

	runErr := s.run(ctx, rec)
	if err := rec.Close(); err != nil {
		pkg.LogError(component, "close recording", "error", err)
		return 1
	}
	s.summarize(os.Stdout, rec, *outPath)

	if runErr != nil {
		pkg.LogError(component, "simulation failed", "error", runErr)
		return 1
	}
	return 0
}

// logSettings resolves the profile's logging options; -v and -json
// override them.
func logSettings(c config.LogConfig, verbose, jsonLog bool) (slog.Level, pkg.LogFormat, error) {
	level, err := pkg.ParseLogLevel(c.Level)
	if err != nil {
		return level, pkg.LogFormatText, err
	}
	format, err := c.LogFormat()
	if err != nil {
		return level, format, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	if jsonLog {
		format = pkg.LogFormatJSON
	}
	return level, format, nil
}

func loadProfile(path string) (*config.Profile, error) {
	if path == "" {
		p := config.Default()
		return &p, nil
	}
	return config.Load(path)
}

// simulation is the firmware wired to simulated peripherals.
type simulation struct {
	profile *config.Profile

	usb     *sim.USB
	capture *sim.CaptureSource
	mutePin *sim.Pin
	linkPin *sim.Pin
	livePin *sim.Pin

	program *firmware.Program
	stack   *uac.Stack
}

func newSimulation(p *config.Profile) (*simulation, error) {
	input, err := p.Simulator.Signal.Build(p.Audio.SampleRate)
	if err != nil {
		return nil, err
	}

	s := &simulation{
		profile: p,
		usb:     sim.NewUSB(p.Simulator.QueueDepth),
		capture: sim.NewCaptureSource(input, p.Format().HalfPeriod()),
		mutePin: sim.NewPin(p.Button.ActiveLow), // released
		linkPin: sim.NewPin(false),
		livePin: sim.NewPin(false),
	}

	streamer := uac.NewStreamer(s.usb, p.Audio.SampleRate)
	s.program, err = firmware.New(firmware.Hardware{
		Capture: s.capture,
		Clock:   sim.NewSystemClock(),
		MutePin: s.mutePin,
		LinkPin: s.linkPin,
		LivePin: s.livePin,
		Sink:    streamer,
	}, p.Program())
	if err != nil {
		return nil, fmt.Errorf("firmware: %w", err)
	}

	s.stack, err = uac.NewStack(s.usb, s.program.Controls(), streamer, p.Device())
	if err != nil {
		return nil, fmt.Errorf("usb: %w", err)
	}
	return s, nil
}

// run serves the device, the host and the scenario until ctx ends or one
// of them fails.
func (s *simulation) run(ctx context.Context, rec *record.Recorder) error {
	g, gctx := errgroup.WithContext(ctx)
	ready := make(chan *host.Device, 1)

	g.Go(func() error { return quiet(s.stack.Run(gctx)) })
	g.Go(func() error { return quiet(s.program.Run(gctx)) })
	g.Go(func() error { return quiet(s.host(gctx, rec, ready)) })
	g.Go(func() error { return quiet(s.play(gctx, ready)) })

	return g.Wait()
}

// quiet treats the end of the run as success.
func quiet(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// host enumerates the microphone, starts streaming and records every
// packet it receives.
func (s *simulation) host(ctx context.Context, rec *record.Recorder, ready chan<- *host.Device) error {
	bus := s.usb.Host()
	dev, err := host.Enumerate(ctx, bus, deviceAddress)
	if err != nil {
		return fmt.Errorf("enumerate: %w", err)
	}
	if err := dev.StartStreaming(ctx); err != nil {
		return fmt.Errorf("start streaming: %w", err)
	}
	ready <- dev

	for {
		pkt, err := bus.ReadPacket(ctx)
		if err != nil {
			return err
		}
		if err := rec.WritePacket(pkt); err != nil {
			return err
		}
	}
}
