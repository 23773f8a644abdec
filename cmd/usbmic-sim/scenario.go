package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ardnew/usbmic/config"
	"github.com/ardnew/usbmic/host"
	"github.com/ardnew/usbmic/pkg"
	"github.com/ardnew/usbmic/record"
)

// play applies the scenario steps at their offsets from the moment the
// host starts streaming.
func (s *simulation) play(ctx context.Context, ready <-chan *host.Device) error {
	var dev *host.Device
	select {
	case <-ctx.Done():
		return ctx.Err()
	case dev = <-ready:
	}

	steps := append([]config.Step(nil), s.profile.Simulator.Scenario...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].At < steps[j].At })

	start := time.Now()
	for _, step := range steps {
		timer := time.NewTimer(time.Until(start.Add(step.At)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		pkg.LogInfo(component, "scenario step", "at", step.At, "action", step.Action, "value", step.Value)
		if err := s.apply(ctx, dev, step); err != nil {
			return fmt.Errorf("scenario %s at %v: %w", step.Action, step.At, err)
		}
	}
	return nil
}

func (s *simulation) apply(ctx context.Context, dev *host.Device, step config.Step) error {
	pressed := !s.profile.Button.ActiveLow
	bus := s.usb.Host()

	switch step.Action {
	case config.ActionPress:
		s.mutePin.Drive(pressed)
	case config.ActionRelease:
		s.mutePin.Drive(!pressed)
	case config.ActionVolume:
		return dev.SetVolume(ctx, int16(step.Value))
	case config.ActionMute:
		return dev.SetMute(ctx, true)
	case config.ActionUnmute:
		return dev.SetMute(ctx, false)
	case config.ActionStop:
		return dev.StopStreaming(ctx)
	case config.ActionRecord:
		return dev.StartStreaming(ctx)
	case config.ActionSuspend:
		bus.Suspend()
	case config.ActionResume:
		bus.Resume()
	case config.ActionEqualizer:
		s.program.Equalizer().SetBand(step.Band, step.Value)
	case config.ActionFault:
		s.usb.FailWrites(pkg.ErrHardware)
	default:
		return pkg.ErrInvalidParameter
	}
	return nil
}

// summarize prints what happened during the run.
func (s *simulation) summarize(w io.Writer, rec *record.Recorder, out string) {
	stats := s.program.Pipeline().Stats()
	bus := s.usb.Host()
	streamer := s.stack.Streamer()

	fmt.Fprintf(w, "format      %s\n", s.program.Pipeline().Format())
	fmt.Fprintf(w, "pipeline    %s, %d blocks, %d skipped, %d overruns, worst %v\n",
		s.program.Pipeline().State(), stats.Blocks, stats.Skipped, stats.Overruns, stats.Worst)
	fmt.Fprintf(w, "usb         %d packets sent, %d dropped on the bus, %d blocks dropped while idle\n",
		bus.Sent(), bus.Dropped(), streamer.Dropped())
	fmt.Fprintf(w, "mute        button %v, host %v\n",
		s.program.Mute().IsMuted(), s.program.Controls().SoftMuted())
	fmt.Fprintf(w, "volume      %d (1/256 dB)\n", s.program.Controls().CurrentVolume())
	fmt.Fprintf(w, "equalizer   %v\n", s.program.Equalizer().Gains())
	fmt.Fprintf(w, "leds        link %v, live %v\n", s.linkPin.Get(), s.livePin.Get())
	if s.program.Pipeline().Faulted() {
		fmt.Fprintf(w, "fault       pipeline halted\n")
	}
	fmt.Fprintf(w, "recording   %s, %v (%d samples)\n", out, rec.Duration(), rec.Samples())
}
