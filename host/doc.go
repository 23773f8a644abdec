// Package host drives a USB microphone from the host side of a bus.
//
// [Enumerate] performs the standard enumeration sequence over any
// [Controller], reads the device and configuration descriptors, and
// selects the configuration. The returned [Device] issues the audio class
// requests a host driver would: volume and mute on the feature unit,
// sampling frequency on the streaming endpoint, and alternate setting
// changes to start and stop streaming.
//
//	dev, err := host.Enumerate(ctx, bus.Host(), 1)
//	if err != nil {
//		return err
//	}
//	if err := dev.StartStreaming(ctx); err != nil {
//		return err
//	}
//
// [sim.Host] implements Controller.
//
// [sim.Host]: github.com/ardnew/usbmic/hal/sim.Host
package host
