// Package sim provides in-process implementations of the hal interfaces.
//
// The simulation lets the firmware run unchanged on a development host:
//
//   - [Pin] is a software digital line
//   - [ManualClock] and [SystemClock] implement hal.Clock
//   - [CaptureSource] emulates a circular I2S DMA receiver fed by a [Signal]
//   - [USB] is a device controller whose [Host] side enumerates the device,
//     issues audio class requests and drains the isochronous stream
//
// # Example
//
//	mic := sim.NewCaptureSource(sim.NewSine(48000, 1000, 0.5), 10*time.Millisecond)
//	bus := sim.NewUSB(sim.DefaultQueueDepth)
//	host := bus.Host()
//
//	data, err := host.Control(ctx, hal.SetupPacket{
//		RequestType: hal.RequestDirectionDeviceToHost,
//		Request:     0x06, // GET_DESCRIPTOR
//		Value:       0x0100,
//		Length:      18,
//	}, nil)
package sim
