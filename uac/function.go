package uac

import (
	"encoding/binary"
	"sync"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/pkg"
)

// Controls is the device side of the audio function: the commands the
// host issues through configuration, interface selection, bus events and
// feature unit requests.
type Controls interface {
	Init(freq, volumePercent, options uint32) error
	DeInit(options uint32) error
	Record() error
	Stop() error
	Pause() error
	Resume() error
	Volume(level int16) error
	CurrentVolume() int16
	Mute(cmd uint8) error
	SoftMuted() bool
	Command(cmd uint8) error
}

// Function is the USB Audio Class 1.0 microphone function.
type Function struct {
	controls Controls
	streamer *Streamer
	usb      hal.USB
	rate     uint32
	volume   uint32 // initial volume in percent

	mutex      sync.RWMutex
	configured bool
	alternate  uint8
	suspended  bool
}

func newFunction(usb hal.USB, controls Controls, streamer *Streamer, rate, volume uint32) *Function {
	return &Function{
		controls: controls,
		streamer: streamer,
		usb:      usb,
		rate:     rate,
		volume:   volume,
	}
}

// Alternate returns the selected alternate setting of the streaming
// interface.
func (f *Function) Alternate() uint8 {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.alternate
}

// Init enables the function after SET_CONFIGURATION.
func (f *Function) Init() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if err := f.controls.Init(f.rate, f.volume, 0); err != nil {
		return err
	}
	f.configured = true
	f.alternate = 0
	return nil
}

// Close disables the function after deconfiguration or bus reset.
func (f *Function) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if !f.configured {
		return nil
	}
	f.stopStreaming()
	f.configured = false
	return f.controls.DeInit(0)
}

// SetAlternate selects an alternate setting. Alternate setting 1 of the
// streaming interface starts capture; 0 stops it.
func (f *Function) SetAlternate(iface, alt uint8) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	switch {
	case !f.configured:
		return pkg.ErrNotConfigured
	case iface == InterfaceControl && alt == 0:
		return nil
	case iface != InterfaceStreaming || alt > 1:
		return pkg.ErrInvalidRequest
	case alt == f.alternate:
		return nil
	}

	if alt == 0 {
		if err := f.controls.Stop(); err != nil {
			return err
		}
		f.stopStreaming()
		return nil
	}

	ep := StreamingEndpoint(int(f.rate))
	if err := f.usb.ConfigureEndpoints([]hal.EndpointConfig{{
		Address:       ep.Address,
		Attributes:    ep.Attributes,
		MaxPacketSize: ep.MaxPacketSize,
		Interval:      ep.Interval,
	}}); err != nil {
		return err
	}
	f.streamer.activate()
	if err := f.controls.Record(); err != nil {
		f.streamer.deactivate()
		if cerr := f.usb.ConfigureEndpoints(nil); cerr != nil {
			pkg.LogWarn(pkg.ComponentUSB, "disable endpoint", "error", cerr)
		}
		return err
	}
	f.alternate = 1
	pkg.LogInfo(pkg.ComponentUSB, "streaming started", "rate", f.rate)
	return nil
}

// stopStreaming closes the endpoint. Caller must hold f.mutex.
func (f *Function) stopStreaming() {
	if f.alternate == 0 {
		return
	}
	f.streamer.deactivate()
	if err := f.usb.ConfigureEndpoints(nil); err != nil {
		pkg.LogWarn(pkg.ComponentUSB, "disable endpoint", "error", err)
	}
	f.alternate = 0
	f.suspended = false
	pkg.LogInfo(pkg.ComponentUSB, "streaming stopped")
}

// Suspend pauses capture while the bus is suspended.
func (f *Function) Suspend() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.suspended || f.alternate == 0 {
		return nil
	}
	if err := f.controls.Pause(); err != nil {
		return err
	}
	f.suspended = true
	return nil
}

// Resume continues capture when the bus resumes.
func (f *Function) Resume() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if !f.suspended {
		return nil
	}
	if err := f.controls.Resume(); err != nil {
		return err
	}
	f.suspended = false
	return nil
}

// HandleSetup processes a class-specific request. data holds the OUT data
// stage; IN responses are written into resp. Returns the response slice.
func (f *Function) HandleSetup(setup *hal.SetupPacket, data, resp []byte) ([]byte, error) {
	switch setup.Recipient() {
	case hal.RequestRecipientInterface:
		entity := uint8(setup.Index >> 8)
		iface := uint8(setup.Index)
		if iface != InterfaceControl || entity != FeatureUnitID {
			return nil, pkg.ErrInvalidRequest
		}
		return f.featureUnitRequest(setup, data, resp)

	case hal.RequestRecipientEndpoint:
		if uint8(setup.Index) != EndpointAddress {
			return nil, pkg.ErrInvalidEndpoint
		}
		return f.endpointRequest(setup, data, resp)

	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// featureUnitRequest handles mute and volume controls.
func (f *Function) featureUnitRequest(setup *hal.SetupPacket, data, resp []byte) ([]byte, error) {
	selector := uint8(setup.Value >> 8)
	channel := uint8(setup.Value)
	if channel != 0 {
		return nil, pkg.ErrInvalidRequest
	}

	switch selector {
	case ControlMute:
		switch setup.Request {
		case RequestSetCur:
			if len(data) < 1 {
				return nil, pkg.ErrInvalidRequest
			}
			return nil, f.controls.Mute(data[0])
		case RequestGetCur:
			resp[0] = 0
			if f.controls.SoftMuted() {
				resp[0] = 1
			}
			return resp[:1], nil
		}

	case ControlVolume:
		var v int16
		switch setup.Request {
		case RequestSetCur:
			if len(data) < 2 {
				return nil, pkg.ErrInvalidRequest
			}
			return nil, f.controls.Volume(int16(binary.LittleEndian.Uint16(data)))
		case RequestGetCur:
			v = f.controls.CurrentVolume()
		case RequestGetMin:
			v = VolumeMin
		case RequestGetMax:
			v = VolumeMax
		case RequestGetRes:
			v = VolumeRes
		default:
			return nil, pkg.ErrInvalidRequest
		}
		binary.LittleEndian.PutUint16(resp[:2], uint16(v))
		return resp[:2], nil
	}
	return nil, pkg.ErrInvalidRequest
}

// endpointRequest handles the sampling frequency control.
func (f *Function) endpointRequest(setup *hal.SetupPacket, data, resp []byte) ([]byte, error) {
	if uint8(setup.Value>>8) != ControlSamplingFreq {
		return nil, pkg.ErrInvalidRequest
	}
	switch setup.Request {
	case RequestSetCur:
		if len(data) < 3 {
			return nil, pkg.ErrInvalidRequest
		}
		if freq := uint24(data); freq != f.rate {
			pkg.LogWarn(pkg.ComponentUSB, "rejected sample rate", "freq", freq)
			return nil, pkg.ErrNotSupported
		}
		return nil, nil
	case RequestGetCur:
		putUint24(resp[:3], f.rate)
		return resp[:3], nil
	default:
		return nil, pkg.ErrInvalidRequest
	}
}
