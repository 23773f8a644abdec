package host

import (
	"context"
	"encoding/binary"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/uac"
)

// Controller performs control transfers with the device. For IN requests
// the data stage is returned; for OUT requests data is sent.
type Controller interface {
	Control(ctx context.Context, setup hal.SetupPacket, data []byte) ([]byte, error)
}

// Info identifies an enumerated device.
type Info struct {
	VendorID       uint16
	ProductID      uint16
	DeviceVersion  uint16
	MaxPacketSize0 uint8
	Manufacturer   string
	Product        string
	Serial         string
}

// Device is an enumerated microphone.
type Device struct {
	ctl Controller

	Address       uint8
	Configuration uint8
	Info          Info

	// Streaming format and endpoint.
	Rate          uint32
	Channels      uint8
	BitResolution uint8
	Endpoint      uint8
	MaxPacketSize uint16

	// Feature unit volume range in 1/256 dB.
	VolumeMin int16
	VolumeMax int16
	VolumeRes int16

	iManufacturer, iProduct, iSerial uint8
}

const (
	classInterfaceOut = hal.RequestDirectionHostToDevice | hal.RequestTypeClass | hal.RequestRecipientInterface
	classInterfaceIn  = hal.RequestDirectionDeviceToHost | hal.RequestTypeClass | hal.RequestRecipientInterface
	classEndpointOut  = hal.RequestDirectionHostToDevice | hal.RequestTypeClass | hal.RequestRecipientEndpoint
	classEndpointIn   = hal.RequestDirectionDeviceToHost | hal.RequestTypeClass | hal.RequestRecipientEndpoint

	featureUnit = uac.FeatureUnitID<<8 | uac.InterfaceControl
)

// SetVolume sets the feature unit volume in 1/256 dB.
func (d *Device) SetVolume(ctx context.Context, v int16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	_, err := d.ctl.Control(ctx, hal.SetupPacket{
		RequestType: classInterfaceOut,
		Request:     uac.RequestSetCur,
		Value:       uac.ControlVolume << 8,
		Index:       featureUnit,
		Length:      2,
	}, b[:])
	return err
}

// Volume returns the feature unit volume in 1/256 dB.
func (d *Device) Volume(ctx context.Context) (int16, error) {
	return d.getVolume(ctx, uac.RequestGetCur)
}

func (d *Device) getVolume(ctx context.Context, req uint8) (int16, error) {
	b, err := d.ctl.Control(ctx, hal.SetupPacket{
		RequestType: classInterfaceIn,
		Request:     req,
		Value:       uac.ControlVolume << 8,
		Index:       featureUnit,
		Length:      2,
	}, nil)
	if err != nil {
		return 0, err
	}
	if len(b) < 2 {
		return 0, ErrEnumerationFailed
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

// SetMute sets the feature unit mute.
func (d *Device) SetMute(ctx context.Context, muted bool) error {
	b := []byte{0}
	if muted {
		b[0] = 1
	}
	_, err := d.ctl.Control(ctx, hal.SetupPacket{
		RequestType: classInterfaceOut,
		Request:     uac.RequestSetCur,
		Value:       uac.ControlMute << 8,
		Index:       featureUnit,
		Length:      1,
	}, b)
	return err
}

// Muted returns the feature unit mute.
func (d *Device) Muted(ctx context.Context) (bool, error) {
	b, err := d.ctl.Control(ctx, hal.SetupPacket{
		RequestType: classInterfaceIn,
		Request:     uac.RequestGetCur,
		Value:       uac.ControlMute << 8,
		Index:       featureUnit,
		Length:      1,
	}, nil)
	if err != nil {
		return false, err
	}
	return len(b) > 0 && b[0] != 0, nil
}

// SetSampleRate requests a sampling frequency on the streaming endpoint.
func (d *Device) SetSampleRate(ctx context.Context, hz uint32) error {
	b := []byte{byte(hz), byte(hz >> 8), byte(hz >> 16)}
	_, err := d.ctl.Control(ctx, hal.SetupPacket{
		RequestType: classEndpointOut,
		Request:     uac.RequestSetCur,
		Value:       uac.ControlSamplingFreq << 8,
		Index:       uint16(d.Endpoint),
		Length:      3,
	}, b)
	return err
}

// SampleRate returns the sampling frequency of the streaming endpoint.
func (d *Device) SampleRate(ctx context.Context) (uint32, error) {
	b, err := d.ctl.Control(ctx, hal.SetupPacket{
		RequestType: classEndpointIn,
		Request:     uac.RequestGetCur,
		Value:       uac.ControlSamplingFreq << 8,
		Index:       uint16(d.Endpoint),
		Length:      3,
	}, nil)
	if err != nil {
		return 0, err
	}
	if len(b) < 3 {
		return 0, ErrEnumerationFailed
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

// StartStreaming selects the operational alternate setting.
func (d *Device) StartStreaming(ctx context.Context) error {
	return d.setInterface(ctx, 1)
}

// StopStreaming selects the zero-bandwidth alternate setting.
func (d *Device) StopStreaming(ctx context.Context) error {
	return d.setInterface(ctx, 0)
}

func (d *Device) setInterface(ctx context.Context, alt uint16) error {
	_, err := d.ctl.Control(ctx, hal.SetupPacket{
		RequestType: hal.RequestDirectionHostToDevice | hal.RequestTypeStandard | hal.RequestRecipientInterface,
		Request:     uac.RequestSetInterface,
		Value:       alt,
		Index:       uac.InterfaceStreaming,
	}, nil)
	return err
}
