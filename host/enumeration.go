package host

import (
	"context"
	"encoding/binary"
	"errors"
	"unicode/utf16"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/pkg"
	"github.com/ardnew/usbmic/uac"
)

// Enumeration errors.
var (
	ErrEnumerationFailed = errors.New("enumeration failed")
	ErrNotMicrophone     = errors.New("device has no audio streaming interface")
)

// maxDescriptorSize bounds descriptor reads.
const maxDescriptorSize = 255

// Enumerate assigns address to the device on ctl, reads its descriptors
// and selects its first configuration.
func Enumerate(ctx context.Context, ctl Controller, address uint8) (*Device, error) {
	pkg.LogDebug(pkg.ComponentHost, "starting enumeration", "address", address)
	if address == 0 || address > 127 {
		return nil, pkg.ErrInvalidParameter
	}

	dev := &Device{ctl: ctl}

	// The first 8 bytes carry bMaxPacketSize0.
	buf, err := dev.getDescriptor(ctx, uac.DescriptorTypeDevice, 0, 0, 8)
	if err != nil {
		return nil, err
	}
	if len(buf) < 8 {
		return nil, ErrEnumerationFailed
	}
	dev.Info.MaxPacketSize0 = buf[7]

	if _, err := dev.ctl.Control(ctx, hal.SetupPacket{
		RequestType: hal.RequestDirectionHostToDevice | hal.RequestTypeStandard | hal.RequestRecipientDevice,
		Request:     uac.RequestSetAddress,
		Value:       uint16(address),
	}, nil); err != nil {
		return nil, err
	}
	dev.Address = address
	pkg.LogDebug(pkg.ComponentHost, "assigned address", "address", address)

	buf, err = dev.getDescriptor(ctx, uac.DescriptorTypeDevice, 0, 0, uac.DeviceDescriptorSize)
	if err != nil {
		return nil, err
	}
	if len(buf) < uac.DeviceDescriptorSize {
		return nil, ErrEnumerationFailed
	}
	dev.parseDeviceDescriptor(buf)

	pkg.LogDebug(pkg.ComponentHost, "device descriptor",
		"vendorID", dev.Info.VendorID,
		"productID", dev.Info.ProductID)

	// Header first for wTotalLength.
	buf, err = dev.getDescriptor(ctx, uac.DescriptorTypeConfiguration, 0, 0, uac.ConfigurationDescriptorSize)
	if err != nil {
		return nil, err
	}
	if len(buf) < uac.ConfigurationDescriptorSize {
		return nil, ErrEnumerationFailed
	}
	total := binary.LittleEndian.Uint16(buf[2:4])
	buf, err = dev.getDescriptor(ctx, uac.DescriptorTypeConfiguration, 0, 0, total)
	if err != nil {
		return nil, err
	}
	if err := dev.parseConfiguration(buf); err != nil {
		return nil, err
	}

	if err := dev.readStrings(ctx); err != nil {
		// Strings are optional.
		pkg.LogDebug(pkg.ComponentHost, "string descriptor read failed", "error", err)
	}

	if _, err := dev.ctl.Control(ctx, hal.SetupPacket{
		RequestType: hal.RequestDirectionHostToDevice | hal.RequestTypeStandard | hal.RequestRecipientDevice,
		Request:     uac.RequestSetConfiguration,
		Value:       uint16(dev.Configuration),
	}, nil); err != nil {
		return nil, err
	}

	for _, r := range []struct {
		req uint8
		out *int16
	}{
		{uac.RequestGetMin, &dev.VolumeMin},
		{uac.RequestGetMax, &dev.VolumeMax},
		{uac.RequestGetRes, &dev.VolumeRes},
	} {
		if *r.out, err = dev.getVolume(ctx, r.req); err != nil {
			return nil, err
		}
	}

	pkg.LogInfo(pkg.ComponentHost, "microphone enumerated",
		"product", dev.Info.Product,
		"rate", dev.Rate,
		"packet", dev.MaxPacketSize)
	return dev, nil
}

func (d *Device) getDescriptor(ctx context.Context, typ, index uint8, langID, length uint16) ([]byte, error) {
	return d.ctl.Control(ctx, hal.SetupPacket{
		RequestType: hal.RequestDirectionDeviceToHost | hal.RequestTypeStandard | hal.RequestRecipientDevice,
		Request:     uac.RequestGetDescriptor,
		Value:       uint16(typ)<<8 | uint16(index),
		Index:       langID,
		Length:      length,
	}, nil)
}

func (d *Device) parseDeviceDescriptor(b []byte) {
	d.Info.VendorID = binary.LittleEndian.Uint16(b[8:10])
	d.Info.ProductID = binary.LittleEndian.Uint16(b[10:12])
	d.Info.DeviceVersion = binary.LittleEndian.Uint16(b[12:14])
	d.iManufacturer = b[14]
	d.iProduct = b[15]
	d.iSerial = b[16]
}

// parseConfiguration walks the configuration tree for the streaming
// interface format and its isochronous endpoint.
func (d *Device) parseConfiguration(b []byte) error {
	if len(b) < uac.ConfigurationDescriptorSize {
		return ErrEnumerationFailed
	}
	d.Configuration = b[5]

	var subclass uint8
	found := false
	for len(b) >= 2 {
		n := int(b[0])
		if n < 2 || n > len(b) {
			return ErrEnumerationFailed
		}
		desc := b[:n]
		b = b[n:]

		switch desc[1] {
		case uac.DescriptorTypeInterface:
			if n >= 7 {
				subclass = desc[6]
			}
		case uac.DescriptorTypeCSInterface:
			// Format type I: channels, subframe size, resolution, one
			// discrete frequency.
			if subclass == uac.SubclassAudioStreaming && n >= 11 && desc[2] == uac.ASFormatType {
				d.Channels = desc[4]
				d.BitResolution = desc[6]
				d.Rate = uint32(desc[8]) | uint32(desc[9])<<8 | uint32(desc[10])<<16
				found = true
			}
		case uac.DescriptorTypeEndpoint:
			if subclass == uac.SubclassAudioStreaming && n >= 7 {
				d.Endpoint = desc[2]
				d.MaxPacketSize = binary.LittleEndian.Uint16(desc[4:6])
			}
		}
	}
	if !found || d.Endpoint == 0 {
		return ErrNotMicrophone
	}
	return nil
}

func (d *Device) readStrings(ctx context.Context) error {
	read := func(index uint8) (string, error) {
		if index == 0 {
			return "", nil
		}
		buf, err := d.getDescriptor(ctx, uac.DescriptorTypeString, index, uac.LangIDUSEnglish, maxDescriptorSize)
		if err != nil {
			return "", err
		}
		if len(buf) < 2 {
			return "", nil
		}
		length := min(int(buf[0]), len(buf))
		if length < 2 {
			return "", nil
		}
		units := make([]uint16, 0, (length-2)/2)
		for i := 2; i+1 < length; i += 2 {
			units = append(units, binary.LittleEndian.Uint16(buf[i:]))
		}
		return string(utf16.Decode(units)), nil
	}

	var err error
	if d.Info.Manufacturer, err = read(d.iManufacturer); err != nil {
		return err
	}
	if d.Info.Product, err = read(d.iProduct); err != nil {
		return err
	}
	d.Info.Serial, err = read(d.iSerial)
	return err
}
