package uac

import (
	"encoding/binary"
	"unicode/utf16"
)

// DeviceDescriptor represents a USB device descriptor (18 bytes).
type DeviceDescriptor struct {
	USBVersion        uint16 // USB specification version (BCD)
	DeviceClass       uint8  // Class code
	DeviceSubClass    uint8  // Subclass code
	DeviceProtocol    uint8  // Protocol code
	MaxPacketSize0    uint8  // Max packet size for EP0
	VendorID          uint16 // Vendor ID
	ProductID         uint16 // Product ID
	DeviceVersion     uint16 // Device release number (BCD)
	ManufacturerIndex uint8  // Index of manufacturer string
	ProductIndex      uint8  // Index of product string
	SerialNumberIndex uint8  // Index of serial number string
	NumConfigurations uint8  // Number of configurations
}

// DeviceDescriptorSize is the size of a device descriptor in bytes.
const DeviceDescriptorSize = 18

// MarshalTo serializes the device descriptor to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (d *DeviceDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < DeviceDescriptorSize {
		return 0
	}
	buf[0] = DeviceDescriptorSize
	buf[1] = DescriptorTypeDevice
	binary.LittleEndian.PutUint16(buf[2:4], d.USBVersion)
	buf[4] = d.DeviceClass
	buf[5] = d.DeviceSubClass
	buf[6] = d.DeviceProtocol
	buf[7] = d.MaxPacketSize0
	binary.LittleEndian.PutUint16(buf[8:10], d.VendorID)
	binary.LittleEndian.PutUint16(buf[10:12], d.ProductID)
	binary.LittleEndian.PutUint16(buf[12:14], d.DeviceVersion)
	buf[14] = d.ManufacturerIndex
	buf[15] = d.ProductIndex
	buf[16] = d.SerialNumberIndex
	buf[17] = d.NumConfigurations
	return DeviceDescriptorSize
}

// ConfigurationDescriptor represents the 9-byte configuration header.
type ConfigurationDescriptor struct {
	TotalLength        uint16 // Length of the whole configuration
	NumInterfaces      uint8  // Number of interfaces
	ConfigurationValue uint8  // Value for SET_CONFIGURATION
	ConfigurationIndex uint8  // Index of configuration string
	Attributes         uint8  // Power attributes
	MaxPower           uint8  // Max power in 2 mA units
}

// ConfigurationDescriptorSize is the size of a configuration descriptor.
const ConfigurationDescriptorSize = 9

// MarshalTo serializes the configuration descriptor to buf.
func (c *ConfigurationDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < ConfigurationDescriptorSize {
		return 0
	}
	buf[0] = ConfigurationDescriptorSize
	buf[1] = DescriptorTypeConfiguration
	binary.LittleEndian.PutUint16(buf[2:4], c.TotalLength)
	buf[4] = c.NumInterfaces
	buf[5] = c.ConfigurationValue
	buf[6] = c.ConfigurationIndex
	buf[7] = c.Attributes
	buf[8] = c.MaxPower
	return ConfigurationDescriptorSize
}

// InterfaceDescriptor represents a USB interface descriptor (9 bytes).
type InterfaceDescriptor struct {
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	InterfaceIndex    uint8
}

// InterfaceDescriptorSize is the size of an interface descriptor.
const InterfaceDescriptorSize = 9

// MarshalTo serializes the interface descriptor to buf.
func (i *InterfaceDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < InterfaceDescriptorSize {
		return 0
	}
	buf[0] = InterfaceDescriptorSize
	buf[1] = DescriptorTypeInterface
	buf[2] = i.InterfaceNumber
	buf[3] = i.AlternateSetting
	buf[4] = i.NumEndpoints
	buf[5] = i.InterfaceClass
	buf[6] = i.InterfaceSubClass
	buf[7] = i.InterfaceProtocol
	buf[8] = i.InterfaceIndex
	return InterfaceDescriptorSize
}

// EndpointDescriptor represents an audio class endpoint descriptor, which
// extends the standard 7 bytes with refresh and synch address fields.
type EndpointDescriptor struct {
	Address       uint8
	Attributes    uint8
	MaxPacketSize uint16
	Interval      uint8
	Refresh       uint8
	SynchAddress  uint8
}

// EndpointDescriptorSize is the size of an audio endpoint descriptor.
const EndpointDescriptorSize = 9

// MarshalTo serializes the endpoint descriptor to buf.
func (e *EndpointDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < EndpointDescriptorSize {
		return 0
	}
	buf[0] = EndpointDescriptorSize
	buf[1] = DescriptorTypeEndpoint
	buf[2] = e.Address
	buf[3] = e.Attributes
	binary.LittleEndian.PutUint16(buf[4:6], e.MaxPacketSize)
	buf[6] = e.Interval
	buf[7] = e.Refresh
	buf[8] = e.SynchAddress
	return EndpointDescriptorSize
}

// Sizes of the class-specific descriptors of a mono microphone.
const (
	acHeaderSize       = 9 // one streaming interface
	inputTerminalSize  = 12
	featureUnitSize    = 9 // one channel, one byte per control bitmap
	outputTerminalSize = 9
	asGeneralSize      = 7
	formatTypeSize     = 11 // one discrete sample rate
	asEndpointSize     = 7

	acClassSize = acHeaderSize + inputTerminalSize + featureUnitSize + outputTerminalSize

	// ConfigurationSize is the total length of the configuration descriptor.
	ConfigurationSize = ConfigurationDescriptorSize +
		InterfaceDescriptorSize + acClassSize +
		2*InterfaceDescriptorSize + asGeneralSize + formatTypeSize +
		EndpointDescriptorSize + asEndpointSize
)

// PacketSize returns the bytes of one 1 ms packet of 16-bit mono samples.
func PacketSize(sampleRate int) uint16 {
	return uint16(sampleRate / 1000 * 2)
}

// StreamingEndpoint returns the isochronous endpoint for sampleRate.
func StreamingEndpoint(sampleRate int) EndpointDescriptor {
	return EndpointDescriptor{
		Address:       EndpointAddress,
		Attributes:    endpointIsochronousAsync,
		MaxPacketSize: PacketSize(sampleRate),
		Interval:      1,
	}
}

// ConfigurationTo writes the complete configuration descriptor of the
// microphone to buf: an AudioControl interface describing microphone →
// feature unit → USB streaming, and an AudioStreaming interface whose
// alternate setting 1 carries PCM16 mono at sampleRate.
// Returns the number of bytes written, or 0 if buf is too small.
func ConfigurationTo(buf []byte, sampleRate int) int {
	if len(buf) < ConfigurationSize {
		return 0
	}

	cfg := ConfigurationDescriptor{
		TotalLength:        ConfigurationSize,
		NumInterfaces:      2,
		ConfigurationValue: ConfigValue,
		Attributes:         0x80, // bus powered
		MaxPower:           50,   // 100 mA
	}
	n := cfg.MarshalTo(buf)

	ac := InterfaceDescriptor{
		InterfaceNumber:   InterfaceControl,
		InterfaceClass:    ClassAudio,
		InterfaceSubClass: SubclassAudioControl,
	}
	n += ac.MarshalTo(buf[n:])

	// AudioControl header
	b := buf[n : n+acHeaderSize]
	b[0], b[1], b[2] = acHeaderSize, DescriptorTypeCSInterface, ACHeader
	binary.LittleEndian.PutUint16(b[3:5], AudioClassVersion)
	binary.LittleEndian.PutUint16(b[5:7], acClassSize)
	b[7] = 1 // bInCollection
	b[8] = InterfaceStreaming
	n += acHeaderSize

	// Input terminal: the microphone
	b = buf[n : n+inputTerminalSize]
	b[0], b[1], b[2] = inputTerminalSize, DescriptorTypeCSInterface, ACInputTerminal
	b[3] = TerminalInputID
	binary.LittleEndian.PutUint16(b[4:6], TerminalMicrophone)
	b[6] = 0 // bAssocTerminal
	b[7] = 1 // bNrChannels
	binary.LittleEndian.PutUint16(b[8:10], 0)
	b[10], b[11] = 0, 0
	n += inputTerminalSize

	// Feature unit: master mute and volume
	b = buf[n : n+featureUnitSize]
	b[0], b[1], b[2] = featureUnitSize, DescriptorTypeCSInterface, ACFeatureUnit
	b[3] = FeatureUnitID
	b[4] = TerminalInputID
	b[5] = 1 // bControlSize
	b[6] = featureMuteVolume
	b[7] = 0 // channel 1 controls
	b[8] = 0
	n += featureUnitSize

	// Output terminal: USB streaming
	b = buf[n : n+outputTerminalSize]
	b[0], b[1], b[2] = outputTerminalSize, DescriptorTypeCSInterface, ACOutputTerminal
	b[3] = TerminalOutputID
	binary.LittleEndian.PutUint16(b[4:6], TerminalUSBStreaming)
	b[6] = 0 // bAssocTerminal
	b[7] = FeatureUnitID
	b[8] = 0
	n += outputTerminalSize

	// Zero bandwidth alternate setting
	as := InterfaceDescriptor{
		InterfaceNumber:   InterfaceStreaming,
		InterfaceClass:    ClassAudio,
		InterfaceSubClass: SubclassAudioStreaming,
	}
	n += as.MarshalTo(buf[n:])

	// Operational alternate setting
	as.AlternateSetting = 1
	as.NumEndpoints = 1
	n += as.MarshalTo(buf[n:])

	b = buf[n : n+asGeneralSize]
	b[0], b[1], b[2] = asGeneralSize, DescriptorTypeCSInterface, ASGeneral
	b[3] = TerminalOutputID
	b[4] = 1 // bDelay in frames
	binary.LittleEndian.PutUint16(b[5:7], FormatPCM)
	n += asGeneralSize

	b = buf[n : n+formatTypeSize]
	b[0], b[1], b[2] = formatTypeSize, DescriptorTypeCSInterface, ASFormatType
	b[3] = FormatTypeI
	b[4] = 1  // bNrChannels
	b[5] = 2  // bSubFrameSize
	b[6] = 16 // bBitResolution
	b[7] = 1  // bSamFreqType
	putUint24(b[8:11], uint32(sampleRate))
	n += formatTypeSize

	ep := StreamingEndpoint(sampleRate)
	n += ep.MarshalTo(buf[n:])

	b = buf[n : n+asEndpointSize]
	b[0], b[1], b[2] = asEndpointSize, DescriptorTypeCSEndpoint, EPGeneral
	b[3] = endpointSampleFreq
	b[4] = 0 // bLockDelayUnits
	binary.LittleEndian.PutUint16(b[5:7], 0)
	n += asEndpointSize

	return n
}

// StringDescriptorTo writes a USB string descriptor encoding s as UTF-16LE
// to buf. Returns the number of bytes written, or 0 if buf is too small.
func StringDescriptorTo(buf []byte, s string) int {
	units := utf16.Encode([]rune(s))
	if len(units) > 126 {
		units = units[:126]
	}
	length := 2 + len(units)*2
	if len(buf) < length {
		return 0
	}
	buf[0] = uint8(length)
	buf[1] = DescriptorTypeString
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[2+i*2:], u)
	}
	return length
}

// LanguageDescriptorTo writes the language ID string descriptor to buf.
func LanguageDescriptorTo(buf []byte, langIDs ...uint16) int {
	length := 2 + len(langIDs)*2
	if len(buf) < length {
		return 0
	}
	buf[0] = uint8(length)
	buf[1] = DescriptorTypeString
	for i, id := range langIDs {
		binary.LittleEndian.PutUint16(buf[2+i*2:], id)
	}
	return length
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
