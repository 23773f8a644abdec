package uac

// Standard request codes (USB 2.0 Spec Table 9-4).
const (
	RequestGetStatus        = 0x00
	RequestClearFeature     = 0x01
	RequestSetFeature       = 0x03
	RequestSetAddress       = 0x05
	RequestGetDescriptor    = 0x06
	RequestSetDescriptor    = 0x07
	RequestGetConfiguration = 0x08
	RequestSetConfiguration = 0x09
	RequestGetInterface     = 0x0A
	RequestSetInterface     = 0x0B
	RequestSynchFrame       = 0x0C
)

// Feature selectors (USB 2.0 Spec Table 9-6).
const (
	FeatureEndpointHalt       = 0x00
	FeatureDeviceRemoteWakeup = 0x01
)

// Descriptor types (USB 2.0 Spec Table 9-5, UAC 1.0 Table A-4).
const (
	DescriptorTypeDevice          = 0x01
	DescriptorTypeConfiguration   = 0x02
	DescriptorTypeString          = 0x03
	DescriptorTypeInterface       = 0x04
	DescriptorTypeEndpoint        = 0x05
	DescriptorTypeDeviceQualifier = 0x06
	DescriptorTypeCSInterface     = 0x24
	DescriptorTypeCSEndpoint      = 0x25
)

// Audio class codes (UAC 1.0 Tables A-1, A-2, A-3).
const (
	ClassAudio             = 0x01
	SubclassAudioControl   = 0x01
	SubclassAudioStreaming = 0x02
	AudioClassVersion      = 0x0100
)

// Terminal types (USB Audio Terminal Types 1.0).
const (
	TerminalUSBStreaming = 0x0101
	TerminalMicrophone   = 0x0201
)

// Format codes (USB Audio Data Formats 1.0).
const (
	FormatPCM   = 0x0001
	FormatTypeI = 0x01
)

// Descriptor attribute values.
const (
	featureMuteVolume        = 0x03 // bmaControls: mute and volume
	endpointIsochronousAsync = 0x05
	endpointSampleFreq       = 0x01 // bmAttributes: sampling frequency control
)

// Class-specific AudioControl interface descriptor subtypes (UAC 1.0 Table A-5).
const (
	ACHeader         = 0x01
	ACInputTerminal  = 0x02
	ACOutputTerminal = 0x03
	ACFeatureUnit    = 0x06
)

// Class-specific AudioStreaming descriptor subtypes (UAC 1.0 Tables A-6, A-8).
const (
	ASGeneral    = 0x01
	ASFormatType = 0x02
	EPGeneral    = 0x01
)

// Class-specific request codes (UAC 1.0 Table A-9).
const (
	RequestSetCur = 0x01
	RequestGetCur = 0x81
	RequestSetMin = 0x02
	RequestGetMin = 0x82
	RequestSetMax = 0x03
	RequestGetMax = 0x83
	RequestSetRes = 0x04
	RequestGetRes = 0x84
)

// Control selectors (UAC 1.0 Tables A-11, A-19).
const (
	ControlMute         = 0x01
	ControlVolume       = 0x02
	ControlSamplingFreq = 0x01
)

// Topology of the microphone function.
const (
	InterfaceControl   = 0
	InterfaceStreaming = 1

	TerminalInputID  = 1
	FeatureUnitID    = 2
	TerminalOutputID = 3

	EndpointAddress = 0x81
	ConfigValue     = 1
)

// String descriptor indexes.
const (
	StringLanguage = iota
	StringManufacturer
	StringProduct
	StringSerial
	numStrings
)

// Volume limits reported to the host, in 1/256 dB.
const (
	VolumeMin = -80 * 256
	VolumeMax = 36 * 256
	VolumeRes = 128
)

// LangIDUSEnglish is the language ID for US English.
const LangIDUSEnglish = 0x0409

// MaxControlDataSize is the largest control data stage handled.
const MaxControlDataSize = 256
