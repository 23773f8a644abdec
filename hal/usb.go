package hal

import (
	"context"
	"encoding/binary"
)

// Speed represents the USB connection speed.
type Speed uint8

// USB speed constants (USB 2.0 Specification).
const (
	SpeedUnknown Speed = iota // Not connected or unknown
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// EndpointConfig describes an endpoint the controller must enable when a
// configuration or alternate setting is activated.
type EndpointConfig struct {
	Address       uint8  // Endpoint address including direction bit
	Attributes    uint8  // Transfer type and sync/usage flags
	MaxPacketSize uint16 // Maximum packet size
	Interval      uint8  // Polling interval
}

// IsIn returns true if this is an IN endpoint (device to host).
func (e *EndpointConfig) IsIn() bool {
	return e.Address&0x80 != 0
}

// TransferType returns the transfer type bits.
func (e *EndpointConfig) TransferType() uint8 {
	return e.Attributes & 0x03
}

// USB is the device-side USB controller.
//
// The microphone only needs the control endpoint and one isochronous IN
// endpoint, so the interface is limited to those operations.
type USB interface {
	// Init initializes the USB controller hardware.
	Init(ctx context.Context) error

	// Start attaches to the bus. After Start the host may enumerate.
	Start() error

	// Stop detaches from the bus.
	Stop() error

	// SetAddress latches the address assigned by the host.
	SetAddress(address uint8) error

	// ConfigureEndpoints enables exactly the given data endpoints.
	// A nil or empty slice disables all data endpoints.
	ConfigureEndpoints(endpoints []EndpointConfig) error

	// ReadSetup blocks until a SETUP packet arrives.
	// Bus events are reported as pkg.ErrReset, pkg.ErrSuspend and
	// pkg.ErrResume.
	ReadSetup(ctx context.Context, out *SetupPacket) error

	// WriteEP0 sends the IN data stage of a control transfer.
	WriteEP0(ctx context.Context, data []byte) error

	// ReadEP0 receives the OUT data stage of a control transfer.
	ReadEP0(ctx context.Context, buf []byte) (int, error)

	// StallEP0 rejects the current control transfer.
	StallEP0() error

	// AckEP0 completes a control transfer with a zero-length status stage.
	AckEP0() error

	// Write queues one packet on an IN endpoint. For isochronous endpoints
	// it must not wait for the host to poll.
	Write(ctx context.Context, address uint8, data []byte) (int, error)

	// IsConnected returns true while attached to a host.
	IsConnected() bool

	// GetSpeed returns the negotiated connection speed.
	GetSpeed() Speed

	// WaitConnect blocks until a host is attached or ctx ends.
	WaitConnect(ctx context.Context) error
}

// Request type masks (USB 2.0 Spec Table 9-2).
const (
	RequestTypeDirectionMask = 0x80
	RequestTypeTypeMask      = 0x60
	RequestTypeRecipientMask = 0x1F
)

// Request type field values.
const (
	RequestDirectionHostToDevice = 0x00
	RequestDirectionDeviceToHost = 0x80

	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40

	RequestRecipientDevice    = 0x00
	RequestRecipientInterface = 0x01
	RequestRecipientEndpoint  = 0x02
)

// SetupPacket represents a USB SETUP packet.
// This is a fixed-size, zero-allocation structure for SETUP transactions.
type SetupPacket struct {
	RequestType uint8  // bmRequestType
	Request     uint8  // bRequest
	Value       uint16 // wValue
	Index       uint16 // wIndex
	Length      uint16 // wLength
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket parses raw bytes into out.
// Returns false if data is too short.
func ParseSetupPacket(data []byte, out *SetupPacket) bool {
	if len(data) < SetupPacketSize {
		return false
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = binary.LittleEndian.Uint16(data[2:4])
	out.Index = binary.LittleEndian.Uint16(data[4:6])
	out.Length = binary.LittleEndian.Uint16(data[6:8])
	return true
}

// MarshalTo writes the setup packet to buf.
// Returns the number of bytes written (8), or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return SetupPacketSize
}

// IsDeviceToHost returns true for IN control transfers.
func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestTypeDirectionMask == RequestDirectionDeviceToHost
}

// Type returns the request type bits (standard, class or vendor).
func (s *SetupPacket) Type() uint8 {
	return s.RequestType & RequestTypeTypeMask
}

// Recipient returns the request recipient bits.
func (s *SetupPacket) Recipient() uint8 {
	return s.RequestType & RequestTypeRecipientMask
}

// IsStandard returns true if this is a standard request.
func (s *SetupPacket) IsStandard() bool {
	return s.Type() == RequestTypeStandard
}

// IsClass returns true if this is a class-specific request.
func (s *SetupPacket) IsClass() bool {
	return s.Type() == RequestTypeClass
}
