package uac

import (
	"encoding/binary"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/pkg"
)

// handleStandard processes a standard request.
// Returns the response data (may be nil) and an error.
func (s *Stack) handleStandard(setup *hal.SetupPacket) ([]byte, error) {
	switch setup.Recipient() {
	case hal.RequestRecipientDevice:
		return s.handleDeviceRequest(setup)
	case hal.RequestRecipientInterface:
		return s.handleInterfaceRequest(setup)
	case hal.RequestRecipientEndpoint:
		return s.handleEndpointRequest(setup)
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// handleDeviceRequest handles device-level standard requests.
func (s *Stack) handleDeviceRequest(setup *hal.SetupPacket) ([]byte, error) {
	switch setup.Request {
	case RequestGetStatus:
		// Bus powered, no remote wakeup
		return s.status(0), nil
	case RequestSetAddress:
		s.mutex.Lock()
		s.address = uint8(setup.Value & 0x7F)
		s.mutex.Unlock()
		return nil, nil
	case RequestGetDescriptor:
		return s.getDescriptor(setup)
	case RequestGetConfiguration:
		s.mutex.RLock()
		defer s.mutex.RUnlock()
		s.responseBuf[0] = s.configuration
		return s.responseBuf[:1], nil
	case RequestSetConfiguration:
		return nil, s.setConfiguration(uint8(setup.Value))
	case RequestClearFeature, RequestSetFeature, RequestSetDescriptor:
		return nil, pkg.ErrNotSupported
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// handleInterfaceRequest handles interface-level standard requests.
func (s *Stack) handleInterfaceRequest(setup *hal.SetupPacket) ([]byte, error) {
	iface := uint8(setup.Index)
	if !s.Configured() || iface > InterfaceStreaming {
		return nil, pkg.ErrInvalidRequest
	}

	switch setup.Request {
	case RequestGetStatus:
		return s.status(0), nil
	case RequestGetInterface:
		s.responseBuf[0] = 0
		if iface == InterfaceStreaming {
			s.responseBuf[0] = s.fn.Alternate()
		}
		return s.responseBuf[:1], nil
	case RequestSetInterface:
		return nil, s.fn.SetAlternate(iface, uint8(setup.Value))
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// handleEndpointRequest handles endpoint-level standard requests.
// Isochronous endpoints cannot halt, so halt is always reported clear.
func (s *Stack) handleEndpointRequest(setup *hal.SetupPacket) ([]byte, error) {
	ep := uint8(setup.Index)
	if ep != 0x00 && ep != 0x80 && (ep != EndpointAddress || !s.Configured()) {
		return nil, pkg.ErrInvalidEndpoint
	}

	switch setup.Request {
	case RequestGetStatus:
		return s.status(0), nil
	case RequestClearFeature:
		if setup.Value != FeatureEndpointHalt {
			return nil, pkg.ErrInvalidRequest
		}
		return nil, nil
	case RequestSetFeature:
		return nil, pkg.ErrNotSupported
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// status writes a 2-byte status word to the response buffer.
func (s *Stack) status(v uint16) []byte {
	binary.LittleEndian.PutUint16(s.responseBuf[:2], v)
	return s.responseBuf[:2]
}

// getDescriptor handles GET_DESCRIPTOR request.
func (s *Stack) getDescriptor(setup *hal.SetupPacket) ([]byte, error) {
	descType := uint8(setup.Value >> 8)
	descIndex := uint8(setup.Value)

	var n int
	switch descType {
	case DescriptorTypeDevice:
		n = s.device.MarshalTo(s.responseBuf[:])

	case DescriptorTypeConfiguration:
		if descIndex != 0 {
			return nil, pkg.ErrInvalidRequest
		}
		n = copy(s.responseBuf[:], s.config[:])

	case DescriptorTypeString:
		if int(descIndex) >= len(s.strings) {
			return nil, pkg.ErrInvalidRequest
		}
		n = copy(s.responseBuf[:], s.strings[descIndex])

	case DescriptorTypeDeviceQualifier:
		// Full speed only
		return nil, pkg.ErrNotSupported

	default:
		return nil, pkg.ErrInvalidRequest
	}

	if n == 0 {
		return nil, pkg.ErrBufferTooSmall
	}
	return s.responseBuf[:n], nil
}

// setConfiguration selects configuration 1 or returns to the address state.
func (s *Stack) setConfiguration(value uint8) error {
	s.mutex.RLock()
	current := s.configuration
	s.mutex.RUnlock()

	switch value {
	case current:
		return nil
	case 0:
		err := s.fn.Close()
		s.mutex.Lock()
		s.configuration = 0
		s.mutex.Unlock()
		return err
	case ConfigValue:
		if err := s.fn.Init(); err != nil {
			return err
		}
		s.mutex.Lock()
		s.configuration = ConfigValue
		s.mutex.Unlock()
		pkg.LogInfo(pkg.ComponentUSB, "configured", "address", s.Address())
		return nil
	default:
		return pkg.ErrInvalidRequest
	}
}
