package uac

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/pkg"
)

// MaxDescriptorResponseSize is the size of the control response buffer.
const MaxDescriptorResponseSize = 256

// Config identifies the device to the host.
type Config struct {
	VendorID      uint16
	ProductID     uint16
	DeviceVersion uint16
	Manufacturer  string
	Product       string
	Serial        string

	// SampleRate of the stream in Hz.
	SampleRate int

	// Volume in percent passed to Controls.Init.
	Volume uint32
}

// DefaultConfig returns a development identity.
func DefaultConfig() Config {
	return Config{
		VendorID:      0x1209, // pid.codes
		ProductID:     0x0001, // test PID
		DeviceVersion: 0x0100,
		Manufacturer:  "usbmic",
		Product:       "USB Microphone",
		Serial:        "000000000001",
		SampleRate:    48000,
		Volume:        100,
	}
}

// Stack runs the control endpoint of the microphone.
type Stack struct {
	usb      hal.USB
	fn       *Function
	streamer *Streamer

	device  DeviceDescriptor
	config  [ConfigurationSize]byte
	strings [numStrings][]byte

	// State
	running       bool
	address       uint8
	configuration uint8
	mutex         sync.RWMutex

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Reusable buffers for zero-allocation control transfers
	setupBuf    hal.SetupPacket
	ep0ReadBuf  [MaxControlDataSize]byte
	responseBuf [MaxDescriptorResponseSize]byte
}

// NewStack returns a stack presenting controls to the host over usb.
// Audio written to streamer reaches the host while streaming is active;
// a nil streamer is replaced by a new one.
func NewStack(usb hal.USB, controls Controls, streamer *Streamer, cfg Config) (*Stack, error) {
	if cfg.SampleRate <= 0 || cfg.SampleRate%1000 != 0 || cfg.SampleRate >= 1<<24 {
		return nil, fmt.Errorf("%w: sample rate %d", pkg.ErrInvalidParameter, cfg.SampleRate)
	}
	if usb == nil || controls == nil {
		return nil, fmt.Errorf("%w: stack needs a controller and controls", pkg.ErrInvalidParameter)
	}

	if streamer == nil {
		streamer = NewStreamer(usb, cfg.SampleRate)
	}

	s := &Stack{
		usb:      usb,
		streamer: streamer,
		device: DeviceDescriptor{
			USBVersion:        0x0200,
			MaxPacketSize0:    64,
			VendorID:          cfg.VendorID,
			ProductID:         cfg.ProductID,
			DeviceVersion:     cfg.DeviceVersion,
			ManufacturerIndex: StringManufacturer,
			ProductIndex:      StringProduct,
			SerialNumberIndex: StringSerial,
			NumConfigurations: 1,
		},
	}
	s.fn = newFunction(usb, controls, s.streamer, uint32(cfg.SampleRate), cfg.Volume)
	ConfigurationTo(s.config[:], cfg.SampleRate)

	var buf [MaxDescriptorResponseSize]byte
	n := LanguageDescriptorTo(buf[:], LangIDUSEnglish)
	s.strings[StringLanguage] = append([]byte(nil), buf[:n]...)
	for i, str := range [...]string{cfg.Manufacturer, cfg.Product, cfg.Serial} {
		n = StringDescriptorTo(buf[:], str)
		s.strings[StringManufacturer+i] = append([]byte(nil), buf[:n]...)
	}
	return s, nil
}

// Streamer returns the audio sink feeding the isochronous endpoint.
func (s *Stack) Streamer() *Streamer { return s.streamer }

// Function returns the audio function.
func (s *Stack) Function() *Function { return s.fn }

// Start attaches to the bus and serves control requests in a goroutine.
func (s *Stack) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return pkg.ErrAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mutex.Unlock()

	if err := s.usb.Init(s.ctx); err != nil {
		s.cancel()
		return err
	}
	if err := s.usb.Start(); err != nil {
		s.cancel()
		return err
	}
	s.streamer.bind(s.ctx)

	s.mutex.Lock()
	s.running = true
	s.mutex.Unlock()

	pkg.LogDebug(pkg.ComponentUSB, "device stack started")
	go s.controlLoop()
	return nil
}

// Stop ends the control loop and detaches from the bus.
func (s *Stack) Stop() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	done := s.done
	s.mutex.Unlock()

	<-done
	s.reset()
	if err := s.usb.Stop(); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentUSB, "device stack stopped")
	return nil
}

// Run starts the stack and serves requests until ctx ends.
func (s *Stack) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	if err := s.Stop(); err != nil {
		return err
	}
	return ctx.Err()
}

// IsRunning returns true if the stack is running.
func (s *Stack) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// Configured returns true once the host has selected the configuration.
func (s *Stack) Configured() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.configuration != 0
}

// Address returns the address assigned by the host.
func (s *Stack) Address() uint8 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.address
}

// controlLoop handles control transfers on EP0.
func (s *Stack) controlLoop() {
	defer close(s.done)

	for {
		if err := s.usb.ReadSetup(s.ctx, &s.setupBuf); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.busEvent(err)
			continue
		}

		if err := s.handleSetup(&s.setupBuf); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			pkg.LogWarn(pkg.ComponentUSB, "request stalled",
				"error", err,
				"status", pkg.StatusOf(err),
				"type", s.setupBuf.RequestType,
				"request", s.setupBuf.Request,
				"value", s.setupBuf.Value,
				"index", s.setupBuf.Index)
			s.usb.StallEP0()
		}
	}
}

// busEvent applies a reset, suspend or resume reported by the controller.
func (s *Stack) busEvent(err error) {
	switch {
	case errors.Is(err, pkg.ErrReset):
		pkg.LogInfo(pkg.ComponentUSB, "bus reset")
		s.reset()
	case errors.Is(err, pkg.ErrSuspend):
		pkg.LogInfo(pkg.ComponentUSB, "bus suspend")
		if err := s.fn.Suspend(); err != nil {
			pkg.LogWarn(pkg.ComponentUSB, "pause on suspend", "error", err)
		}
	case errors.Is(err, pkg.ErrResume):
		pkg.LogInfo(pkg.ComponentUSB, "bus resume")
		if err := s.fn.Resume(); err != nil {
			pkg.LogWarn(pkg.ComponentUSB, "resume", "error", err)
		}
	default:
		pkg.LogWarn(pkg.ComponentUSB, "error reading setup", "error", err)
	}
}

// reset returns the device to the default state.
func (s *Stack) reset() {
	if err := s.fn.Close(); err != nil {
		pkg.LogWarn(pkg.ComponentUSB, "deinit on reset", "error", err)
	}
	s.mutex.Lock()
	s.address = 0
	s.configuration = 0
	s.mutex.Unlock()
	s.usb.SetAddress(0)
}

// handleSetup processes a single SETUP transaction.
func (s *Stack) handleSetup(setup *hal.SetupPacket) error {
	var data []byte
	if !setup.IsDeviceToHost() && setup.Length > 0 {
		n := min(int(setup.Length), MaxControlDataSize)
		n, err := s.usb.ReadEP0(s.ctx, s.ep0ReadBuf[:n])
		if err != nil {
			return err
		}
		data = s.ep0ReadBuf[:n]
	}

	var resp []byte
	var err error
	switch {
	case setup.IsStandard():
		resp, err = s.handleStandard(setup)
	case setup.IsClass():
		resp, err = s.fn.HandleSetup(setup, data, s.responseBuf[:])
	default:
		err = pkg.ErrInvalidRequest
	}
	if err != nil {
		return err
	}

	if err := s.completeSetup(setup, resp); err != nil {
		return err
	}

	// The new address takes effect after the status stage.
	if setup.IsStandard() && setup.Request == RequestSetAddress {
		return s.usb.SetAddress(s.Address())
	}
	return nil
}

// completeSetup sends the data stage, if any, and the status stage.
func (s *Stack) completeSetup(setup *hal.SetupPacket, data []byte) error {
	if setup.IsDeviceToHost() {
		if len(data) > int(setup.Length) {
			data = data[:setup.Length]
		}
		if err := s.usb.WriteEP0(s.ctx, data); err != nil {
			return err
		}
		// Status stage (zero-length OUT)
		_, err := s.usb.ReadEP0(s.ctx, s.ep0ReadBuf[:0])
		return err
	}
	return s.usb.AckEP0()
}
