package sim

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/pkg"
)

// MaxPacketSize is the largest packet the isochronous queue holds.
const MaxPacketSize = 1023

// DefaultQueueDepth is the number of isochronous packets buffered for the
// host when none is given.
const DefaultQueueDepth = 64

// ep0Event is the device's response on the control endpoint.
type ep0Event struct {
	data  []byte
	stall bool
}

// USB is an in-process USB device controller.
//
// The device side implements hal.USB. The host side, returned by Host,
// issues control transfers and bus events and drains isochronous packets.
type USB struct {
	setupCh  chan hal.SetupPacket
	eventCh  chan error
	toDevice chan []byte
	toHost   chan ep0Event

	connected atomic.Bool
	connectCh chan struct{}
	address   atomic.Uint32

	mutex     sync.Mutex
	endpoints [16]bool // IN endpoints enabled, by number
	writeErr  error

	// Isochronous queue, oldest packet dropped on overflow.
	queue   [][MaxPacketSize]byte
	lens    []int
	head    int
	count   int
	dropped uint64
	sent    uint64
	ready   chan struct{}

	host Host
}

// NewUSB returns a controller buffering up to depth isochronous packets.
func NewUSB(depth int) *USB {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	u := &USB{
		setupCh:   make(chan hal.SetupPacket),
		eventCh:   make(chan error, 4),
		toDevice:  make(chan []byte, 1),
		toHost:    make(chan ep0Event, 1),
		connectCh: make(chan struct{}),
		queue:     make([][MaxPacketSize]byte, depth),
		lens:      make([]int, depth),
		ready:     make(chan struct{}, 1),
	}
	u.host.usb = u
	return u
}

// Host returns the host side of the bus.
func (u *USB) Host() *Host { return &u.host }

// FailWrites makes every subsequent isochronous write return err.
// A nil err clears the fault.
func (u *USB) FailWrites(err error) {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	u.writeErr = err
}

// Init initializes the controller.
func (u *USB) Init(ctx context.Context) error {
	return ctx.Err()
}

// Start attaches to the bus.
func (u *USB) Start() error {
	if u.connected.Swap(true) {
		return pkg.ErrAlreadyRunning
	}
	close(u.connectCh)
	pkg.LogDebug(pkg.ComponentSim, "usb attached")
	return nil
}

// Stop detaches from the bus.
func (u *USB) Stop() error {
	u.connected.Store(false)
	return u.ConfigureEndpoints(nil)
}

// SetAddress latches the device address.
func (u *USB) SetAddress(address uint8) error {
	u.address.Store(uint32(address))
	return nil
}

// Address returns the latched device address.
func (u *USB) Address() uint8 { return uint8(u.address.Load()) }

// ConfigureEndpoints enables exactly the given IN endpoints.
func (u *USB) ConfigureEndpoints(endpoints []hal.EndpointConfig) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	for i := range u.endpoints {
		u.endpoints[i] = false
	}
	for i := range endpoints {
		ep := &endpoints[i]
		if !ep.IsIn() || ep.MaxPacketSize > MaxPacketSize {
			return pkg.ErrInvalidEndpoint
		}
		u.endpoints[ep.Address&0x0F] = true
	}
	return nil
}

// ReadSetup blocks until the host sends a SETUP packet or a bus event.
func (u *USB) ReadSetup(ctx context.Context, out *hal.SetupPacket) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-u.eventCh:
		return err
	case *out = <-u.setupCh:
		return nil
	}
}

// WriteEP0 sends the IN data stage.
func (u *USB) WriteEP0(ctx context.Context, data []byte) error {
	ev := ep0Event{data: append([]byte(nil), data...)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case u.toHost <- ev:
		return nil
	}
}

// ReadEP0 receives the OUT data stage, or the zero-length status stage of
// an IN transfer.
func (u *USB) ReadEP0(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case data := <-u.toDevice:
		return copy(buf, data), nil
	}
}

// StallEP0 rejects the current control transfer.
func (u *USB) StallEP0() error {
	select {
	case <-u.toDevice:
	default:
	}
	u.respond(ep0Event{stall: true})
	return nil
}

// AckEP0 completes an OUT control transfer.
func (u *USB) AckEP0() error {
	u.respond(ep0Event{})
	return nil
}

// respond posts a handshake without waiting; a host that abandoned the
// transfer discards it before its next request.
func (u *USB) respond(ev ep0Event) {
	select {
	case u.toHost <- ev:
	default:
	}
}

// Write queues one packet on an IN endpoint. Packets for a disabled
// endpoint are discarded, as when the host is not polling it.
func (u *USB) Write(ctx context.Context, address uint8, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if address&0x80 == 0 || len(data) > MaxPacketSize {
		return 0, pkg.ErrInvalidEndpoint
	}

	u.mutex.Lock()
	if u.writeErr != nil {
		err := u.writeErr
		u.mutex.Unlock()
		return 0, err
	}
	if !u.connected.Load() {
		u.mutex.Unlock()
		return 0, pkg.ErrNotConfigured
	}
	if !u.endpoints[address&0x0F] {
		u.mutex.Unlock()
		return 0, nil
	}

	depth := len(u.queue)
	if u.count == depth {
		u.head = (u.head + 1) % depth
		u.count--
		u.dropped++
	}
	tail := (u.head + u.count) % depth
	u.lens[tail] = copy(u.queue[tail][:], data)
	u.count++
	u.sent++
	u.mutex.Unlock()

	select {
	case u.ready <- struct{}{}:
	default:
	}
	return len(data), nil
}

// IsConnected returns true while attached.
func (u *USB) IsConnected() bool { return u.connected.Load() }

// GetSpeed returns full speed.
func (u *USB) GetSpeed() hal.Speed {
	if !u.connected.Load() {
		return hal.SpeedUnknown
	}
	return hal.SpeedFull
}

// WaitConnect blocks until Start is called or ctx ends.
func (u *USB) WaitConnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-u.connectCh:
		return nil
	}
}

// Host is the host side of a simulated bus.
type Host struct {
	usb *USB
	// Serializes control transfers.
	control sync.Mutex
}

// Control performs a control transfer. For IN requests the returned slice
// holds the device's data stage; for OUT requests data is sent as the data
// stage. A stalled request returns pkg.ErrStall.
func (h *Host) Control(ctx context.Context, setup hal.SetupPacket, data []byte) ([]byte, error) {
	h.control.Lock()
	defer h.control.Unlock()

	u := h.usb
	select {
	case <-u.toHost:
	default:
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case u.setupCh <- setup:
	}

	if !setup.IsDeviceToHost() && setup.Length > 0 {
		if len(data) > int(setup.Length) {
			data = data[:setup.Length]
		}
		u.toDevice <- append([]byte(nil), data...)
	}

	var ev ep0Event
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev = <-u.toHost:
	}
	if ev.stall {
		return nil, pkg.ErrStall
	}

	if setup.IsDeviceToHost() {
		// Status stage.
		select {
		case u.toDevice <- nil:
		default:
		}
		if len(ev.data) > int(setup.Length) {
			ev.data = ev.data[:setup.Length]
		}
		return ev.data, nil
	}
	return nil, nil
}

// ReadPacket returns the oldest queued isochronous packet, waiting until
// one is available or ctx ends.
func (h *Host) ReadPacket(ctx context.Context) ([]byte, error) {
	u := h.usb
	for {
		u.mutex.Lock()
		if u.count > 0 {
			pkt := append([]byte(nil), u.queue[u.head][:u.lens[u.head]]...)
			u.head = (u.head + 1) % len(u.queue)
			u.count--
			u.mutex.Unlock()
			return pkt, nil
		}
		u.mutex.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-u.ready:
		}
	}
}

// Reset signals a bus reset.
func (h *Host) Reset() { h.usb.eventCh <- pkg.ErrReset }

// Suspend signals bus suspend.
func (h *Host) Suspend() { h.usb.eventCh <- pkg.ErrSuspend }

// Resume signals bus resume.
func (h *Host) Resume() { h.usb.eventCh <- pkg.ErrResume }

// Dropped returns the number of isochronous packets lost to overflow.
func (h *Host) Dropped() uint64 {
	h.usb.mutex.Lock()
	defer h.usb.mutex.Unlock()
	return h.usb.dropped
}

// Sent returns the number of isochronous packets queued by the device.
func (h *Host) Sent() uint64 {
	h.usb.mutex.Lock()
	defer h.usb.mutex.Unlock()
	return h.usb.sent
}
