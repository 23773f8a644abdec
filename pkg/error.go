package pkg

import "errors"

// Hardware and USB errors.
var (
	// ErrHardware indicates a peripheral reported a generic failure.
	ErrHardware = errors.New("hardware error")

	// ErrBusy indicates the peripheral is busy with another operation.
	ErrBusy = errors.New("resource busy")

	// ErrTimeout indicates a peripheral or transfer timeout.
	ErrTimeout = errors.New("timeout")

	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrNotConfigured indicates the device is not configured.
	ErrNotConfigured = errors.New("device not configured")

	// ErrInvalidEndpoint indicates an invalid endpoint address.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrInvalidState indicates the operation is not valid in the current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidRequest indicates an invalid or unsupported request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrSetupPacketTooShort indicates the setup packet data is too short.
	ErrSetupPacketTooShort = errors.New("setup packet too short")

	// ErrAlreadyRunning indicates the stack is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrReset indicates a bus reset was received.
	ErrReset = errors.New("bus reset")

	// ErrSuspend indicates the bus entered the suspended state.
	ErrSuspend = errors.New("bus suspend")

	// ErrResume indicates the bus left the suspended state.
	ErrResume = errors.New("bus resume")

	// ErrFatal marks an unrecoverable failure that halts the firmware.
	ErrFatal = errors.New("fatal error")
)

// Status is the result code of a peripheral control operation, in the
// shape vendor HALs report it.
type Status int8

// Status values.
const (
	StatusOK      Status = iota // Operation completed
	StatusError                 // Generic failure
	StatusBusy                  // Peripheral busy
	StatusTimeout               // Operation timed out
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusBusy:
		return "busy"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the corresponding error for the status.
func (s Status) Error() error {
	switch s {
	case StatusOK:
		return nil
	case StatusBusy:
		return ErrBusy
	case StatusTimeout:
		return ErrTimeout
	default:
		return ErrHardware
	}
}

// StatusOf maps an error back to the status code a host control layer
// reports for it.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrBusy):
		return StatusBusy
	case errors.Is(err, ErrTimeout):
		return StatusTimeout
	default:
		return StatusError
	}
}
