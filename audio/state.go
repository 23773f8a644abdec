package audio

// State is the capture lifecycle state.
type State uint32

// Lifecycle states.
const (
	StateStopped State = iota
	StateRunning
	StatePaused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
