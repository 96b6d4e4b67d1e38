// Package oracle drives one long-lived interactive subprocess over its
// stdin/stdout pipes, using a sentinel line as the end-of-reply marker.
package oracle

// State represents the lifecycle state of an oracle pipe.
type State int

const (
	// StateNotStarted is the initial state before Start.
	StateNotStarted State = iota

	// StateReady means the subprocess is running and idle between turns.
	StateReady

	// StateBusy means one Send turn is in flight.
	StateBusy

	// StateDead means the subprocess exited or the pipe was shut down.
	// No transition leaves this state; a new Pipe must be started.
	StateDead
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}
