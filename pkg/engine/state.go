package engine

// State is the lifecycle state of a supervisor's engine process.
type State int

const (
	// StateAbsent means no process exists. Initial state, and the state
	// after Shutdown.
	StateAbsent State = iota
	// StateStarting means a process is being resolved and launched.
	StateStarting
	// StateReady means a live process is available for exchanges.
	StateReady
	// StateCrashed means the last process failed or exited unexpectedly.
	// The next exchange starts a fresh process.
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}
