package future

// State represents the lifecycle state of a Future.
//
// A Future is created Pending, transitions exactly once into Running
// (directly or through Delay), may alternate between Running and Paused,
// and terminates in exactly one of Fulfilled, Rejected, Cancelled or
// Timeout. Terminal states never change again.
type State int32

const (
	// Pending means the future has been created but not started.
	Pending State = iota

	// Delay means the future has been started but is waiting out its
	// configured initial delay before running.
	Delay

	// Running means the computation has been invoked and has not settled.
	Running

	// Paused means the future is running but its pause depth is above zero.
	Paused

	// Fulfilled means the computation produced a value.
	Fulfilled

	// Rejected means the computation produced an error.
	Rejected

	// Cancelled means the future was cancelled before the computation settled.
	Cancelled

	// Timeout means a timeout timer fired before the computation settled.
	Timeout
)

// String returns the symbolic name of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Delay:
		return "DELAY"
	case Running:
		return "RUNNING"
	case Paused:
		return "PAUSED"
	case Fulfilled:
		return "FULFILLED"
	case Rejected:
		return "REJECTED"
	case Cancelled:
		return "CANCELLED"
	case Timeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s is one of the four terminal states.
func (s State) Terminal() bool {
	switch s {
	case Fulfilled, Rejected, Cancelled, Timeout:
		return true
	default:
		return false
	}
}
