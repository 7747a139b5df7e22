package stream

// State is the lifecycle of one Stream invocation.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// active reports whether a Stream call currently owns the session.
func (s State) active() bool {
	return s == StateConnecting || s == StateOpen || s == StateClosing
}
