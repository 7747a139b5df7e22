package stream

import "context"

type EventKind int

const (
	EventOpened EventKind = iota
	EventMessageReceived
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessageReceived:
		return "message_received"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is delivered to observers. Text is set only for EventMessageReceived.
type Event struct {
	Kind EventKind
	SID  string
	Text string
}

// Handler observes lifecycle events. ctx is the context passed to Stream.
type Handler func(ctx context.Context, ev Event) error
