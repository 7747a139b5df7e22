package stream

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument  = errors.New("stream: invalid argument")
	ErrCancelled        = errors.New("stream: cancelled")
	ErrAlreadyStreaming = errors.New("stream: session already streaming")
)

// ConnectError is a connection-establishment failure not attributable to
// cancellation. It is the only runtime failure Stream returns.
type ConnectError struct {
	URI string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("stream: connect %s: %v", e.URI, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// HandlerFault records an observer that returned an error or panicked.
// It is logged at the dispatch site and never propagated.
type HandlerFault struct {
	Event EventKind
	Err   error
	Stack []byte
}

func (e *HandlerFault) Error() string {
	return fmt.Sprintf("stream: %s handler: %v", e.Event, e.Err)
}

func (e *HandlerFault) Unwrap() error { return e.Err }

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
