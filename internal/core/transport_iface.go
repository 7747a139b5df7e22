package core

import (
	"context"
	"net/url"
	"time"
)

type TransportState int

const (
	TransportConnecting TransportState = iota
	TransportOpen
	TransportClosing
	TransportClosed
)

func (s TransportState) String() string {
	switch s {
	case TransportConnecting:
		return "connecting"
	case TransportOpen:
		return "open"
	case TransportClosing:
		return "closing"
	case TransportClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TransportOptions configures a transport before it connects.
type TransportOptions struct {
	// KeepAlive is the idle window after which the link is considered stalled.
	KeepAlive time.Duration
	// SurfaceControlFrames delivers ping/pong frames to OnFrame instead of absorbing them.
	SurfaceControlFrames bool
	HandshakeTimeout     time.Duration
	ReadLimit            int64
}

func DefaultTransportOptions() TransportOptions {
	return TransportOptions{
		KeepAlive:            30 * time.Second,
		SurfaceControlFrames: true,
		HandshakeTimeout:     10 * time.Second,
		ReadLimit:            32768,
	}
}

// Transport is one socket-level streaming connection.
// Callbacks are invoked from transport-owned goroutines and must be
// registered before Connect.
type Transport interface {
	OnFrame(func(Frame))
	OnError(func(error))
	OnRemoteClose(func(CloseInfo))
	Connect(ctx context.Context) error
	State() TransportState
	Close() error
}

// TransportFactory constructs an unconnected transport for uri.
type TransportFactory interface {
	NewTransport(uri *url.URL, opts TransportOptions) (Transport, error)
}

// TransportFactoryFunc adapts a plain function to TransportFactory.
type TransportFactoryFunc func(uri *url.URL, opts TransportOptions) (Transport, error)

func (f TransportFactoryFunc) NewTransport(uri *url.URL, opts TransportOptions) (Transport, error) {
	return f(uri, opts)
}
