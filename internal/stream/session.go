// Package stream drives a single long-lived streaming connection and
// notifies observers when it opens, receives a text message, and closes.
//
// One Session owns at most one transport at a time. Every Stream call that
// gets as far as connecting ends with exactly one Closed event, whichever of
// the connect failure, remote close, transport error, or caller cancellation
// paths ends it.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/dkeye/wsstream/internal/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Session struct {
	factory core.TransportFactory
	opts    core.TransportOptions
	logger  zerolog.Logger
	events  *Dispatcher

	mu        sync.Mutex
	state     State
	streaming bool
	run       *run
	// closing is set while Closed observers run; Stream is rejected until they return.
	closing   bool

	// deliverMu serializes event delivery so Closed is always last.
	deliverMu sync.Mutex

	messages  atomic.Uint64
	discarded atomic.Uint64
}

// run is the per-invocation half of a session.
type run struct {
	sid       string
	ctx       context.Context
	log       zerolog.Logger
	transport core.Transport
	done      chan struct{}
	doneOnce  sync.Once
}

func (r *run) signalDone() { r.doneOnce.Do(func() { close(r.done) }) }

// Stats is a point-in-time view of the session.
type Stats struct {
	SID       string `json:"sid"`
	State     string `json:"state"`
	Streaming bool   `json:"streaming"`
	Messages  uint64 `json:"messages"`
	Discarded uint64 `json:"discarded"`
	Faults    uint64 `json:"faults"`
}

// New creates an idle session. A nil logger disables diagnostics.
// Control frames are always surfaced; a zero KeepAlive falls back to the
// default idle window.
func New(factory core.TransportFactory, opts core.TransportOptions, logger *zerolog.Logger) *Session {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("module", "stream").Logger()
	}
	def := core.DefaultTransportOptions()
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = def.KeepAlive
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = def.HandshakeTimeout
	}
	opts.SurfaceControlFrames = true
	return &Session{
		factory: factory,
		opts:    opts,
		logger:  l,
		events:  NewDispatcher(l),
	}
}

func (s *Session) OnOpened(fn func(ctx context.Context) error) (unsubscribe func()) {
	return s.events.Subscribe(EventOpened, func(ctx context.Context, _ Event) error { return fn(ctx) })
}

func (s *Session) OnMessage(fn func(ctx context.Context, text string) error) (unsubscribe func()) {
	return s.events.Subscribe(EventMessageReceived, func(ctx context.Context, ev Event) error { return fn(ctx, ev.Text) })
}

// OnClosed registers fn for Closed. Stream called from fn returns
// ErrAlreadyStreaming; start the next invocation after fn returns.
func (s *Session) OnClosed(fn func(ctx context.Context) error) (unsubscribe func()) {
	return s.events.Subscribe(EventClosed, func(ctx context.Context, _ Event) error { return fn(ctx) })
}

// Subscribe registers a raw event handler.
func (s *Session) Subscribe(kind EventKind, fn Handler) (unsubscribe func()) {
	return s.events.Subscribe(kind, fn)
}

func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the id of the current or most recent Stream invocation.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return ""
	}
	return s.run.sid
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	st := Stats{State: s.state.String(), Streaming: s.streaming}
	if s.run != nil {
		st.SID = s.run.sid
	}
	s.mu.Unlock()
	st.Messages = s.messages.Load()
	st.Discarded = s.discarded.Load()
	st.Faults = s.events.Faults()
	return st
}

// Stream connects to uri and blocks until the connection ends by remote
// close, transport error, or cancellation of ctx. ctx must be cancellable.
//
// Only argument errors, ErrCancelled (ctx already done), ErrAlreadyStreaming
// and *ConnectError are returned; everything after a successful connect
// resolves through the Closed event and a nil return.
func (s *Session) Stream(ctx context.Context, uri *url.URL) error {
	if uri == nil {
		return invalidArgument("nil uri")
	}
	if uri.Scheme == "" || uri.Host == "" {
		return invalidArgument("uri %q is not absolute", uri.Redacted())
	}
	if ctx == nil || ctx.Done() == nil {
		return invalidArgument("context can never be cancelled")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	r, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer s.teardown(r)

	r.log.Info().Str("uri", uri.Redacted()).Msg("connecting")

	t, err := s.factory.NewTransport(uri, s.opts)
	if err != nil {
		return s.connectFailed(r, uri, err)
	}
	r.transport = t

	// registered before Connect so no inbound event can be missed
	t.OnFrame(func(f core.Frame) { s.handleFrame(r, f) })
	t.OnError(func(err error) { s.handleError(r, err) })
	t.OnRemoteClose(func(info core.CloseInfo) { s.handleRemoteClose(r, info) })

	if err := t.Connect(ctx); err != nil {
		return s.connectFailed(r, uri, err)
	}

	if !s.open(r) && !s.isOpen(r) {
		r.log.Warn().Str("transport_state", t.State().String()).Msg("transport not ready after connect")
		return nil
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		r.log.Debug().Msg("cancellation requested")
	}
	return nil
}

func (s *Session) begin(ctx context.Context) (*run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.active() || s.closing {
		return nil, ErrAlreadyStreaming
	}
	sid := uuid.NewString()
	r := &run{
		sid:  sid,
		ctx:  ctx,
		log:  s.logger.With().Str("sid", sid).Logger(),
		done: make(chan struct{}),
	}
	s.run = r
	s.state = StateConnecting
	s.streaming = true
	return r, nil
}

func (s *Session) connectFailed(r *run, uri *url.URL, err error) error {
	// any failure concurrent with a requested cancellation counts as cancellation
	if errors.Is(err, context.Canceled) || r.ctx.Err() != nil {
		return nil
	}
	r.log.Error().Err(err).Str("uri", uri.Redacted()).Msg("connect failed")
	s.mu.Lock()
	if s.run == r && s.state.active() {
		s.state = StateClosing
	}
	s.mu.Unlock()
	return &ConnectError{URI: uri.Redacted(), Err: err}
}

// open promotes Connecting to Open once the transport reports ready and
// dispatches Opened. It reports whether this call did the promotion.
func (s *Session) open(r *run) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	return s.openLocked(r)
}

func (s *Session) openLocked(r *run) bool {
	s.mu.Lock()
	if s.run != r || s.state != StateConnecting || r.transport == nil ||
		r.transport.State() != core.TransportOpen {
		s.mu.Unlock()
		return false
	}
	s.state = StateOpen
	s.mu.Unlock()

	r.log.Info().Msg("connection opened")
	s.events.Dispatch(r.ctx, Event{Kind: EventOpened, SID: r.sid})
	return true
}

func (s *Session) isOpen(r *run) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run == r && s.state == StateOpen
}

// teardown runs on every exit path of Stream.
func (s *Session) teardown(r *run) {
	s.mu.Lock()
	if s.run == r {
		s.streaming = false
		if s.state == StateConnecting || s.state == StateOpen {
			s.state = StateClosing
		}
	}
	s.mu.Unlock()

	s.closeTransport(r)
	s.finish(r)
	r.signalDone()
}

// closeTransport releases the transport unless it already reports closed.
func (s *Session) closeTransport(r *run) {
	t := r.transport
	if t == nil || t.State() == core.TransportClosed {
		return
	}
	if err := t.Close(); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Warn().Err(err).Msg("transport close")
	}
}

// finish moves to Closed and dispatches Closed at most once per run.
func (s *Session) finish(r *run) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.run != r || s.state == StateClosed || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.streaming = false
	s.closing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.closing = false
		s.mu.Unlock()
	}()
	r.log.Info().Msg("connection closed")
	s.events.Dispatch(r.ctx, Event{Kind: EventClosed, SID: r.sid})
}

func (s *Session) owns(r *run) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run == r && s.state != StateClosed
}

func (s *Session) handleFrame(r *run, f core.Frame) {
	switch f.Kind {
	case core.FramePing, core.FramePong:
		r.log.Debug().Str("kind", f.Kind.String()).Msg("control frame")
		return
	case core.FrameBinary:
		s.discard(r, f, "binary frame discarded")
		return
	case core.FrameText:
	default:
		s.discard(r, f, "unknown frame discarded")
		return
	}

	if !utf8.Valid(f.Payload) {
		s.discard(r, f, "invalid utf-8 text frame discarded")
		return
	}
	text := string(f.Payload)
	if strings.TrimSpace(text) == "" {
		s.discard(r, f, "empty text frame discarded")
		return
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	// a frame may race ahead of Stream promoting the run to Open
	s.openLocked(r)
	if !s.isOpen(r) {
		return
	}
	s.messages.Add(1)
	s.events.Dispatch(r.ctx, Event{Kind: EventMessageReceived, SID: r.sid, Text: text})
}

func (s *Session) discard(r *run, f core.Frame, msg string) {
	s.discarded.Add(1)
	r.log.Warn().Str("kind", f.Kind.String()).Int("bytes", len(f.Payload)).Msg(msg)
}

func (s *Session) handleRemoteClose(r *run, info core.CloseInfo) {
	if !s.owns(r) {
		return
	}
	r.log.Info().Int("code", info.Code).Str("reason", info.Reason).Msg("remote closed connection")
	s.closeFromTransport(r)
}

type stackTracer interface {
	StackTrace() []byte
}

func (s *Session) handleError(r *run, err error) {
	if !s.owns(r) {
		return
	}
	e := r.log.Error().Err(err)
	var st stackTracer
	if errors.As(err, &st) {
		e = e.Bytes("stack", st.StackTrace())
	}
	e.Msg("transport error")
	s.closeFromTransport(r)
}

func (s *Session) closeFromTransport(r *run) {
	s.mu.Lock()
	if s.run != r || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	s.streaming = false
	s.mu.Unlock()

	if st := r.transport.State(); st != core.TransportClosing && st != core.TransportClosed {
		if err := r.transport.Close(); err != nil {
			r.log.Warn().Err(err).Msg("transport close")
		}
	}
	s.finish(r)
	r.signalDone()
}
