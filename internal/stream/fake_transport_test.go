package stream

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/wsstream/internal/core"
)

// fakeTransport lets tests inject frames, errors and remote closes.
type fakeTransport struct {
	mu     sync.Mutex
	state  core.TransportState
	closes int
	opts   core.TransportOptions

	connectFn func(ctx context.Context, f *fakeTransport) error

	onFrame       func(core.Frame)
	onError       func(error)
	onRemoteClose func(core.CloseInfo)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{state: core.TransportConnecting}
}

func (f *fakeTransport) OnFrame(fn func(core.Frame)) { f.onFrame = fn }
func (f *fakeTransport) OnError(fn func(error)) { f.onError = fn }
func (f *fakeTransport) OnRemoteClose(fn func(core.CloseInfo)) { f.onRemoteClose = fn }

func (f *fakeTransport) Connect(ctx context.Context) error {
	if f.connectFn != nil {
		if err := f.connectFn(ctx, f); err != nil {
			f.setState(core.TransportClosed)
			return err
		}
	}
	f.mu.Lock()
	if f.state == core.TransportConnecting {
		f.state = core.TransportOpen
	}
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) State() core.TransportState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.state = core.TransportClosed
	return nil
}

func (f *fakeTransport) setState(s core.TransportState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeTransport) text(s string) { f.onFrame(core.TextFrame(s)) }
func (f *fakeTransport) frame(fr core.Frame) { f.onFrame(fr) }
func (f *fakeTransport) fail(err error) { f.onError(err) }
func (f *fakeTransport) remoteClose(code int) {
	f.setState(core.TransportClosing)
	f.onRemoteClose(core.CloseInfo{Code: code, Reason: "bye"})
}

// fakeFactory hands out queued transports in order.
type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
	err        error
	calls      int
}

func (ff *fakeFactory) NewTransport(_ *url.URL, opts core.TransportOptions) (core.Transport, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	ff.calls++
	if ff.err != nil {
		return nil, ff.err
	}
	t := ff.transports[0]
	ff.transports = ff.transports[1:]
	t.opts = opts
	return t, nil
}

func (ff *fakeFactory) callCount() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.calls
}

// recorder captures delivered events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func record(s *Session) *recorder {
	r := &recorder{}
	s.OnOpened(func(context.Context) error { r.add("opened"); return nil })
	s.OnMessage(func(_ context.Context, text string) error { r.add("message:" + text); return nil })
	s.OnClosed(func(context.Context) error { r.add("closed"); return nil })
	return r
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(ev string) int {
	n := 0
	for _, e := range r.snapshot() {
		if e == ev {
			n++
		}
	}
	return n
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// startStream runs Stream in the background and returns its result channel.
func startStream(ctx context.Context, s *Session, u *url.URL) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Stream(ctx, u) }()
	return errCh
}

func waitResult(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not return")
		return nil
	}
}
