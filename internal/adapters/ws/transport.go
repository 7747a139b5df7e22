package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dkeye/wsstream/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeTimeout = 5 * time.Second

var ErrUnsupportedScheme = errors.New("ws: unsupported scheme")

// Factory builds gorilla/websocket transports.
type Factory struct {
	Header http.Header
	Logger *zerolog.Logger
}

func (f Factory) NewTransport(uri *url.URL, opts core.TransportOptions) (core.Transport, error) {
	if uri == nil {
		return nil, errors.New("ws: nil uri")
	}
	if uri.Scheme != "ws" && uri.Scheme != "wss" {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, uri.Scheme)
	}
	l := zerolog.Nop()
	if f.Logger != nil {
		l = f.Logger.With().Str("module", "adapters.ws").Logger()
	}
	return &Transport{
		url:    uri.String(),
		header: f.Header.Clone(),
		opts:   opts,
		logger: l,
		state:  core.TransportConnecting,
	}, nil
}

// Transport is a client WebSocket connection implementing core.Transport.
type Transport struct {
	url    string
	header http.Header
	opts   core.TransportOptions
	logger zerolog.Logger

	onFrame       func(core.Frame)
	onError       func(error)
	onRemoteClose func(core.CloseInfo)

	// only control frames are written; WriteControl is safe for concurrent use
	mu    sync.Mutex
	conn  *websocket.Conn
	state core.TransportState
	stop  context.CancelFunc
}

func (t *Transport) OnFrame(fn func(core.Frame)) { t.onFrame = fn }
func (t *Transport) OnError(fn func(error)) { t.onError = fn }
func (t *Transport) OnRemoteClose(fn func(core.CloseInfo)) { t.onRemoteClose = fn }

func (t *Transport) State() core.TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect performs the handshake and starts the read and ping loops.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.state != core.TransportConnecting || t.conn != nil {
		t.mu.Unlock()
		return errors.New("ws: transport already used")
	}
	t.mu.Unlock()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: t.opts.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		t.setState(core.TransportClosed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ws dial: %w", ctxErr)
		}
		return fmt.Errorf("ws dial: %w", err)
	}

	if t.opts.ReadLimit > 0 {
		conn.SetReadLimit(t.opts.ReadLimit)
	}
	t.installControlHandlers(conn)
	_ = conn.SetReadDeadline(time.Now().Add(t.opts.KeepAlive))

	loopCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	if t.state != core.TransportConnecting {
		// closed while dialing
		t.mu.Unlock()
		cancel()
		_ = conn.Close()
		return errors.New("ws: closed during connect")
	}
	t.conn = conn
	t.state = core.TransportOpen
	t.stop = cancel
	t.mu.Unlock()

	t.logger.Debug().Str("url", t.url).Msg("connected")

	go t.readLoop(conn)
	if t.opts.KeepAlive > 0 {
		go t.pingLoop(loopCtx, conn)
	}
	return nil
}

func (t *Transport) installControlHandlers(conn *websocket.Conn) {
	conn.SetPingHandler(func(data string) error {
		t.refreshDeadline(conn)
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
		if t.opts.SurfaceControlFrames {
			t.emitFrame(core.Frame{Kind: core.FramePing, Payload: []byte(data)})
		}
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			return err
		}
		return nil
	})
	conn.SetPongHandler(func(data string) error {
		t.refreshDeadline(conn)
		if t.opts.SurfaceControlFrames {
			t.emitFrame(core.Frame{Kind: core.FramePong, Payload: []byte(data)})
		}
		return nil
	})
}

func (t *Transport) refreshDeadline(conn *websocket.Conn) {
	if t.opts.KeepAlive > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.opts.KeepAlive))
	}
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.readFailed(err)
			return
		}
		t.refreshDeadline(conn)
		switch mt {
		case websocket.TextMessage:
			t.emitFrame(core.Frame{Kind: core.FrameText, Payload: data})
		case websocket.BinaryMessage:
			t.emitFrame(core.Frame{Kind: core.FrameBinary, Payload: data})
		}
	}
}

func (t *Transport) readFailed(err error) {
	t.mu.Lock()
	local := t.state == core.TransportClosing || t.state == core.TransportClosed
	if !local {
		t.state = core.TransportClosing
	}
	t.mu.Unlock()
	if local {
		return
	}

	// 1006 is synthesized locally when the socket drops without a close frame
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
		if t.onRemoteClose != nil {
			t.onRemoteClose(core.CloseInfo{Code: ce.Code, Reason: ce.Text})
		}
	} else if t.onError != nil {
		t.onError(err)
	}
	// the session normally closes us from the callback; make sure we are released
	_ = t.Close()
}

func (t *Transport) emitFrame(f core.Frame) {
	if t.onFrame != nil {
		t.onFrame(f)
	}
}

// pingLoop keeps the link alive inside the idle window.
func (t *Transport) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(t.opts.KeepAlive * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			if err != nil {
				t.logger.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

// Close sends a normal-closure frame and releases the socket. It never
// waits for the read loop, so it is safe to call from a callback.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.state == core.TransportClosed {
		t.mu.Unlock()
		return nil
	}
	conn := t.conn
	stop := t.stop
	t.state = core.TransportClosed
	t.mu.Unlock()

	if stop != nil {
		stop()
	}
	if conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	werr := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))

	cerr := conn.Close()
	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		t.logger.Debug().Err(werr).Msg("close frame not sent")
	}
	return cerr
}

func (t *Transport) setState(s core.TransportState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}
