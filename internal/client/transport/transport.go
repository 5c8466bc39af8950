// Package transport wraps a websocket connection in the emit/on event
// contract the session core depends on. Inbound events are decoded and
// dispatched on a single goroutine in arrival order; the adapter never
// reorders or batches them.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dhkiller350/cyber-chat/internal/domain"
	"github.com/dhkiller350/cyber-chat/pkg/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ErrNotConnected is returned by Emit while the link is down.
var ErrNotConnected = errors.New("transport: not connected")

// ErrShutdown is returned by Emit after a permanent shutdown.
var ErrShutdown = errors.New("transport: shut down")

// Handler receives the raw payload of one inbound event.
type Handler func(data json.RawMessage)

// Config controls dialing and reconnect behavior.
type Config struct {
	URL          string        `mapstructure:"url"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReconnectMin time.Duration `mapstructure:"reconnect_min"`
	ReconnectMax time.Duration `mapstructure:"reconnect_max"`
}

// Transport maintains the connection and fans inbound events out to
// registered handlers. Reconnection is automatic until Shutdown, which
// is permanent for the process lifetime.
type Transport struct {
	cfg    Config
	logger zerolog.Logger

	mu             sync.Mutex
	handlers       map[string][]Handler
	onConnect      []func()
	onDisconnect   []func()
	onConnectError []func(reason string)
	conn           *websocket.Conn
	connected      bool
	down           bool // permanent, set by Shutdown
}

// New creates a Transport. Register handlers before calling Run.
func New(cfg Config, logger zerolog.Logger) *Transport {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = 30 * time.Second
	}
	return &Transport{
		cfg:      cfg,
		logger:   logger,
		handlers: make(map[string][]Handler),
	}
}

// On registers a handler for an inbound event.
func (t *Transport) On(event string, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[event] = append(t.handlers[event], h)
}

// OnConnect registers a connection-established callback.
func (t *Transport) OnConnect(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConnect = append(t.onConnect, f)
}

// OnDisconnect registers a connection-lost callback.
func (t *Transport) OnDisconnect(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDisconnect = append(t.onDisconnect, f)
}

// OnConnectError registers a dial-failure callback.
func (t *Transport) OnConnectError(f func(reason string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConnectError = append(t.onConnectError, f)
}

// Connected reports whether the link is currently up.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Emit sends one event to the server.
func (t *Transport) Emit(event string, payload any) error {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		data = b
	}
	frame, err := json.Marshal(domain.Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.down {
		return ErrShutdown
	}
	if !t.connected || t.conn == nil {
		return ErrNotConnected
	}
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

// Shutdown tears the connection down permanently. Used for bans: the
// transport must not reconnect for the rest of the process lifetime.
func (t *Transport) Shutdown() {
	t.mu.Lock()
	t.down = true
	conn := t.conn
	t.conn = nil
	t.connected = false
	t.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	}
}

// Run dials and serves the connection, reconnecting with backoff until
// the context is canceled or Shutdown is called.
func (t *Transport) Run(ctx context.Context) {
	backoff := t.cfg.ReconnectMin

	for {
		if t.isDown() || ctx.Err() != nil {
			return
		}

		dialer := websocket.Dialer{HandshakeTimeout: t.cfg.DialTimeout}
		conn, _, err := dialer.DialContext(ctx, t.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil || t.isDown() {
				return
			}
			t.logger.Warn().Err(err).Str(log.FieldEvent, "dial").Msg("connect failed")
			for _, f := range t.snapshotConnectError() {
				f(err.Error())
			}
			if !t.sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, t.cfg.ReconnectMax)
			continue
		}
		backoff = t.cfg.ReconnectMin

		t.mu.Lock()
		if t.down {
			t.mu.Unlock()
			conn.Close()
			return
		}
		t.conn = conn
		t.connected = true
		t.mu.Unlock()

		for _, f := range t.snapshotConnect() {
			f()
		}

		t.serve(ctx, conn)

		t.mu.Lock()
		wasDown := t.down
		t.conn = nil
		t.connected = false
		t.mu.Unlock()

		if wasDown || ctx.Err() != nil {
			return
		}
		for _, f := range t.snapshotDisconnect() {
			f()
		}
	}
}

// serve reads frames until the connection drops. Keepalive pings ride
// on websocket control frames, independent of the app-level probe.
func (t *Transport) serve(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.mu.Lock()
				if t.conn == conn && t.connected {
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					conn.WriteMessage(websocket.PingMessage, nil)
				}
				t.mu.Unlock()
			case <-stop:
				return
			case <-ctx.Done():
				conn.Close()
				return
			}
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logger.Debug().Err(err).Msg("read loop ended")
			}
			return
		}
		t.dispatch(data)
	}
}

func (t *Transport) dispatch(data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.logger.Warn().Err(err).Msg("malformed frame")
		return
	}

	t.mu.Lock()
	handlers := append([]Handler(nil), t.handlers[env.Event]...)
	t.mu.Unlock()

	if len(handlers) == 0 {
		t.logger.Debug().Str(log.FieldEvent, env.Event).Msg("unhandled event")
		return
	}
	for _, h := range handlers {
		h(env.Data)
	}
}

func (t *Transport) isDown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.down
}

func (t *Transport) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *Transport) snapshotConnect() []func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]func(){}, t.onConnect...)
}

func (t *Transport) snapshotDisconnect() []func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]func(){}, t.onDisconnect...)
}

func (t *Transport) snapshotConnectError() []func(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]func(reason string){}, t.onConnectError...)
}
