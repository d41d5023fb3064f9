package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConfig tunes the websocket transport.
type WebSocketConfig struct {
	// DialTimeout bounds the websocket handshake.
	// Default: 30 seconds.
	DialTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// MaxMessageSize is the largest inbound message accepted.
	// Default: 4MB (backlog chunks are large).
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns a WebSocketConfig with sensible
// defaults.
func DefaultWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		DialTimeout:    30 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 4 << 20,
	}
}

// WebSocket is the production Transport over gorilla/websocket.
type WebSocket struct {
	ep       Endpoint
	listener Listener
	config   *WebSocketConfig
	logger   *slog.Logger

	mu     sync.Mutex // protects conn writes
	conn   *websocket.Conn
	closed atomic.Bool
}

// NewWebSocket creates a websocket transport for the endpoint.
func NewWebSocket(ep Endpoint, l Listener, config *WebSocketConfig, logger *slog.Logger) *WebSocket {
	if config == nil {
		config = DefaultWebSocketConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocket{
		ep:       ep,
		listener: l,
		config:   config,
		logger:   logger.With("endpoint", ep.Host),
	}
}

// WebSocketDialer returns a Dialer producing websocket transports with
// the given configuration.
func WebSocketDialer(config *WebSocketConfig, logger *slog.Logger) Dialer {
	return func(ep Endpoint, l Listener) Transport {
		return NewWebSocket(ep, l, config, logger)
	}
}

// Connect dials the endpoint and starts the read loop.
func (w *WebSocket) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout:  w.config.DialTimeout,
		EnableCompression: true,
	}

	conn, _, err := dialer.DialContext(ctx, w.ep.URL(), w.ep.Header)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", w.ep.URL(), err)
	}
	conn.SetReadLimit(w.config.MaxMessageSize)

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	go w.readLoop(conn)
	return nil
}

// readLoop delivers frames to the listener until the socket dies.
func (w *WebSocket) readLoop(conn *websocket.Conn) {
	w.listener.OnOpen()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			code, reason := closeInfo(err)
			if !w.closed.Load() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				w.logger.Error("read error", "error", err)
				w.listener.OnError(err)
			}
			w.teardown()
			w.listener.OnClose(code, reason)
			return
		}
		w.listener.OnFrame(msg)
	}
}

// closeInfo extracts the close code and reason from a read error.
func closeInfo(err error) (int, string) {
	if ce, ok := err.(*websocket.CloseError); ok {
		return ce.Code, ce.Text
	}
	return websocket.CloseAbnormalClosure, err.Error()
}

// Send writes one message to the socket.
func (w *WebSocket) Send(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() || w.conn == nil {
		return ErrTransportClosed
	}

	w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Close shuts the socket down. The read loop delivers OnClose.
func (w *WebSocket) Close() error {
	if w.closed.Swap(true) {
		return nil
	}

	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return nil
	}

	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

// teardown marks the transport dead after a read failure.
func (w *WebSocket) teardown() {
	if w.closed.Swap(true) {
		return
	}
	w.mu.Lock()
	if w.conn != nil {
		w.conn.Close()
	}
	w.mu.Unlock()
}
