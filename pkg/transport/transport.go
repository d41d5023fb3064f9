// Package transport provides the message-framed, full-duplex socket
// the engine speaks through. The engine owns at most one live
// Transport at a time and binds exactly one Listener to it.
package transport

import (
	"context"
	"net/http"
	"net/url"
)

// Endpoint is the fixed host + path pair the client connects to.
type Endpoint struct {
	// Host is the gateway hostname, with optional port.
	Host string

	// Path is the stream path on the gateway.
	Path string

	// Insecure disables TLS. Only for local test gateways.
	Insecure bool

	// Header carries extra handshake headers (session cookie,
	// user agent).
	Header http.Header
}

// URL returns the websocket URL for the endpoint.
func (e Endpoint) URL() string {
	scheme := "wss"
	if e.Insecure {
		scheme = "ws"
	}
	u := url.URL{Scheme: scheme, Host: e.Host, Path: e.Path}
	return u.String()
}

// Listener receives transport callbacks. Calls arrive on the
// transport's own delivery goroutine; implementations must hand work
// off rather than block.
type Listener interface {
	// OnOpen fires once the socket is established.
	OnOpen()

	// OnFrame delivers one complete message. The slice is owned by
	// the listener after the call returns.
	OnFrame(data []byte)

	// OnClose fires when the socket shuts down, cleanly or not.
	// After OnClose no further callbacks arrive.
	OnClose(code int, reason string)

	// OnError reports a read or connect failure. OnClose follows.
	OnError(err error)
}

// Transport is a message-framed socket.
type Transport interface {
	// Connect opens the socket and starts delivery. It returns once
	// the dial completes; OnOpen fires before the first OnFrame.
	Connect(ctx context.Context) error

	// Send writes one message.
	Send(data []byte) error

	// Close tears the socket down. Safe to call more than once;
	// OnClose is still delivered exactly once.
	Close() error
}

// Dialer constructs a Transport bound to an endpoint and listener.
// The engine uses this to build a fresh transport per connection
// attempt; tests substitute fakes.
type Dialer func(ep Endpoint, l Listener) Transport
