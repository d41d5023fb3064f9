package engine

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lantern-irc/lantern/pkg/reachability"
	"github.com/lantern-irc/lantern/pkg/state"
	"github.com/lantern-irc/lantern/pkg/transport"
)

// Config controls the sync engine.
type Config struct {
	// Endpoint is the gateway stream endpoint.
	Endpoint transport.Endpoint

	// Session is the session token minted by the api package.
	Session string

	// Dialer builds a transport per connection attempt. Defaults to
	// transport.WebSocketDialer with default socket options.
	Dialer transport.Dialer

	// Reachability gates connection attempts. Defaults to always
	// reachable.
	Reachability reachability.Monitor

	// BackoffFloor is the delay before the first reconnect attempt.
	// Default 500ms.
	BackoffFloor time.Duration

	// BackoffCeiling caps the reconnect delay. Default 30s.
	BackoffCeiling time.Duration

	// StableAfter is how long a connection must hold before the
	// failure counter resets. Default 60s.
	StableAfter time.Duration

	// HeartbeatInterval is the read-state flush cadence while the
	// app is active. Default 30s.
	HeartbeatInterval time.Duration

	// IdleHeartbeatInterval is the cadence while backgrounded.
	// Default 2m.
	IdleHeartbeatInterval time.Duration

	// IdleGrace pads the server's promised idle interval before the
	// engine declares the stream dead. Default 15s.
	IdleGrace time.Duration

	// DefaultIdleWindow applies until the header announces the real
	// idle interval. Default 60s.
	DefaultIdleWindow time.Duration

	// OpQueueSize bounds the engine's internal operation queue.
	// Default 256.
	OpQueueSize int

	// NotifyBuffer is the per-subscriber notification channel depth.
	// Default 64.
	NotifyBuffer int

	// Persist, when set, receives engine snapshots so sessions
	// survive a restart. Nil disables persistence.
	Persist state.Store

	// PersistKey is the snapshot key within Persist. Default
	// "engine".
	PersistKey string

	// Metrics is the prometheus registerer for engine metrics.
	// Defaults to the global registerer.
	Metrics prometheus.Registerer

	// Logger receives engine logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with production defaults. Endpoint,
// Session, and Persist are left for the caller.
func DefaultConfig() *Config {
	return &Config{
		Dialer:                transport.WebSocketDialer(nil, nil),
		Reachability:          reachability.Always(reachability.Reachable),
		BackoffFloor:          500 * time.Millisecond,
		BackoffCeiling:        30 * time.Second,
		StableAfter:           60 * time.Second,
		HeartbeatInterval:     30 * time.Second,
		IdleHeartbeatInterval: 2 * time.Minute,
		IdleGrace:             15 * time.Second,
		DefaultIdleWindow:     60 * time.Second,
		OpQueueSize:           256,
		NotifyBuffer:          64,
		PersistKey:            "engine",
	}
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
