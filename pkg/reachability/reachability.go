// Package reachability reports whether the gateway looks reachable.
// The engine consults it before scheduling connection attempts so a
// dead network does not burn through the backoff ladder.
package reachability

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Status is the current network verdict.
type Status int

const (
	Unknown Status = iota
	Reachable
	Unreachable
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case Reachable:
		return "Reachable"
	case Unreachable:
		return "Unreachable"
	default:
		return "Unknown"
	}
}

// Monitor reports reachability. Implementations must be safe for
// concurrent use.
type Monitor interface {
	// Status returns the last known verdict.
	Status() Status
}

// Always is a Monitor pinned to a fixed status. Used in tests and as
// the default when no monitor is configured.
type Always Status

// Status implements Monitor.
func (a Always) Status() Status { return Status(a) }

// Prober polls a TCP dial against the gateway address and caches the
// verdict. OnChange, if set, fires from the polling goroutine on
// every verdict flip.
type Prober struct {
	Addr     string
	Interval time.Duration
	OnChange func(Status)

	logger *slog.Logger

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
}

// NewProber creates a prober for addr ("host:port").
func NewProber(addr string, interval time.Duration, logger *slog.Logger) *Prober {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		Addr:     addr,
		Interval: interval,
		logger:   logger.With("probe_addr", addr),
		status:   Unknown,
	}
}

// Status implements Monitor.
func (p *Prober) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Start begins polling until Stop is called.
func (p *Prober) Start() {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	go p.loop(ctx)
}

// Stop halts polling. The status freezes at its last verdict.
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Prober) loop(ctx context.Context) {
	p.probe(ctx)
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d net.Dialer
	verdict := Reachable
	conn, err := d.DialContext(dialCtx, "tcp", p.Addr)
	if err != nil {
		verdict = Unreachable
	} else {
		conn.Close()
	}

	p.mu.Lock()
	changed := p.status != verdict
	p.status = verdict
	onChange := p.OnChange
	p.mu.Unlock()

	if changed {
		p.logger.Info("reachability changed", "status", verdict.String())
		if onChange != nil {
			onChange(verdict)
		}
	}
}
