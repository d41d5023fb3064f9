// Package engine implements the persistent realtime sync client: one
// socket to the gateway, a serial apply loop, reconnect with backoff,
// backlog catch-up, heartbeats, and a typed notification bus.
//
// All mutable engine state is confined to a single goroutine. Transport
// callbacks, timers, and caller commands post closures onto the
// operation queue, so handlers never race and records apply in arrival
// order.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	lanterrors "github.com/lantern-irc/lantern/internal/errors"
	"github.com/lantern-irc/lantern/pkg/protocol"
	"github.com/lantern-irc/lantern/pkg/reachability"
	"github.com/lantern-irc/lantern/pkg/store"
	"github.com/lantern-irc/lantern/pkg/transport"
)

// ErrStopped is delivered to requests outstanding when the engine
// shuts down.
var ErrStopped = errors.New("engine: stopped")

// Engine is the sync client. Create with New, then Start. All methods
// are safe for concurrent use.
type Engine struct {
	cfg    *Config
	logger *slog.Logger
	stores *store.Store
	bus    *Bus
	met    *metrics
	tracer trace.Tracer

	ops  chan func()
	stop chan struct{}
	done chan struct{}

	started atomic.Bool
	halted  atomic.Bool

	stateVal    atomic.Int32
	lagNanos    atomic.Int64
	offsetNanos atomic.Int64

	// Everything below is confined to the run loop.
	tr             transport.Transport
	gen            int
	lastErr        error
	session        string
	streamID       string
	corr           *correlator
	oob            *oobQueue
	catchup        *backlogSync
	hb             *heartbeat
	idleWindow     time.Duration
	idleTimer      *time.Timer
	reconnectTimer *time.Timer
	stableTimer    *time.Timer
	failCount      int
	suppress       bool
	active         bool
	selected       int
	accrued        int
	globalMsg      string
	prefs          json.RawMessage
	connSpan       trace.Span
}

// New creates an engine from cfg. Zero config fields take the
// DefaultConfig values.
func New(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.Clone()
	def := DefaultConfig()
	if cfg.Dialer == nil {
		cfg.Dialer = def.Dialer
	}
	if cfg.Reachability == nil {
		cfg.Reachability = def.Reachability
	}
	if cfg.BackoffFloor <= 0 {
		cfg.BackoffFloor = def.BackoffFloor
	}
	if cfg.BackoffCeiling <= 0 {
		cfg.BackoffCeiling = def.BackoffCeiling
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = def.StableAfter
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.IdleHeartbeatInterval <= 0 {
		cfg.IdleHeartbeatInterval = def.IdleHeartbeatInterval
	}
	if cfg.IdleGrace <= 0 {
		cfg.IdleGrace = def.IdleGrace
	}
	if cfg.DefaultIdleWindow <= 0 {
		cfg.DefaultIdleWindow = def.DefaultIdleWindow
	}
	if cfg.OpQueueSize <= 0 {
		cfg.OpQueueSize = def.OpQueueSize
	}
	if cfg.NotifyBuffer <= 0 {
		cfg.NotifyBuffer = def.NotifyBuffer
	}
	if cfg.PersistKey == "" {
		cfg.PersistKey = def.PersistKey
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	met := newMetrics(cfg.Metrics)

	e := &Engine{
		cfg:     cfg,
		logger:  logger.With("component", "engine"),
		stores:  store.New(),
		met:     met,
		tracer:  otel.Tracer("github.com/lantern-irc/lantern/pkg/engine"),
		ops:     make(chan func(), cfg.OpQueueSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		session: cfg.Session,
		corr:    newCorrelator(),
		oob:     &oobQueue{},
		active:  true,
	}
	e.bus = NewBus(cfg.NotifyBuffer, met.busDrops.Inc)
	e.hb = newHeartbeat(e)
	e.catchup = newBacklogSync(e)
	return e
}

// Start restores any persisted session and begins processing. It does
// not connect; call Connect.
func (e *Engine) Start() error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.New("engine: already started")
	}
	e.restoreSnapshot()
	go e.run()
	return nil
}

// Stop halts the engine, saving the session for a later restore.
// Outstanding requests fail with ErrStopped.
func (e *Engine) Stop() {
	if !e.started.Load() || !e.halted.CompareAndSwap(false, true) {
		return
	}
	close(e.stop)
	<-e.done
}

// Stores exposes the entity stores. Reads are safe at any time; the
// engine is the only writer.
func (e *Engine) Stores() *store.Store { return e.stores }

// Subscribe registers a notification subscriber.
func (e *Engine) Subscribe() *Subscription { return e.bus.Subscribe() }

// State returns the current connection state.
func (e *Engine) State() State { return State(e.stateVal.Load()) }

// Lag returns the round trip of the latest acknowledged heartbeat.
func (e *Engine) Lag() time.Duration { return time.Duration(e.lagNanos.Load()) }

// ClockOffset returns the smoothed difference between server and
// local clocks. Add it to local time to approximate server time.
func (e *Engine) ClockOffset() time.Duration { return time.Duration(e.offsetNanos.Load()) }

// Connect begins a connection attempt. A no-op unless disconnected.
// Re-enables auto reconnect after an explicit Disconnect.
func (e *Engine) Connect() {
	e.post(func() {
		e.suppress = false
		e.doConnect()
	})
}

// Disconnect closes the stream and suppresses auto reconnect until
// the next Connect. Queued commands are preserved.
func (e *Engine) Disconnect() {
	e.post(func() {
		e.suppress = true
		e.stopTimer(&e.reconnectTimer)
		e.dropConnection(nil)
	})
}

// Logout tears the session down: the stream closes, queued commands
// fail, the stores clear, and any persisted snapshot is deleted.
func (e *Engine) Logout() {
	e.post(e.doLogout)
}

// SetActive switches between foreground and background cadence. A
// foregrounded engine that lost its connection retries immediately.
func (e *Engine) SetActive(active bool) {
	e.post(func() {
		if e.active == active {
			return
		}
		e.active = active
		e.logger.Debug("activity changed", "active", active)
		if e.State() == StateConnected {
			e.hb.reschedule()
			if active {
				e.armIdleTimer()
				e.hb.beatNow()
			}
			return
		}
		if active && !e.suppress && e.State() == StateDisconnected {
			e.stopTimer(&e.reconnectTimer)
			e.doConnect()
		}
	})
}

// SelectBuffer marks bid as the buffer on screen. Its history is
// acknowledged as read and the next heartbeat carries the cursor.
func (e *Engine) SelectBuffer(bid int) {
	e.post(func() {
		e.selected = bid
		if last, ok := e.stores.Events.Last(bid); ok {
			e.stores.Buffers.MarkRead(bid, last.EID)
			e.hb.markDirty(bid)
		}
	})
}

// GlobalMessage returns the gateway's current global banner, if any.
func (e *Engine) GlobalMessage() string {
	var msg string
	e.call(func() { msg = e.globalMsg })
	return msg
}

// Prefs returns the account preference blob from the last stat_user
// record.
func (e *Engine) Prefs() json.RawMessage {
	var p json.RawMessage
	e.call(func() { p = e.prefs })
	return p
}

// Stats is a point-in-time view of engine internals, for the debug
// endpoint.
type Stats struct {
	State       State         `json:"state"`
	FailCount   int           `json:"fail_count"`
	Pending     int           `json:"pending_requests"`
	OOBQueued   int           `json:"oob_queued"`
	StreamID    string        `json:"stream_id"`
	Lag         time.Duration `json:"lag"`
	ClockOffset time.Duration `json:"clock_offset"`
	Servers     int           `json:"servers"`
	Buffers     int           `json:"buffers"`
	Selected    int           `json:"selected_bid"`
}

// Snapshot returns current engine statistics.
func (e *Engine) Snapshot() Stats {
	s := Stats{
		State:       e.State(),
		Lag:         e.Lag(),
		ClockOffset: e.ClockOffset(),
		Servers:     e.stores.Servers.Len(),
		Buffers:     e.stores.Buffers.Len(),
	}
	e.call(func() {
		s.FailCount = e.failCount
		s.Pending = e.corr.len()
		s.OOBQueued = e.oob.len()
		s.StreamID = e.streamID
		s.Selected = e.selected
	})
	return s
}

// run is the engine loop. Every handler executes here.
func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case fn := <-e.ops:
			fn()
		case <-e.stop:
			e.shutdown()
			return
		}
	}
}

// post queues fn onto the loop. Returns false once the engine stops.
func (e *Engine) post(fn func()) bool {
	select {
	case <-e.stop:
		return false
	default:
	}
	select {
	case e.ops <- fn:
		return true
	case <-e.stop:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (e *Engine) call(fn func()) bool {
	ran := make(chan struct{})
	if !e.post(func() {
		fn()
		close(ran)
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-e.done:
		return false
	}
}

func (e *Engine) shutdown() {
	e.saveSnapshot()
	e.stopTimer(&e.reconnectTimer)
	e.stopTimer(&e.stableTimer)
	e.stopTimer(&e.idleTimer)
	e.hb.stop()
	if e.tr != nil {
		e.tr.Close()
		e.tr = nil
	}
	e.corr.failAll(ErrStopped)
	e.oob.clear(ErrStopped)
	e.logger.Info("engine stopped")
}

func (e *Engine) setState(s State, err error) {
	prev := State(e.stateVal.Swap(int32(s)))
	if prev == s && err == nil {
		return
	}
	e.met.state.Set(float64(s))
	if err != nil {
		e.logger.Info("state changed", "from", prev.String(), "to", s.String(), "fail_count", e.failCount, "err", err)
	} else {
		e.logger.Info("state changed", "from", prev.String(), "to", s.String(), "fail_count", e.failCount)
	}
	e.bus.Publish(Notification{
		Kind:      NoteConnectivity,
		State:     s,
		FailCount: e.failCount,
		Err:       err,
	})
}

func (e *Engine) doConnect() {
	if e.State() != StateDisconnected {
		return
	}
	e.stopTimer(&e.reconnectTimer)

	if e.cfg.Reachability.Status() == reachability.Unreachable {
		err := lanterrors.New(lanterrors.CodeUnreachable)
		e.logger.Warn("connect deferred", "err", err)
		e.bus.Publish(Notification{Kind: NoteConnectivity, State: StateDisconnected, FailCount: e.failCount, Err: err})
		e.failCount++
		e.scheduleReconnect()
		return
	}

	ctx, span := e.tracer.Start(context.Background(), "engine.connect",
		trace.WithAttributes(
			attribute.String("gateway", e.cfg.Endpoint.Host),
			attribute.Int("attempt", e.failCount),
		))
	e.connSpan = span

	e.setState(StateConnecting, nil)
	e.gen++
	gen := e.gen
	e.lastErr = nil
	tr := e.cfg.Dialer(e.dialEndpoint(), &listener{e: e, gen: gen})
	e.tr = tr
	go func() {
		if err := tr.Connect(ctx); err != nil {
			e.post(func() { e.onDialError(gen, err) })
		}
	}()
}

func (e *Engine) dialEndpoint() transport.Endpoint {
	ep := e.cfg.Endpoint
	h := make(http.Header, len(ep.Header)+1)
	for k, v := range ep.Header {
		h[k] = v
	}
	if e.session != "" {
		h.Set("Cookie", "session="+e.session)
	}
	ep.Header = h
	return ep
}

func (e *Engine) onDialError(gen int, err error) {
	if gen != e.gen {
		return
	}
	e.connectionLost(lanterrors.New(lanterrors.CodeConnectFailed).Wrap(err))
}

func (e *Engine) onOpen(gen int) {
	if gen != e.gen {
		return
	}
	e.logger.Debug("socket open", "gateway", e.cfg.Endpoint.Host)
	args := map[string]any{"cookie": e.session}
	if e.streamID != "" {
		args["stream_id"] = e.streamID
	}
	cmd := protocol.NewCommand(protocol.MethodAuth, args)
	cmd.ReqID = e.corr.next()
	if err := e.write(cmd); err != nil {
		e.connectionLost(lanterrors.New(lanterrors.CodeConnectionLost).Wrap(err))
		return
	}
	e.armIdleTimer()
}

func (e *Engine) onFrame(gen int, data []byte) {
	if gen != e.gen {
		return
	}
	e.met.frames.Inc()
	e.armIdleTimer()

	rec, err := protocol.DecodeRecord(data)
	if err != nil {
		e.met.dropped.Inc()
		e.logger.Warn("dropping undecodable frame", "err", err, "bytes", len(data))
		return
	}
	e.met.records.WithLabelValues(rec.Type.String()).Inc()
	if err := rec.Validate(); err != nil {
		e.met.dropped.Inc()
		e.logger.Warn("dropping malformed record", "tag", rec.Tag, "err", err)
		return
	}
	e.dispatch(rec)
}

func (e *Engine) onTransportError(gen int, err error) {
	if gen != e.gen {
		return
	}
	e.lastErr = err
}

func (e *Engine) onTransportClose(gen int, code int, reason string) {
	if gen != e.gen {
		return
	}
	err := lanterrors.New(lanterrors.CodeSocketClosed)
	if reason != "" {
		err = err.WithDetail(reason)
	}
	if e.lastErr != nil {
		err = err.Wrap(e.lastErr)
	}
	e.logger.Warn("socket closed", "code", code, "reason", reason, "err", e.lastErr)
	e.connectionLost(err)
}

// dropConnection tears the transport down and lands in Disconnected
// without touching the reconnect schedule.
func (e *Engine) dropConnection(err error) {
	if e.State() == StateDisconnected {
		return
	}
	if e.tr != nil {
		e.tr.Close()
		e.tr = nil
	}
	e.gen++
	e.hb.stop()
	e.stopTimer(&e.idleTimer)
	e.stopTimer(&e.stableTimer)

	lost := lanterrors.New(lanterrors.CodeConnectionLost)
	if err != nil {
		lost = lost.Wrap(err)
	}
	e.corr.failAll(lost)
	e.met.pending.Set(0)
	e.catchup.abort(lost)

	if e.connSpan != nil {
		if err != nil {
			e.connSpan.RecordError(err)
		}
		e.connSpan.End()
		e.connSpan = nil
	}
	e.setState(StateDisconnected, err)
	e.saveSnapshot()
}

// connectionLost is dropConnection plus the reconnect ladder.
func (e *Engine) connectionLost(err error) {
	if e.State() == StateDisconnected {
		return
	}
	e.dropConnection(err)
	if e.suppress {
		return
	}
	e.failCount++
	e.met.reconnects.Inc()
	e.scheduleReconnect()
}

func (e *Engine) scheduleReconnect() {
	delay := backoffDelay(e.cfg.BackoffFloor, e.cfg.BackoffCeiling, e.failCount)
	e.logger.Info("reconnect scheduled", "delay", delay, "fail_count", e.failCount)
	e.stopTimer(&e.reconnectTimer)
	e.reconnectTimer = time.AfterFunc(delay, func() {
		e.post(func() {
			if !e.suppress {
				e.doConnect()
			}
		})
	})
}

// backoffDelay returns the reconnect delay for the given consecutive
// failure count: floor doubling per failure, capped at ceiling.
func backoffDelay(floor, ceiling time.Duration, failCount int) time.Duration {
	if failCount <= 1 {
		return floor
	}
	delay := floor
	for i := 1; i < failCount; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	return delay
}

func (e *Engine) armStableTimer() {
	e.stopTimer(&e.stableTimer)
	gen := e.gen
	e.stableTimer = time.AfterFunc(e.cfg.StableAfter, func() {
		e.post(func() {
			if gen == e.gen && e.State() == StateConnected && e.failCount != 0 {
				e.logger.Debug("connection stable, backoff reset")
				e.failCount = 0
			}
		})
	})
}

func (e *Engine) armIdleTimer() {
	window := e.idleWindow
	if window <= 0 {
		window = e.cfg.DefaultIdleWindow
	}
	window += e.cfg.IdleGrace
	e.stopTimer(&e.idleTimer)
	gen := e.gen
	e.idleTimer = time.AfterFunc(window, func() {
		e.post(func() { e.onIdleTimeout(gen) })
	})
}

func (e *Engine) onIdleTimeout(gen int) {
	if gen != e.gen || e.State() == StateDisconnected {
		return
	}
	e.met.idleTimeouts.Inc()
	err := lanterrors.New(lanterrors.CodeIdleTimeout)
	e.logger.Warn("stream went silent, forcing reconnect", "window", e.idleWindow)
	e.connectionLost(err)
}

func (e *Engine) doLogout() {
	e.suppress = true
	e.stopTimer(&e.reconnectTimer)
	e.dropConnection(nil)
	e.oob.clear(lanterrors.New(lanterrors.CodeAuthRequired).WithDetail("logged out"))
	e.met.oobDepth.Set(0)
	e.stores.Reset()
	e.streamID = ""
	e.session = ""
	e.prefs = nil
	e.globalMsg = ""
	e.selected = 0
	e.failCount = 0
	e.clearSnapshot()
	e.logger.Info("logged out")
	e.bus.Publish(Notification{Kind: NoteConnectivity, State: StateDisconnected, Err: lanterrors.New(lanterrors.CodeAuthRequired)})
}

func (e *Engine) onAuthRejected(message string) {
	e.logger.Warn("session rejected by gateway", "message", message)
	e.suppress = true
	e.stopTimer(&e.reconnectTimer)
	e.streamID = ""
	err := lanterrors.New(lanterrors.CodeAuthRequired).WithDetail(message)
	e.dropConnection(err)
}

// write encodes and sends one command on the live transport.
func (e *Engine) write(cmd *protocol.Command) error {
	data, err := cmd.Encode()
	if err != nil {
		return err
	}
	if e.tr == nil {
		return transport.ErrTransportClosed
	}
	if err := e.tr.Send(data); err != nil {
		return err
	}
	e.met.commands.Inc()
	return nil
}

// enqueue routes a command: straight out when connected, onto the
// out-of-band queue otherwise.
func (e *Engine) enqueue(cmd *protocol.Command, req *Request) {
	if e.State() == StateConnected {
		e.corr.track(req)
		e.met.pending.Set(float64(e.corr.len()))
		if err := e.write(cmd); err != nil {
			e.connectionLost(lanterrors.New(lanterrors.CodeConnectionLost).Wrap(err))
		}
		return
	}
	e.oob.push(cmd, req)
	e.met.oobDepth.Set(float64(e.oob.len()))
	e.logger.Debug("command queued for next connection", "method", cmd.Method, "reqid", req.reqID, "depth", e.oob.len())
}

// flushOOB replays queued commands in submission order. Runs before
// any command issued after the connection came up.
func (e *Engine) flushOOB() {
	entries := e.oob.drain()
	e.met.oobDepth.Set(0)
	if len(entries) == 0 {
		return
	}
	e.logger.Info("replaying queued commands", "count", len(entries))
	for i, entry := range entries {
		e.corr.track(entry.req)
		if err := e.write(entry.cmd); err != nil {
			// Re-queue the unreplayed remainder in order so it survives
			// to the next connection; the tracked entries fail with
			// connection-lost below.
			for _, rest := range entries[i+1:] {
				e.oob.push(rest.cmd, rest.req)
			}
			e.met.oobDepth.Set(float64(e.oob.len()))
			e.connectionLost(lanterrors.New(lanterrors.CodeConnectionLost).Wrap(err))
			return
		}
	}
	e.met.pending.Set(float64(e.corr.len()))
}

func (e *Engine) stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// listener adapts transport callbacks onto the engine loop. The
// generation stamp discards callbacks from a superseded transport.
type listener struct {
	e   *Engine
	gen int
}

func (l *listener) OnOpen() {
	l.e.post(func() { l.e.onOpen(l.gen) })
}

func (l *listener) OnFrame(data []byte) {
	l.e.post(func() { l.e.onFrame(l.gen, data) })
}

func (l *listener) OnClose(code int, reason string) {
	l.e.post(func() { l.e.onTransportClose(l.gen, code, reason) })
}

func (l *listener) OnError(err error) {
	l.e.post(func() { l.e.onTransportError(l.gen, err) })
}
