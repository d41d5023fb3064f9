package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	lanterrors "github.com/lantern-irc/lantern/internal/errors"
	"github.com/lantern-irc/lantern/pkg/protocol"
	"github.com/lantern-irc/lantern/pkg/store"
)

// backlogSync runs the catch-up pass after a connection comes up. The
// oob_include record lists every buffer's latest eid; buffers whose
// cursor lags get a fetch, and the pass completes when every fetched
// buffer reports backlog_complete. Confined to the engine loop.
type backlogSync struct {
	e        *Engine
	active   bool
	pending  map[int]float64
	reqs     map[int64]int
	total    int
	done     int
	received int
	expected int
	span     trace.Span
}

func newBacklogSync(e *Engine) *backlogSync {
	return &backlogSync{
		e:       e,
		pending: make(map[int]float64),
		reqs:    make(map[int64]int),
	}
}

// begin processes an oob_include record and issues fetches.
func (b *backlogSync) begin(rec *protocol.Record) {
	e := b.e
	var bufs []struct {
		BID       int     `json:"bid"`
		CID       int     `json:"cid"`
		LatestEID float64 `json:"latest_eid"`
	}
	if err := rec.Unmarshal("buffers", &bufs); err != nil {
		e.logger.Warn("bad oob_include record", "err", err)
		return
	}

	b.active = false
	b.pending = make(map[int]float64)
	b.reqs = make(map[int64]int)
	b.done = 0
	b.received = 0
	b.expected = e.accrued

	type fetch struct {
		bid, cid int
		since    float64
		until    float64
	}
	var fetches []fetch
	for _, ob := range bufs {
		var cursor float64
		if buf, ok := e.stores.Buffers.Get(ob.BID); ok {
			cursor = buf.LastSeenEID
		}
		if ob.LatestEID <= cursor {
			continue
		}
		b.pending[ob.BID] = ob.LatestEID
		fetches = append(fetches, fetch{bid: ob.BID, cid: ob.CID, since: cursor, until: ob.LatestEID})
	}

	b.total = len(fetches)
	if b.total == 0 {
		e.logger.Debug("catch-up not needed", "buffers", len(bufs))
		e.bus.Publish(Notification{Kind: NoteBacklogCompleted})
		return
	}

	b.active = true
	_, b.span = e.tracer.Start(context.Background(), "engine.backlog",
		trace.WithAttributes(attribute.Int("buffers", b.total)))
	e.met.backlogRuns.Inc()
	e.logger.Info("catch-up started", "buffers", b.total, "expected_events", b.expected)
	e.bus.Publish(Notification{Kind: NoteBacklogStarted, Total: b.total, Expected: b.expected})

	for _, f := range fetches {
		cmd := protocol.NewCommand(protocol.MethodBacklog, map[string]any{
			"cid":       f.cid,
			"bid":       f.bid,
			"since_id":  f.since,
			"before_id": f.until,
		})
		cmd.ReqID = e.corr.next()
		b.reqs[cmd.ReqID] = f.bid
		if err := e.write(cmd); err != nil {
			e.connectionLost(lanterrors.New(lanterrors.CodeConnectionLost).Wrap(err))
			return
		}
	}
}

// takeReq claims a response belonging to a backlog fetch.
func (b *backlogSync) takeReq(reqID int64) (int, bool) {
	bid, ok := b.reqs[reqID]
	if ok {
		delete(b.reqs, reqID)
	}
	return bid, ok
}

// onResult handles the fetch acknowledgement. A failure marks the
// buffer deferred so the next connection retries it.
func (b *backlogSync) onResult(bid int, resp *protocol.Response) {
	if resp.Success {
		return
	}
	e := b.e
	err := lanterrors.CommandFailure(resp.Message)
	e.logger.Warn("backlog fetch failed", "bid", bid, "message", resp.Message)
	e.stores.Buffers.Update(bid, func(buf *store.Buffer) { buf.Deferred = true })
	delete(b.pending, bid)
	b.done++
	e.bus.Publish(Notification{Kind: NoteBacklogFailed, BID: bid, Err: err})
	b.maybeFinish()
}

// onEvent counts one replayed event toward progress.
func (b *backlogSync) onEvent(bid int) {
	if !b.active {
		return
	}
	if _, ok := b.pending[bid]; !ok {
		return
	}
	b.received++
	b.e.bus.Publish(Notification{
		Kind:     NoteBacklogProgress,
		BID:      bid,
		Total:    b.total,
		Done:     b.done,
		Received: b.received,
		Expected: b.expected,
	})
}

// onComplete marks one buffer caught up.
func (b *backlogSync) onComplete(bid int) {
	if _, ok := b.pending[bid]; !ok {
		return
	}
	delete(b.pending, bid)
	b.done++
	b.e.stores.Buffers.Update(bid, func(buf *store.Buffer) { buf.Deferred = false })
	b.maybeFinish()
}

func (b *backlogSync) maybeFinish() {
	if !b.active || len(b.pending) != 0 {
		return
	}
	b.active = false
	if b.span != nil {
		b.span.SetAttributes(attribute.Int("events", b.received))
		b.span.End()
		b.span = nil
	}
	b.e.logger.Info("catch-up complete", "buffers", b.done, "events", b.received)
	b.e.bus.Publish(Notification{
		Kind:     NoteBacklogCompleted,
		Total:    b.total,
		Done:     b.done,
		Received: b.received,
		Expected: b.expected,
	})
}

// abort cancels an in-flight pass on connection loss. Cursors are
// untouched, so the next connection refetches from where this one
// stopped.
func (b *backlogSync) abort(err error) {
	if !b.active {
		return
	}
	b.active = false
	b.pending = make(map[int]float64)
	b.reqs = make(map[int64]int)
	if b.span != nil {
		b.span.RecordError(err)
		b.span.End()
		b.span = nil
	}
	b.e.logger.Warn("catch-up aborted", "err", err)
	b.e.bus.Publish(Notification{Kind: NoteBacklogFailed, Err: err})
}
