package engine

import (
	"strconv"
	"time"

	lanterrors "github.com/lantern-irc/lantern/internal/errors"
	"github.com/lantern-irc/lantern/pkg/protocol"
)

// heartbeat flushes read-state cursors to the gateway on a cadence and
// measures round trip and clock offset from the acknowledgements.
// Confined to the engine loop; timers post back onto it.
type heartbeat struct {
	e         *Engine
	timer     *time.Timer
	dirty     map[int]struct{}
	lastReqID int64
	lastSent  time.Time
	offset    time.Duration
	lag       time.Duration
}

func newHeartbeat(e *Engine) *heartbeat {
	return &heartbeat{e: e, dirty: make(map[int]struct{})}
}

// markDirty flags a buffer whose cursor moved locally. The next beat
// carries it.
func (h *heartbeat) markDirty(bid int) {
	h.dirty[bid] = struct{}{}
}

func (h *heartbeat) start() {
	h.schedule()
}

func (h *heartbeat) stop() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.lastReqID = 0
}

// reschedule applies a cadence change immediately.
func (h *heartbeat) reschedule() {
	if h.timer != nil {
		h.schedule()
	}
}

func (h *heartbeat) interval() time.Duration {
	if h.e.active {
		return h.e.cfg.HeartbeatInterval
	}
	return h.e.cfg.IdleHeartbeatInterval
}

func (h *heartbeat) schedule() {
	if h.timer != nil {
		h.timer.Stop()
	}
	gen := h.e.gen
	h.timer = time.AfterFunc(h.interval(), func() {
		h.e.post(func() { h.beat(gen) })
	})
}

// beatNow sends a heartbeat immediately, outside the cadence.
func (h *heartbeat) beatNow() {
	h.beat(h.e.gen)
}

// beat sends one heartbeat and reschedules. Single-buffer form when
// at most one cursor is dirty, batched seenEids form otherwise.
func (h *heartbeat) beat(gen int) {
	e := h.e
	if gen != e.gen || e.State() != StateConnected {
		return
	}
	defer h.schedule()

	dirty := h.dirty
	h.dirty = make(map[int]struct{})
	if len(dirty) == 0 {
		// Nothing new to report; beat the selected buffer anyway so
		// lag and offset stay fresh.
		if _, ok := e.stores.Buffers.Get(e.selected); ok {
			dirty[e.selected] = struct{}{}
		}
	}

	args := map[string]any{"selectedBuffer": e.selected}
	switch {
	case len(dirty) == 1:
		for bid := range dirty {
			buf, ok := e.stores.Buffers.Get(bid)
			if !ok {
				continue
			}
			args["cid"] = buf.CID
			args["bid"] = bid
			args["last_seen_eid"] = buf.LastSeenEID
		}
	case len(dirty) > 1:
		seen := make(map[string]map[string]float64)
		for bid := range dirty {
			buf, ok := e.stores.Buffers.Get(bid)
			if !ok {
				continue
			}
			cid := strconv.Itoa(buf.CID)
			if seen[cid] == nil {
				seen[cid] = make(map[string]float64)
			}
			seen[cid][strconv.Itoa(bid)] = buf.LastSeenEID
		}
		args["seenEids"] = seen
	}

	cmd := protocol.NewCommand(protocol.MethodHeartbeat, args)
	cmd.ReqID = e.corr.next()
	h.lastReqID = cmd.ReqID
	h.lastSent = time.Now()
	if err := e.write(cmd); err != nil {
		e.connectionLost(lanterrors.New(lanterrors.CodeConnectionLost).Wrap(err))
	}
}

// ack consumes a response when it belongs to the latest heartbeat.
// Heartbeats are engine-internal, so their responses never reach the
// correlator.
func (h *heartbeat) ack(resp *protocol.Response, now time.Time) bool {
	if resp.ReqID == 0 || resp.ReqID != h.lastReqID {
		return false
	}
	h.lastReqID = 0
	if resp.Success {
		h.setLag(now.Sub(h.lastSent))
	}
	return true
}

// onEcho applies the authoritative read state from a heartbeat_echo
// and refreshes the clock offset estimate.
func (h *heartbeat) onEcho(rec *protocol.Record) {
	e := h.e
	var seen map[string]map[string]float64
	if err := rec.Unmarshal("seenEids", &seen); err != nil {
		e.logger.Warn("bad heartbeat_echo record", "err", err)
		return
	}
	for _, bids := range seen {
		for bidStr, eid := range bids {
			bid, err := strconv.Atoi(bidStr)
			if err != nil {
				continue
			}
			e.stores.Buffers.MarkRead(bid, eid)
		}
	}

	if ts := rec.Float("timestamp"); ts > 0 && !h.lastSent.IsZero() {
		h.setLag(time.Since(h.lastSent))
		server := time.Duration(ts * float64(time.Second))
		local := time.Duration(h.lastSent.UnixNano())
		sample := server - local
		if h.offset == 0 {
			h.offset = sample
		} else {
			// Exponential smoothing, weight 1/5 on the new sample.
			h.offset = (h.offset*4 + sample) / 5
		}
		e.offsetNanos.Store(int64(h.offset))
		e.met.clockOffset.Set(h.offset.Seconds())
	}
}

func (h *heartbeat) setLag(lag time.Duration) {
	h.lag = lag
	h.e.lagNanos.Store(int64(lag))
	h.e.met.lagSeconds.Set(lag.Seconds())
}
