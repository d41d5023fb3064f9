package engine

import (
	"time"

	"go.opentelemetry.io/otel/attribute"

	lanterrors "github.com/lantern-irc/lantern/internal/errors"
	"github.com/lantern-irc/lantern/pkg/protocol"
	"github.com/lantern-irc/lantern/pkg/store"
)

// dispatch routes one validated record. Runs on the engine loop.
func (e *Engine) dispatch(rec *protocol.Record) {
	switch rec.Type {
	case protocol.EventUnrecognized:
		// Forward compatibility: unknown tags are ignored, not fatal.
		e.logger.Debug("ignoring unrecognized record", "tag", rec.Tag)
		return
	case protocol.EventIdle:
		// Traffic already rearmed the idle timer.
		return
	case protocol.EventHeader:
		e.handleHeader(rec)
		return
	case protocol.EventSuccess, protocol.EventFailure:
		e.handleResponse(rec)
		return
	case protocol.EventHeartbeatEcho:
		e.hb.onEcho(rec)
		return
	case protocol.EventOOBInclude:
		e.catchup.begin(rec)
		return
	case protocol.EventBacklogStarts:
		e.logger.Debug("backlog stream opening", "bid", rec.BID)
		return
	case protocol.EventOOBSkipped:
		// The gateway decided this buffer needs no replay.
		e.catchup.onComplete(rec.BID)
		return
	case protocol.EventBacklogComplete:
		e.catchup.onComplete(rec.BID)
		return
	}

	// Buffer-scoped records pass the eid gate before any state
	// mutation; replays at or below the cursor are dropped whole.
	if rec.BID != 0 && rec.EID != 0 {
		if !e.applyBufferEvent(rec) {
			e.met.duplicates.Inc()
			e.logger.Debug("dropping duplicate event", "bid", rec.BID, "eid", rec.EID, "tag", rec.Tag)
			return
		}
	}

	if h, ok := handlers[rec.Type]; ok {
		h(e, rec)
	}
	if rec.Backlog {
		e.catchup.onEvent(rec.BID)
	}
	e.bus.Publish(Notification{Kind: NoteEvent, Record: rec, BID: rec.BID})
}

// applyBufferEvent stores a buffer event and advances the seen
// cursor. Returns false when the event is a replay to drop.
func (e *Engine) applyBufferEvent(rec *protocol.Record) bool {
	if buf, ok := e.stores.Buffers.Get(rec.BID); ok && rec.EID <= buf.LastSeenEID {
		return false
	}
	ev := store.Event{
		EID:       rec.EID,
		Tag:       rec.Tag,
		CID:       rec.CID,
		BID:       rec.BID,
		From:      rec.Str("from"),
		FromMode:  rec.Str("from_mode"),
		Hostmask:  rec.Str("hostmask"),
		Msg:       rec.Str("msg"),
		Nick:      rec.Str("nick"),
		Self:      rec.Bool("self"),
		Highlight: rec.Bool("highlight"),
	}
	fresh := e.stores.Events.Add(ev)
	e.stores.Buffers.Advance(rec.BID, rec.EID)
	if fresh && !ev.Self && rec.Type == protocol.EventBufferMsg && rec.BID != e.selected {
		e.stores.Buffers.RecordActivity(rec.BID, ev.Highlight)
	}
	return true
}

func (e *Engine) handleHeader(rec *protocol.Record) {
	if e.State() != StateConnecting {
		e.logger.Warn("header outside handshake, ignoring", "state", e.State().String())
		return
	}
	if v := rec.Float("idle_interval"); v > 0 {
		e.idleWindow = time.Duration(v) * time.Millisecond
	}
	if sid := rec.Str("streamid"); sid != "" {
		e.streamID = sid
	}
	e.accrued = rec.Int("accrued")
	resumed := rec.Bool("resumed")
	e.logger.Info("stream established",
		"stream_id", e.streamID,
		"resumed", resumed,
		"idle_interval", e.idleWindow,
		"accrued", e.accrued)

	if e.connSpan != nil {
		e.connSpan.SetAttributes(attribute.Bool("resumed", resumed))
		e.connSpan.End()
		e.connSpan = nil
	}
	e.setState(StateConnected, nil)
	e.armStableTimer()
	e.armIdleTimer()
	e.hb.start()
	e.flushOOB()
}

func (e *Engine) handleResponse(rec *protocol.Record) {
	resp, ok := protocol.ResponseFromRecord(rec)
	if !ok {
		return
	}
	if e.hb.ack(resp, time.Now()) {
		return
	}
	if bid, ok := e.catchup.takeReq(resp.ReqID); ok {
		e.catchup.onResult(bid, resp)
		return
	}
	if !resp.Success && lanterrors.IsAuthFailure(resp.Message) {
		e.onAuthRejected(resp.Message)
		return
	}

	res := Result{ReqID: resp.ReqID, Record: rec}
	if !resp.Success {
		res.Err = lanterrors.CommandFailure(resp.Message)
	}
	if e.corr.resolve(resp.ReqID, res) {
		e.met.pending.Set(float64(e.corr.len()))
	} else {
		e.logger.Debug("response with no pending request", "reqid", resp.ReqID, "success", resp.Success)
	}
}

// handlers mutate the entity stores per record type. Types absent
// here (query responses, alerts) pass straight through to the bus.
var handlers = map[protocol.EventType]func(*Engine, *protocol.Record){
	protocol.EventMakeServer:         handleMakeServer,
	protocol.EventConnectionDeleted:  func(e *Engine, r *protocol.Record) { e.stores.DeleteConnection(r.CID) },
	protocol.EventStatusChanged:      handleStatusChanged,
	protocol.EventConnectionLag:      handleConnectionLag,
	protocol.EventReorderConnections: handleReorder,
	protocol.EventMakeBuffer:         handleMakeBuffer,
	protocol.EventDeleteBuffer:       func(e *Engine, r *protocol.Record) { e.stores.DeleteBuffer(r.BID) },
	protocol.EventBufferArchived:     setArchived(true),
	protocol.EventBufferUnarchived:   setArchived(false),
	protocol.EventRenameConversation: handleRename,
	protocol.EventChannelInit:        handleChannelInit,
	protocol.EventChannelTopic:       handleChannelTopic,
	protocol.EventChannelMode:        handleChannelMode,
	protocol.EventChannelTimestamp:   handleChannelTimestamp,
	protocol.EventBadChannelKey:      handleBadChannelKey,
	protocol.EventJoin:               handleJoin,
	protocol.EventPart:               handlePart,
	protocol.EventQuit:               handleQuit,
	protocol.EventNickChange:         handleNickChange,
	protocol.EventKick:               handleKick,
	protocol.EventMemberUpdates:      handleMemberUpdates,
	protocol.EventUserChannelMode:    handleUserChannelMode,
	protocol.EventAway:               handleAway,
	protocol.EventSelfBack:           handleSelfBack,
	protocol.EventUserInfo:           handleUserInfo,
	protocol.EventGlobalMsg:          handleGlobalMsg,
}

func handleMakeServer(e *Engine, r *protocol.Record) {
	srv := store.Server{
		CID:      r.CID,
		Hostname: r.Str("hostname"),
		Port:     r.Int("port"),
		SSL:      r.Bool("ssl") || r.Int("ssl") != 0,
		Name:     r.Str("name"),
		Nick:     r.Str("nick"),
		Realname: r.Str("realname"),
		Status:   r.Str("status"),
		Order:    r.Int("order"),
		Away:     r.Str("away"),
	}
	if prev, ok := e.stores.Servers.Get(r.CID); ok {
		srv.Lag = prev.Lag
	}
	e.stores.Servers.Put(srv)
}

func handleStatusChanged(e *Engine, r *protocol.Record) {
	e.stores.Servers.Update(r.CID, func(s *store.Server) {
		s.Status = r.Str("new_status")
	})
}

func handleConnectionLag(e *Engine, r *protocol.Record) {
	e.stores.Servers.Update(r.CID, func(s *store.Server) {
		s.Lag = int64(r.Float("lag"))
	})
}

func handleReorder(e *Engine, r *protocol.Record) {
	var order []int
	if err := r.Unmarshal("order", &order); err != nil {
		e.logger.Warn("bad reorder record", "err", err)
		return
	}
	e.stores.Servers.Reorder(order)
}

func handleMakeBuffer(e *Engine, r *protocol.Record) {
	buf := store.Buffer{
		BID:         r.BID,
		CID:         r.CID,
		Name:        r.Str("name"),
		Type:        r.Str("buffer_type"),
		Archived:    r.Bool("archived") || r.Int("archived") != 0,
		Deferred:    r.Bool("deferred") || r.Int("deferred") != 0,
		LastSeenEID: r.Float("last_seen_eid"),
	}
	// Re-announcements must not clobber local counters or a cursor
	// that ran ahead of the server's view.
	if prev, ok := e.stores.Buffers.Get(r.BID); ok {
		buf.Unread = prev.Unread
		buf.Highlights = prev.Highlights
		if prev.LastSeenEID > buf.LastSeenEID {
			buf.LastSeenEID = prev.LastSeenEID
		}
	}
	e.stores.Buffers.Put(buf)
}

func setArchived(archived bool) func(*Engine, *protocol.Record) {
	return func(e *Engine, r *protocol.Record) {
		e.stores.Buffers.Update(r.BID, func(b *store.Buffer) {
			b.Archived = archived
		})
	}
}

func handleRename(e *Engine, r *protocol.Record) {
	e.stores.Buffers.Update(r.BID, func(b *store.Buffer) {
		b.Name = r.Str("new_name")
	})
}

func handleChannelInit(e *Engine, r *protocol.Record) {
	ch := store.Channel{
		CID:       r.CID,
		BID:       r.BID,
		Name:      r.Str("chan"),
		Mode:      r.Str("mode"),
		Timestamp: r.Float("timestamp"),
		URL:       r.Str("url"),
	}
	var topic struct {
		Text string  `json:"text"`
		Time float64 `json:"time"`
		Nick string  `json:"nick"`
	}
	if err := r.Unmarshal("topic", &topic); err == nil {
		ch.Topic = topic.Text
		ch.TopicTime = topic.Time
		ch.TopicBy = topic.Nick
	}
	e.stores.Channels.Put(ch)

	// channel_init carries the authoritative member list.
	var members []struct {
		Nick     string `json:"nick"`
		Usermask string `json:"usermask"`
		Mode     string `json:"mode"`
		Away     bool   `json:"away"`
	}
	if err := r.Unmarshal("members", &members); err != nil {
		return
	}
	e.stores.Users.RemoveBuffer(r.BID)
	for _, m := range members {
		e.stores.Users.Put(store.User{
			CID:      r.CID,
			BID:      r.BID,
			Nick:     m.Nick,
			Hostmask: m.Usermask,
			Mode:     m.Mode,
			Away:     m.Away,
		})
	}
}

func handleChannelTopic(e *Engine, r *protocol.Record) {
	e.stores.Channels.Update(r.BID, func(c *store.Channel) {
		c.Topic = r.Str("topic")
		c.TopicBy = r.Str("author")
		c.TopicTime = r.Float("topic_time")
	})
}

func handleChannelMode(e *Engine, r *protocol.Record) {
	e.stores.Channels.Update(r.BID, func(c *store.Channel) {
		c.Mode = r.Str("newmode")
	})
}

func handleChannelTimestamp(e *Engine, r *protocol.Record) {
	e.stores.Channels.Update(r.BID, func(c *store.Channel) {
		c.Timestamp = r.Float("timestamp")
	})
}

func handleBadChannelKey(e *Engine, r *protocol.Record) {
	e.stores.Channels.Update(r.BID, func(c *store.Channel) {
		c.Key = true
	})
}

func handleJoin(e *Engine, r *protocol.Record) {
	e.stores.Users.Put(store.User{
		CID:      r.CID,
		BID:      r.BID,
		Nick:     r.Str("nick"),
		Hostmask: r.Str("hostmask"),
	})
}

func handlePart(e *Engine, r *protocol.Record) {
	if r.Tag == "you_parted_channel" {
		e.stores.Users.RemoveBuffer(r.BID)
		return
	}
	e.stores.Users.Remove(r.BID, r.Str("nick"))
}

func handleQuit(e *Engine, r *protocol.Record) {
	e.stores.Users.Remove(r.BID, r.Str("nick"))
}

func handleNickChange(e *Engine, r *protocol.Record) {
	e.stores.Users.Rename(r.BID, r.Str("oldnick"), r.Str("newnick"))
	if r.Tag == "you_nickchange" {
		e.stores.Servers.Update(r.CID, func(s *store.Server) {
			s.Nick = r.Str("newnick")
		})
	}
}

func handleKick(e *Engine, r *protocol.Record) {
	if r.Tag == "you_kicked_channel" {
		e.stores.Users.RemoveBuffer(r.BID)
		return
	}
	e.stores.Users.Remove(r.BID, r.Str("nick"))
}

func handleMemberUpdates(e *Engine, r *protocol.Record) {
	var updates map[string]struct {
		Away     bool   `json:"away"`
		Usermask string `json:"usermask"`
	}
	if err := r.Unmarshal("updates", &updates); err != nil {
		e.logger.Warn("bad member_updates record", "err", err)
		return
	}
	for nick, u := range updates {
		upd := u
		e.stores.Users.Update(r.BID, nick, func(usr *store.User) {
			usr.Away = upd.Away
			if upd.Usermask != "" {
				usr.Hostmask = upd.Usermask
			}
		})
	}
}

func handleUserChannelMode(e *Engine, r *protocol.Record) {
	e.stores.Users.Update(r.BID, r.Str("nick"), func(u *store.User) {
		u.Mode = r.Str("newmode")
	})
}

func handleAway(e *Engine, r *protocol.Record) {
	if r.Tag == "self_away" {
		e.stores.Servers.Update(r.CID, func(s *store.Server) {
			s.Away = r.Str("away_msg")
		})
		return
	}
	e.stores.Users.Update(r.BID, r.Str("nick"), func(u *store.User) {
		u.Away = true
		u.AwayMsg = r.Str("msg")
	})
}

func handleSelfBack(e *Engine, r *protocol.Record) {
	e.stores.Servers.Update(r.CID, func(s *store.Server) {
		s.Away = ""
	})
}

func handleUserInfo(e *Engine, r *protocol.Record) {
	if raw, ok := r.Data["prefs"]; ok {
		e.prefs = append([]byte(nil), raw...)
	}
}

func handleGlobalMsg(e *Engine, r *protocol.Record) {
	e.globalMsg = r.Str("msg")
}
