package engine

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lantern-irc/lantern/pkg/protocol"
	"github.com/lantern-irc/lantern/pkg/state"
)

// engineSnapshot is the persisted session: entity stores, stream
// resume token, the request id watermark, and the out-of-band queue.
type engineSnapshot struct {
	StreamID  string            `json:"stream_id"`
	NextReqID int64             `json:"next_reqid"`
	Selected  int               `json:"selected_bid"`
	Stores    json.RawMessage   `json:"stores"`
	Queue     []json.RawMessage `json:"queue,omitempty"`
	SavedAt   time.Time         `json:"saved_at"`
}

// saveSnapshot persists the session. Called on disconnect and
// shutdown; a failed save is logged, never fatal.
func (e *Engine) saveSnapshot() {
	if e.cfg.Persist == nil {
		return
	}
	stores, err := e.stores.Snapshot()
	if err != nil {
		e.logger.Error("snapshot failed", "err", err)
		return
	}
	snap := engineSnapshot{
		StreamID:  e.streamID,
		NextReqID: e.corr.nextID.Load(),
		Selected:  e.selected,
		Stores:    stores,
		SavedAt:   time.Now(),
	}
	for _, cmd := range e.oob.commands() {
		data, err := cmd.Encode()
		if err != nil {
			continue
		}
		snap.Queue = append(snap.Queue, data)
	}
	data, err := json.Marshal(&snap)
	if err != nil {
		e.logger.Error("snapshot encode failed", "err", err)
		return
	}
	if err := e.cfg.Persist.Save(e.cfg.PersistKey, data); err != nil {
		e.logger.Error("snapshot save failed", "err", err)
		return
	}
	e.logger.Debug("session saved", "bytes", len(data), "queued", len(snap.Queue))
}

// restoreSnapshot loads a persisted session before the loop starts.
func (e *Engine) restoreSnapshot() {
	if e.cfg.Persist == nil {
		return
	}
	data, err := e.cfg.Persist.Load(e.cfg.PersistKey)
	if errors.Is(err, state.ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Error("snapshot load failed", "err", err)
		return
	}
	var snap engineSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		e.logger.Error("snapshot decode failed", "err", err)
		return
	}
	if err := e.stores.Restore(snap.Stores); err != nil {
		e.logger.Error("store restore failed", "err", err)
		return
	}
	e.streamID = snap.StreamID
	e.selected = snap.Selected
	e.corr.advance(snap.NextReqID)
	for _, raw := range snap.Queue {
		cmd, err := protocol.DecodeCommand(raw)
		if err != nil {
			e.logger.Warn("dropping unreadable queued command", "err", err)
			continue
		}
		e.oob.push(cmd, newRequest(cmd.ReqID))
	}
	e.met.oobDepth.Set(float64(e.oob.len()))
	e.logger.Info("session restored",
		"saved_at", snap.SavedAt,
		"stream_id", snap.StreamID,
		"queued", e.oob.len())
}

// clearSnapshot deletes the persisted session. Called on logout.
func (e *Engine) clearSnapshot() {
	if e.cfg.Persist == nil {
		return
	}
	if err := e.cfg.Persist.Delete(e.cfg.PersistKey); err != nil {
		e.logger.Error("snapshot delete failed", "err", err)
	}
}
