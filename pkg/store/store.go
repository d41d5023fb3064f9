package store

import (
	"encoding/json"
	"fmt"
)

// Store aggregates the entity stores behind one handle. The engine
// owns the single instance and is the only writer.
type Store struct {
	Servers  *Servers
	Buffers  *Buffers
	Channels *Channels
	Users    *Users
	Events   *Events
}

// New creates an empty store aggregate.
func New() *Store {
	return &Store{
		Servers:  NewServers(),
		Buffers:  NewBuffers(),
		Channels: NewChannels(),
		Users:    NewUsers(),
		Events:   NewEvents(),
	}
}

// DeleteBuffer removes a buffer and everything scoped to it.
func (s *Store) DeleteBuffer(bid int) {
	s.Buffers.Delete(bid)
	s.Channels.Delete(bid)
	s.Users.RemoveBuffer(bid)
	s.Events.DeleteBuffer(bid)
}

// DeleteConnection removes a connection and cascades to its buffers,
// channels, members, and history. Every bid belongs to exactly one
// cid, so nothing can be left dangling.
func (s *Store) DeleteConnection(cid int) {
	for _, buf := range s.Buffers.ByConnection(cid) {
		s.DeleteBuffer(buf.BID)
	}
	s.Channels.DeleteConnection(cid)
	s.Users.RemoveConnection(cid)
	s.Events.DeleteConnection(cid)
	s.Servers.Delete(cid)
}

// Reset clears every store. Called on logout.
func (s *Store) Reset() {
	s.Servers.reset()
	s.Buffers.reset()
	s.Channels.reset()
	s.Users.reset()
	s.Events.reset()
}

// snapshot is the serialized form of the aggregate. The schema is an
// implementation detail of this package; only Snapshot/Restore
// round-tripping is contractual.
type snapshot struct {
	Servers  []Server  `json:"servers"`
	Buffers  []Buffer  `json:"buffers"`
	Channels []Channel `json:"channels"`
	Users    []User    `json:"users"`
	Events   []Event   `json:"events"`
}

// Snapshot serializes the aggregate for persistence.
func (s *Store) Snapshot() ([]byte, error) {
	snap := snapshot{
		Servers:  s.Servers.snapshot(),
		Buffers:  s.Buffers.snapshot(),
		Channels: s.Channels.snapshot(),
		Users:    s.Users.snapshot(),
		Events:   s.Events.snapshot(),
	}
	data, err := json.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("store: snapshot: %w", err)
	}
	return data, nil
}

// Restore replaces the aggregate's contents with a prior snapshot.
func (s *Store) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("store: restore: %w", err)
	}
	s.Servers.restore(snap.Servers)
	s.Buffers.restore(snap.Buffers)
	s.Channels.restore(snap.Channels)
	s.Users.restore(snap.Users)
	s.Events.restore(snap.Events)
	return nil
}
