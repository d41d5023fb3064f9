package store

import (
	"sort"
	"sync"
)

// Buffer types as reported by makebuffer records.
const (
	BufferChannel      = "channel"
	BufferConversation = "conversation"
	BufferConsole      = "console"
)

// Buffer is a single message stream: a channel, a private
// conversation, or a connection's console.
type Buffer struct {
	BID         int     `json:"bid"`
	CID         int     `json:"cid"`
	Name        string  `json:"name"`
	Type        string  `json:"buffer_type"`
	Archived    bool    `json:"archived"`
	Deferred    bool    `json:"deferred"`
	LastSeenEID float64 `json:"last_seen_eid"`
	Unread      int     `json:"unread"`
	Highlights  int     `json:"highlights"`
}

// Buffers is the buffer store, keyed by bid.
type Buffers struct {
	mu      sync.RWMutex
	buffers map[int]*Buffer
}

// NewBuffers creates an empty buffer store.
func NewBuffers() *Buffers {
	return &Buffers{buffers: make(map[int]*Buffer)}
}

// Put inserts or replaces a buffer.
func (b *Buffers) Put(buf Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := buf
	b.buffers[buf.BID] = &cp
}

// Get returns a copy of the buffer with the given bid.
func (b *Buffers) Get(bid int) (Buffer, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	buf, ok := b.buffers[bid]
	if !ok {
		return Buffer{}, false
	}
	return *buf, true
}

// Update applies fn to the buffer with the given bid, if present.
func (b *Buffers) Update(bid int, fn func(*Buffer)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[bid]
	if !ok {
		return false
	}
	fn(buf)
	return true
}

// Advance moves the buffer's last-seen eid forward and reports
// whether the event at eid should be applied. Events at or below the
// cursor are duplicates from backlog replay and must be dropped.
func (b *Buffers) Advance(bid int, eid float64) bool {
	applied := false
	b.Update(bid, func(buf *Buffer) {
		if eid <= buf.LastSeenEID {
			return
		}
		buf.LastSeenEID = eid
		applied = true
	})
	return applied
}

// RecordActivity bumps the unread counters. Called for live messages
// in buffers other than the selected one.
func (b *Buffers) RecordActivity(bid int, highlight bool) {
	b.Update(bid, func(buf *Buffer) {
		buf.Unread++
		if highlight {
			buf.Highlights++
		}
	})
}

// MarkRead acknowledges everything up to eid as read: the cursor
// advances if needed and the unread counters reset. Stale eids only
// clear counters when they cover the current cursor.
func (b *Buffers) MarkRead(bid int, eid float64) {
	b.Update(bid, func(buf *Buffer) {
		if eid >= buf.LastSeenEID {
			if eid > buf.LastSeenEID {
				buf.LastSeenEID = eid
			}
			buf.Unread = 0
			buf.Highlights = 0
		}
	})
}

// Delete removes a buffer.
func (b *Buffers) Delete(bid int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.buffers, bid)
}

// ByConnection returns copies of all buffers on the given connection,
// ordered by bid.
func (b *Buffers) ByConnection(cid int) []Buffer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Buffer
	for _, buf := range b.buffers {
		if buf.CID == cid {
			out = append(out, *buf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BID < out[j].BID })
	return out
}

// All returns copies of every buffer ordered by bid.
func (b *Buffers) All() []Buffer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Buffer, 0, len(b.buffers))
	for _, buf := range b.buffers {
		out = append(out, *buf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BID < out[j].BID })
	return out
}

// Len returns the number of buffers.
func (b *Buffers) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buffers)
}

func (b *Buffers) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffers = make(map[int]*Buffer)
}

func (b *Buffers) snapshot() []Buffer {
	return b.All()
}

func (b *Buffers) restore(buffers []Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffers = make(map[int]*Buffer, len(buffers))
	for i := range buffers {
		cp := buffers[i]
		b.buffers[cp.BID] = &cp
	}
}
