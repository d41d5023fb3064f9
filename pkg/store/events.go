package store

import (
	"fmt"
	"sort"
	"sync"
)

// Event is one message record in a buffer's history. Events are
// append-only; server-side edits and deletions arrive as later events
// that replace the payload at the same eid.
type Event struct {
	EID       float64 `json:"eid"`
	Tag       string  `json:"type"`
	CID       int     `json:"cid"`
	BID       int     `json:"bid"`
	From      string  `json:"from"`
	FromMode  string  `json:"from_mode"`
	Hostmask  string  `json:"hostmask"`
	Msg       string  `json:"msg"`
	Nick      string  `json:"nick"`
	Self      bool    `json:"self"`
	Highlight bool    `json:"highlight"`

	rendered string
}

// Rendered returns the display form of the event, computing and
// caching it on first use. The cache is dropped when the event is
// replaced by an edit at the same eid.
func (e *Event) Rendered() string {
	if e.rendered == "" {
		if e.From != "" {
			e.rendered = fmt.Sprintf("<%s%s> %s", e.FromMode, e.From, e.Msg)
		} else {
			e.rendered = e.Msg
		}
	}
	return e.rendered
}

// Events is the message history store: per-buffer slices kept in
// non-decreasing eid order.
type Events struct {
	mu     sync.RWMutex
	events map[int][]*Event
}

// NewEvents creates an empty history store.
func NewEvents() *Events {
	return &Events{events: make(map[int][]*Event)}
}

// Add inserts an event into its buffer's history, keeping eid order.
// An event whose eid is already present replaces the stored payload
// (an edit or delete marker) and reports false; fresh eids report
// true. Callers use the return to distinguish new activity from
// replayed backlog.
func (ev *Events) Add(e Event) bool {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	e.rendered = ""
	list := ev.events[e.BID]
	i := sort.Search(len(list), func(i int) bool { return list[i].EID >= e.EID })
	if i < len(list) && list[i].EID == e.EID {
		cp := e
		list[i] = &cp
		return false
	}

	cp := e
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = &cp
	ev.events[e.BID] = list
	return true
}

// Get returns a copy of the event with the given eid in a buffer.
func (ev *Events) Get(bid int, eid float64) (Event, bool) {
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	list := ev.events[bid]
	i := sort.Search(len(list), func(i int) bool { return list[i].EID >= eid })
	if i < len(list) && list[i].EID == eid {
		return *list[i], true
	}
	return Event{}, false
}

// Last returns a copy of the newest event in a buffer.
func (ev *Events) Last(bid int) (Event, bool) {
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	list := ev.events[bid]
	if len(list) == 0 {
		return Event{}, false
	}
	return *list[len(list)-1], true
}

// Range returns copies of the events in (since, before]. A zero
// before means no upper bound.
func (ev *Events) Range(bid int, since, before float64) []Event {
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	var out []Event
	for _, e := range ev.events[bid] {
		if e.EID <= since {
			continue
		}
		if before != 0 && e.EID > before {
			break
		}
		out = append(out, *e)
	}
	return out
}

// Count returns the number of events held for a buffer.
func (ev *Events) Count(bid int) int {
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	return len(ev.events[bid])
}

// DeleteBuffer drops a buffer's history.
func (ev *Events) DeleteBuffer(bid int) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	delete(ev.events, bid)
}

// DeleteConnection drops the history of every buffer on a connection.
func (ev *Events) DeleteConnection(cid int) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	for bid, list := range ev.events {
		if len(list) > 0 && list[0].CID == cid {
			delete(ev.events, bid)
		}
	}
}

func (ev *Events) reset() {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	ev.events = make(map[int][]*Event)
}

func (ev *Events) snapshot() []Event {
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	var out []Event
	for _, list := range ev.events {
		for _, e := range list {
			out = append(out, *e)
		}
	}
	return out
}

func (ev *Events) restore(events []Event) {
	ev.mu.Lock()
	ev.events = make(map[int][]*Event)
	ev.mu.Unlock()
	for _, e := range events {
		ev.Add(e)
	}
}
