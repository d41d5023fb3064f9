package engine

import (
	"sync"

	"github.com/lantern-irc/lantern/pkg/protocol"
)

// NotificationKind identifies what a Notification describes.
type NotificationKind int

const (
	// NoteConnectivity reports a state transition. State, FailCount,
	// and Err are set.
	NoteConnectivity NotificationKind = iota

	// NoteEvent reports an applied stream record. Record is set; BID
	// when buffer scoped.
	NoteEvent

	// NoteBacklogStarted reports the beginning of a catch-up pass.
	// Total is the number of buffers to fetch.
	NoteBacklogStarted

	// NoteBacklogProgress reports catch-up progress. Received counts
	// replayed events so far; Done counts completed buffers.
	NoteBacklogProgress

	// NoteBacklogFailed reports a failed fetch for one buffer, or a
	// pass aborted by connection loss when BID is zero.
	NoteBacklogFailed

	// NoteBacklogCompleted reports the end of a catch-up pass.
	NoteBacklogCompleted
)

// String returns the string representation of the kind.
func (k NotificationKind) String() string {
	switch k {
	case NoteConnectivity:
		return "Connectivity"
	case NoteEvent:
		return "Event"
	case NoteBacklogStarted:
		return "BacklogStarted"
	case NoteBacklogProgress:
		return "BacklogProgress"
	case NoteBacklogFailed:
		return "BacklogFailed"
	case NoteBacklogCompleted:
		return "BacklogCompleted"
	default:
		return "Unknown"
	}
}

// Notification is one update pushed to subscribers.
type Notification struct {
	Kind NotificationKind

	// Connectivity fields.
	State     State
	FailCount int
	Err       error

	// Event fields.
	Record *protocol.Record
	BID    int

	// Backlog fields. Expected is the server-announced event count for
	// the pass, zero when the header did not carry one.
	Total    int
	Done     int
	Received int
	Expected int
}

// Subscription is one subscriber's notification channel. Close it
// when done or the engine drops notifications for it once C fills.
type Subscription struct {
	// C delivers notifications in publish order.
	C <-chan Notification

	bus  *Bus
	ch   chan Notification
	once sync.Once
}

// Close detaches the subscription. C is closed after the last
// buffered notification is drained by the caller.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.ch)
	})
}

// Bus fans engine notifications out to subscribers. Publishing never
// blocks: a subscriber whose channel is full misses notifications and
// the drop is counted.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	depth  int
	onDrop func()
}

// NewBus creates a bus with the given per-subscriber channel depth.
func NewBus(depth int, onDrop func()) *Bus {
	if depth <= 0 {
		depth = 64
	}
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		depth:  depth,
		onDrop: onDrop,
	}
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	ch := make(chan Notification, b.depth)
	sub := &Subscription{C: ch, ch: ch, bus: b}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers n to every subscriber without blocking.
func (b *Bus) Publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- n:
		default:
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}
