package store

import "sync"

// Channel is the channel-specific state attached to a channel buffer:
// topic, mode, and key requirement. Membership lives in Users.
type Channel struct {
	CID        int     `json:"cid"`
	BID        int     `json:"bid"`
	Name       string  `json:"name"`
	Topic      string  `json:"topic"`
	TopicBy    string  `json:"topic_author"`
	TopicTime  float64 `json:"topic_time"`
	Mode       string  `json:"mode"`
	Key        bool    `json:"key"`
	Timestamp  float64 `json:"timestamp"`
	URL        string  `json:"url"`
}

// Channels is the channel store, keyed by bid (each channel occupies
// exactly one buffer).
type Channels struct {
	mu       sync.RWMutex
	channels map[int]*Channel
}

// NewChannels creates an empty channel store.
func NewChannels() *Channels {
	return &Channels{channels: make(map[int]*Channel)}
}

// Put inserts or replaces a channel.
func (c *Channels) Put(ch Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := ch
	c.channels[ch.BID] = &cp
}

// Get returns a copy of the channel occupying the given buffer.
func (c *Channels) Get(bid int) (Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.channels[bid]
	if !ok {
		return Channel{}, false
	}
	return *ch, true
}

// Update applies fn to the channel occupying the given buffer.
func (c *Channels) Update(bid int, fn func(*Channel)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[bid]
	if !ok {
		return false
	}
	fn(ch)
	return true
}

// Delete removes the channel occupying the given buffer.
func (c *Channels) Delete(bid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, bid)
}

// DeleteConnection removes every channel on the given connection.
func (c *Channels) DeleteConnection(cid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for bid, ch := range c.channels {
		if ch.CID == cid {
			delete(c.channels, bid)
		}
	}
}

// Len returns the number of channels.
func (c *Channels) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.channels)
}

func (c *Channels) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = make(map[int]*Channel)
}

func (c *Channels) snapshot() []Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		out = append(out, *ch)
	}
	return out
}

func (c *Channels) restore(channels []Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = make(map[int]*Channel, len(channels))
	for i := range channels {
		cp := channels[i]
		c.channels[cp.BID] = &cp
	}
}
