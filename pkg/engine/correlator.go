package engine

import (
	"sync/atomic"

	"github.com/lantern-irc/lantern/pkg/protocol"
)

// Result is the outcome of one command.
type Result struct {
	ReqID int64

	// Err is nil on success. Failures carry an *internal/errors.Error
	// with a classification.
	Err error

	// Record is the success or failure record, when one arrived.
	Record *protocol.Record
}

// Request is the caller's handle on an in-flight command.
type Request struct {
	reqID int64
	ch    chan Result
}

// ReqID returns the command's correlation id.
func (r *Request) ReqID() int64 { return r.reqID }

// Done delivers the result exactly once.
func (r *Request) Done() <-chan Result { return r.ch }

// correlator matches success and failure records back to the commands
// that triggered them. Request ids are never reused within a session.
// Except for id allocation, it is confined to the engine loop.
type correlator struct {
	nextID  atomic.Int64
	pending map[int64]*Request
}

func newCorrelator() *correlator {
	return &correlator{pending: make(map[int64]*Request)}
}

// next allocates a fresh request id. Safe from any goroutine.
func (c *correlator) next() int64 {
	return c.nextID.Add(1)
}

// advance moves the id allocator past n, for snapshot restore.
func (c *correlator) advance(n int64) {
	for {
		cur := c.nextID.Load()
		if cur >= n || c.nextID.CompareAndSwap(cur, n) {
			return
		}
	}
}

func newRequest(reqID int64) *Request {
	// Buffered so resolve never blocks the loop on a caller that
	// stopped listening.
	return &Request{reqID: reqID, ch: make(chan Result, 1)}
}

func (c *correlator) track(req *Request) {
	c.pending[req.reqID] = req
}

// resolve delivers the result for reqID. Returns false when the id is
// unknown or already resolved; a result is delivered at most once.
func (c *correlator) resolve(reqID int64, res Result) bool {
	req, ok := c.pending[reqID]
	if !ok {
		return false
	}
	delete(c.pending, reqID)
	req.ch <- res
	return true
}

// failAll resolves every pending request with err. Called on
// connection loss.
func (c *correlator) failAll(err error) {
	for id, req := range c.pending {
		delete(c.pending, id)
		req.ch <- Result{ReqID: id, Err: err}
	}
}

func (c *correlator) len() int {
	return len(c.pending)
}
