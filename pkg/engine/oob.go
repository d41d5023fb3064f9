package engine

import "github.com/lantern-irc/lantern/pkg/protocol"

// oobEntry is one queued command awaiting a connection.
type oobEntry struct {
	cmd *protocol.Command
	req *Request
}

// oobQueue holds commands issued while disconnected. On reconnect the
// queue replays in submission order before any new command is sent.
// Confined to the engine loop.
type oobQueue struct {
	entries []oobEntry
}

func (q *oobQueue) push(cmd *protocol.Command, req *Request) {
	q.entries = append(q.entries, oobEntry{cmd: cmd, req: req})
}

// drain removes and returns every queued entry in order.
func (q *oobQueue) drain() []oobEntry {
	out := q.entries
	q.entries = nil
	return out
}

// clear resolves every queued entry with err and empties the queue.
func (q *oobQueue) clear(err error) {
	for _, e := range q.entries {
		e.req.ch <- Result{ReqID: e.req.reqID, Err: err}
	}
	q.entries = nil
}

func (q *oobQueue) len() int {
	return len(q.entries)
}

// commands returns the queued commands for persistence.
func (q *oobQueue) commands() []*protocol.Command {
	out := make([]*protocol.Command, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.cmd
	}
	return out
}
