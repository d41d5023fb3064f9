package engine

import (
	"errors"
	"testing"

	"github.com/lantern-irc/lantern/pkg/protocol"
)

func TestCorrelatorResolveOnce(t *testing.T) {
	c := newCorrelator()
	req := newRequest(c.next())
	c.track(req)

	if !c.resolve(req.reqID, Result{ReqID: req.reqID}) {
		t.Fatal("resolve returned false for tracked request")
	}
	if c.resolve(req.reqID, Result{ReqID: req.reqID}) {
		t.Error("second resolve succeeded")
	}
	if res := <-req.Done(); res.ReqID != req.reqID {
		t.Errorf("result reqid = %d", res.ReqID)
	}
	if c.len() != 0 {
		t.Errorf("pending = %d", c.len())
	}
}

func TestCorrelatorFailAll(t *testing.T) {
	c := newCorrelator()
	boom := errors.New("boom")
	var reqs []*Request
	for i := 0; i < 3; i++ {
		req := newRequest(c.next())
		c.track(req)
		reqs = append(reqs, req)
	}
	c.failAll(boom)
	for _, req := range reqs {
		if res := <-req.Done(); !errors.Is(res.Err, boom) {
			t.Errorf("reqid %d err = %v", req.reqID, res.Err)
		}
	}
}

func TestCorrelatorAdvance(t *testing.T) {
	c := newCorrelator()
	c.next()
	c.advance(100)
	if id := c.next(); id != 101 {
		t.Errorf("next after advance = %d", id)
	}
	// Advancing backwards is a no-op.
	c.advance(5)
	if id := c.next(); id != 102 {
		t.Errorf("next after stale advance = %d", id)
	}
}

func TestOOBQueueOrderAndClear(t *testing.T) {
	q := &oobQueue{}
	var reqs []*Request
	for i, method := range []string{protocol.MethodJoin, protocol.MethodSay} {
		req := newRequest(int64(i + 1))
		reqs = append(reqs, req)
		q.push(protocol.NewCommand(method, nil), req)
	}
	if q.len() != 2 {
		t.Fatalf("len = %d", q.len())
	}

	entries := q.drain()
	if len(entries) != 2 || entries[0].cmd.Method != protocol.MethodJoin || entries[1].cmd.Method != protocol.MethodSay {
		t.Errorf("drain order broken: %v", entries)
	}
	if q.len() != 0 {
		t.Errorf("len after drain = %d", q.len())
	}

	boom := errors.New("boom")
	req := newRequest(3)
	q.push(protocol.NewCommand(protocol.MethodPart, nil), req)
	q.clear(boom)
	if res := <-req.Done(); !errors.Is(res.Err, boom) {
		t.Errorf("cleared request err = %v", res.Err)
	}
	if q.len() != 0 {
		t.Errorf("len after clear = %d", q.len())
	}
}
