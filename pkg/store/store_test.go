package store

import (
	"testing"
)

func TestEventsOrderingAndDuplicates(t *testing.T) {
	ev := NewEvents()

	// Out-of-order insert still yields eid order.
	for _, eid := range []float64{30, 10, 20} {
		if !ev.Add(Event{EID: eid, BID: 1, CID: 1, Msg: "m"}) {
			t.Fatalf("Add(eid=%v) reported duplicate", eid)
		}
	}

	got := ev.Range(1, 0, 0)
	if len(got) != 3 {
		t.Fatalf("Range() returned %d events, want 3", len(got))
	}
	for i, want := range []float64{10, 20, 30} {
		if got[i].EID != want {
			t.Errorf("event[%d].EID = %v, want %v", i, got[i].EID, want)
		}
	}

	// Same eid replaces in place and reports duplicate.
	if ev.Add(Event{EID: 20, BID: 1, CID: 1, Msg: "edited"}) {
		t.Error("Add(duplicate eid) reported fresh")
	}
	if ev.Count(1) != 3 {
		t.Errorf("Count() = %d after duplicate, want 3", ev.Count(1))
	}
	e, ok := ev.Get(1, 20)
	if !ok || e.Msg != "edited" {
		t.Errorf("Get(1, 20) = %+v, want edited payload", e)
	}
}

func TestEventsRangeBounds(t *testing.T) {
	ev := NewEvents()
	for eid := 1; eid <= 5; eid++ {
		ev.Add(Event{EID: float64(eid * 10), BID: 7, CID: 1})
	}

	got := ev.Range(7, 10, 40)
	if len(got) != 3 {
		t.Fatalf("Range(7, 10, 40) returned %d events, want 3", len(got))
	}
	if got[0].EID != 20 || got[2].EID != 40 {
		t.Errorf("Range bounds = [%v, %v], want (10, 40]", got[0].EID, got[2].EID)
	}
}

func TestEventRenderedCache(t *testing.T) {
	ev := NewEvents()
	ev.Add(Event{EID: 1, BID: 1, From: "alice", FromMode: "@", Msg: "hello"})

	e, _ := ev.Get(1, 1)
	if got := e.Rendered(); got != "<@alice> hello" {
		t.Errorf("Rendered() = %q", got)
	}

	// Edit at the same eid invalidates the cache.
	ev.Add(Event{EID: 1, BID: 1, From: "alice", FromMode: "@", Msg: "bye"})
	e, _ = ev.Get(1, 1)
	if got := e.Rendered(); got != "<@alice> bye" {
		t.Errorf("Rendered() after edit = %q", got)
	}
}

func TestBuffersCursorAndActivity(t *testing.T) {
	b := NewBuffers()
	b.Put(Buffer{BID: 1, CID: 1, Name: "#go", Type: BufferChannel, LastSeenEID: 100})

	if b.Advance(1, 90) {
		t.Error("Advance(90) applied an event at or below the cursor")
	}
	if !b.Advance(1, 110) || !b.Advance(1, 120) {
		t.Error("Advance did not apply fresh events")
	}
	b.RecordActivity(1, false)
	b.RecordActivity(1, true)

	buf, _ := b.Get(1)
	if buf.LastSeenEID != 120 {
		t.Errorf("LastSeenEID = %v, want 120", buf.LastSeenEID)
	}
	if buf.Unread != 2 || buf.Highlights != 1 {
		t.Errorf("unread/highlights = %d/%d, want 2/1", buf.Unread, buf.Highlights)
	}

	b.MarkRead(1, 120)
	buf, _ = b.Get(1)
	if buf.LastSeenEID != 120 || buf.Unread != 0 || buf.Highlights != 0 {
		t.Errorf("after MarkRead: %+v", buf)
	}

	// The cursor never moves backwards, and a stale ack changes nothing.
	b.RecordActivity(1, false)
	b.MarkRead(1, 50)
	buf, _ = b.Get(1)
	if buf.LastSeenEID != 120 || buf.Unread != 1 {
		t.Errorf("after stale MarkRead: %+v", buf)
	}
}

func TestUsersRename(t *testing.T) {
	u := NewUsers()
	u.Put(User{CID: 1, BID: 2, Nick: "Alice", Mode: "o"})

	if !u.Rename(2, "alice", "alyx") {
		t.Fatal("Rename() = false")
	}
	if _, ok := u.Get(2, "Alice"); ok {
		t.Error("old nick still present after rename")
	}
	usr, ok := u.Get(2, "ALYX")
	if !ok || usr.Mode != "o" {
		t.Errorf("Get(ALYX) = %+v, %v", usr, ok)
	}
}

func TestDeleteConnectionCascades(t *testing.T) {
	s := New()
	s.Servers.Put(Server{CID: 1, Hostname: "irc.a"})
	s.Servers.Put(Server{CID: 2, Hostname: "irc.b"})
	s.Buffers.Put(Buffer{BID: 10, CID: 1, Name: "#a", Type: BufferChannel})
	s.Buffers.Put(Buffer{BID: 20, CID: 2, Name: "#b", Type: BufferChannel})
	s.Channels.Put(Channel{CID: 1, BID: 10, Name: "#a"})
	s.Users.Put(User{CID: 1, BID: 10, Nick: "alice"})
	s.Events.Add(Event{EID: 1, CID: 1, BID: 10})

	s.DeleteConnection(1)

	if _, ok := s.Servers.Get(1); ok {
		t.Error("server 1 survived")
	}
	if _, ok := s.Buffers.Get(10); ok {
		t.Error("buffer 10 survived")
	}
	if _, ok := s.Channels.Get(10); ok {
		t.Error("channel survived")
	}
	if got := s.Users.ByBuffer(10); len(got) != 0 {
		t.Errorf("users survived: %v", got)
	}
	if s.Events.Count(10) != 0 {
		t.Error("events survived")
	}

	// The other connection is untouched.
	if _, ok := s.Buffers.Get(20); !ok {
		t.Error("buffer 20 was cascaded away")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := New()
	s.Servers.Put(Server{CID: 1, Hostname: "irc.example.net", Port: 6697, SSL: true, Nick: "me"})
	s.Buffers.Put(Buffer{BID: 5, CID: 1, Name: "#go", Type: BufferChannel, LastSeenEID: 99, Unread: 3})
	s.Channels.Put(Channel{CID: 1, BID: 5, Name: "#go", Topic: "tips"})
	s.Users.Put(User{CID: 1, BID: 5, Nick: "alice", Mode: "v"})
	s.Events.Add(Event{EID: 100, CID: 1, BID: 5, From: "alice", Msg: "hi"})

	data, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	restored := New()
	if err := restored.Restore(data); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	srv, ok := restored.Servers.Get(1)
	if !ok || srv.Hostname != "irc.example.net" || !srv.SSL {
		t.Errorf("restored server = %+v, %v", srv, ok)
	}
	buf, ok := restored.Buffers.Get(5)
	if !ok || buf.LastSeenEID != 99 || buf.Unread != 3 {
		t.Errorf("restored buffer = %+v, %v", buf, ok)
	}
	ch, ok := restored.Channels.Get(5)
	if !ok || ch.Topic != "tips" {
		t.Errorf("restored channel = %+v, %v", ch, ok)
	}
	usr, ok := restored.Users.Get(5, "alice")
	if !ok || usr.Mode != "v" {
		t.Errorf("restored user = %+v, %v", usr, ok)
	}
	e, ok := restored.Events.Get(5, 100)
	if !ok || e.Msg != "hi" {
		t.Errorf("restored event = %+v, %v", e, ok)
	}
}

func TestServersReorder(t *testing.T) {
	s := NewServers()
	s.Put(Server{CID: 1})
	s.Put(Server{CID: 2})
	s.Put(Server{CID: 3})

	s.Reorder([]int{3, 1, 2})

	all := s.All()
	want := []int{3, 1, 2}
	for i, srv := range all {
		if srv.CID != want[i] {
			t.Errorf("All()[%d].CID = %d, want %d", i, srv.CID, want[i])
		}
	}
}
