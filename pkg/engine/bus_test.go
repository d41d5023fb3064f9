package engine

import "testing"

func TestBusFanOut(t *testing.T) {
	bus := NewBus(4, nil)
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(Notification{Kind: NoteConnectivity, State: StateConnecting})
	for _, sub := range []*Subscription{a, b} {
		n := <-sub.C
		if n.Kind != NoteConnectivity || n.State != StateConnecting {
			t.Errorf("notification = %+v", n)
		}
	}
	a.Close()
	b.Close()
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	var drops int
	bus := NewBus(2, func() { drops++ })
	sub := bus.Subscribe()
	defer sub.Close()

	for i := 0; i < 5; i++ {
		bus.Publish(Notification{Kind: NoteEvent, BID: i})
	}
	if drops != 3 {
		t.Errorf("drops = %d, want 3", drops)
	}

	// Delivered notifications keep publish order.
	first := <-sub.C
	second := <-sub.C
	if first.BID != 0 || second.BID != 1 {
		t.Errorf("order = %d, %d", first.BID, second.BID)
	}
}

func TestBusCloseStopsDelivery(t *testing.T) {
	bus := NewBus(4, nil)
	sub := bus.Subscribe()
	sub.Close()
	sub.Close() // idempotent

	bus.Publish(Notification{Kind: NoteEvent})
	if _, ok := <-sub.C; ok {
		t.Error("closed subscription still receives")
	}
}
