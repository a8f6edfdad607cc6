package events

import (
	"testing"
	"time"
)

func TestBus_DeliversInPublishOrder(t *testing.T) {
	b := NewBus(16)
	ch, cancel := b.Subscribe()
	defer cancel()

	for _, id := range []string{"a", "b", "c"} {
		b.Publish(Event{Kind: KindTaskUpdated, UserID: "u1", EntityID: id})
	}
	for _, want := range []string{"a", "b", "c"} {
		select {
		case evt := <-ch:
			if evt.EntityID != want {
				t.Fatalf("got %q, want %q", evt.EntityID, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	b := NewBus(4)
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	b.Publish(Event{Kind: KindProfileUpdated, UserID: "u1", EntityID: "+15551234567"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Kind != KindProfileUpdated {
				t.Fatalf("kind = %v", evt.Kind)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_SlowSubscriberDropsNotBlocks(t *testing.T) {
	b := NewBus(1)
	_, cancel := b.Subscribe()
	defer cancel()

	b.Publish(Event{Kind: KindTaskUpdated, EntityID: "1"})
	b.Publish(Event{Kind: KindTaskUpdated, EntityID: "2"}) // buffer full
	if b.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", b.Dropped())
	}
}

func TestBus_CancelStopsDelivery(t *testing.T) {
	b := NewBus(4)
	ch, cancel := b.Subscribe()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	// Publishing after cancel must not panic.
	b.Publish(Event{Kind: KindTaskUpdated, EntityID: "x"})
}
