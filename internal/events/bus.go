// Package events is the in-process pub-sub layer between the store-facing
// components and presentation consumers. It redistributes typed change
// events and nothing else: no deduplication, no business logic. Consumers
// must tolerate duplicates (the reconciler's ledger exists for exactly
// that reason).
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind represents the type of change event fanned out to subscribers.
type Kind string

const (
	KindProfileUpdated      Kind = "profile_updated"
	KindTaskUpdated         Kind = "task_updated"
	KindSMSResponseReceived Kind = "sms_response_received"
	KindGalleryEventUpdated Kind = "gallery_event_updated"
)

// Event carries only identifiers; consumers query the store for the full
// record. Timestamp is the publish instant, not the entity's own time.
type Event struct {
	Kind      Kind      `json:"kind"`
	UserID    string    `json:"userId"`
	EntityID  string    `json:"entityId"`
	ProfileID string    `json:"profileId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus fans events out to any number of subscribers, each on its own
// buffered channel. Publish never blocks: a subscriber that cannot keep
// up loses events (counted), which is acceptable because delivery is
// at-least-once overall and consumers can resync from the store.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	nextID  int
	buffer  int
	dropped atomic.Uint64
}

// NewBus creates a bus whose subscriber channels hold `buffer` events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe registers a consumer. The returned cancel func must be called
// exactly once; it closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers evt to every current subscriber without blocking.
// Delivery order per subscriber follows publish order; events dropped for
// a full subscriber are counted, never reordered.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many events were lost to full subscriber buffers.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }
