package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/events"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/store/memory"
)

func drain(t *testing.T, ch <-chan events.Event, n int) []events.Event {
	t.Helper()
	var out []events.Event
	for len(out) < n {
		select {
		case evt := <-ch:
			out = append(out, evt)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestResync_RepublishesFullSnapshot(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	bus := events.NewBus(64)
	c := New(st, bus, zerolog.Nop())

	phone := "+15551230001"
	if _, err := st.Profiles().Upsert(ctx, &model.Profile{ProfileID: phone, UserID: "u1", PhoneNumber: phone, Status: model.ProfileConfirmed}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Tasks().Upsert(ctx, &model.Task{TaskID: "t1", UserID: "u1", ProfileID: phone, Status: model.TaskActive, NextScheduledAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Messages().Create(ctx, &model.Message{MessageID: "SM1", UserID: "u1", ProfileID: phone, Body: "yes"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GalleryEvents().Create(ctx, &model.GalleryEvent{EventID: "g1", UserID: "u1", ProfileID: phone, EventType: model.GalleryProfileCreated}); err != nil {
		t.Fatal(err)
	}

	ch, cancel := bus.Subscribe()
	defer cancel()

	if err := c.Resync(ctx, "u1"); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	got := drain(t, ch, 4)
	wantKinds := []events.Kind{
		events.KindProfileUpdated,
		events.KindTaskUpdated,
		events.KindSMSResponseReceived,
		events.KindGalleryEventUpdated,
	}
	for i, k := range wantKinds {
		if got[i].Kind != k {
			t.Fatalf("event %d kind = %v, want %v", i, got[i].Kind, k)
		}
	}

	// A second resync delivers the same snapshot again - consumers must
	// tolerate replays, which is exactly why the reconciler keeps its
	// idempotency ledger.
	if err := c.Resync(ctx, "u1"); err != nil {
		t.Fatalf("second Resync: %v", err)
	}
	drain(t, ch, 4)
}

func TestCoordinator_ScopedToUser(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	bus := events.NewBus(8)
	c := New(st, bus, zerolog.Nop())

	if _, err := st.Profiles().Upsert(ctx, &model.Profile{ProfileID: "+15551239999", UserID: "other", PhoneNumber: "+15551239999", Status: model.ProfileConfirmed}); err != nil {
		t.Fatal(err)
	}

	ch, cancel := bus.Subscribe()
	defer cancel()
	if err := c.Resync(ctx, "u1"); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event for other user's data: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
