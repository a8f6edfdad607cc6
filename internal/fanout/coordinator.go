// Package fanout bridges store mutations to the in-process event bus.
// It performs no deduplication and no business logic: ownership of "what
// a change means" stays with the reconciler and services, ownership of
// "what changed" stays here.
package fanout

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/events"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/store"
)

// Coordinator republishes store changes as typed events. Mutating code
// calls the typed publish methods after each successful write; consumers
// subscribe through Bus().
type Coordinator struct {
	store store.Store
	bus   *events.Bus
	log   zerolog.Logger
}

func New(st store.Store, bus *events.Bus, log zerolog.Logger) *Coordinator {
	return &Coordinator{store: st, bus: bus, log: log}
}

// Bus exposes the underlying bus for subscribers.
func (c *Coordinator) Bus() *events.Bus { return c.bus }

func (c *Coordinator) ProfileUpdated(p *model.Profile) {
	c.bus.Publish(events.Event{Kind: events.KindProfileUpdated, UserID: p.UserID, EntityID: p.ProfileID, ProfileID: p.ProfileID})
}

func (c *Coordinator) TaskUpdated(t *model.Task) {
	c.bus.Publish(events.Event{Kind: events.KindTaskUpdated, UserID: t.UserID, EntityID: t.TaskID, ProfileID: t.ProfileID})
}

func (c *Coordinator) SMSResponseReceived(m *model.Message) {
	c.bus.Publish(events.Event{Kind: events.KindSMSResponseReceived, UserID: m.UserID, EntityID: m.MessageID, ProfileID: m.ProfileID})
}

func (c *Coordinator) GalleryEventUpdated(e *model.GalleryEvent) {
	c.bus.Publish(events.Event{Kind: events.KindGalleryEventUpdated, UserID: e.UserID, EntityID: e.EventID, ProfileID: e.ProfileID})
}

// Resync republishes the full current snapshot for a user, in the order
// profiles, tasks, messages, gallery events. This reproduces the
// behavior of the underlying store's change streams, which deliver the
// entire current result set on every (re)subscription - consumers and
// the reconciler's ledger are built to tolerate exactly this.
func (c *Coordinator) Resync(ctx context.Context, userID string) error {
	profiles, err := c.store.Profiles().List(ctx, userID)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		c.ProfileUpdated(p)
	}

	tasks, err := c.store.Tasks().List(ctx, userID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		c.TaskUpdated(t)
	}

	for _, p := range profiles {
		msgs, err := c.store.Messages().ListByProfile(ctx, userID, p.ProfileID, 0)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			c.SMSResponseReceived(m)
		}
	}

	evts, err := c.store.GalleryEvents().List(ctx, userID, 0)
	if err != nil {
		return err
	}
	for _, e := range evts {
		c.GalleryEventUpdated(e)
	}

	c.log.Debug().
		Str("user_id", userID).
		Int("profiles", len(profiles)).
		Int("tasks", len(tasks)).
		Int("gallery_events", len(evts)).
		Msg("resync snapshot republished")
	return nil
}
