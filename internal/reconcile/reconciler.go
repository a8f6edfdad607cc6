// Package reconcile turns inbound SMS events into domain state
// transitions. For each event exactly one of four transitions applies:
// profile confirmation, confirmation replay (no-op), task completion, or
// unattributed/negative audit record. Every guard here exists because
// delivery is at-least-once end to end: the webhook may replay, and the
// store's change streams redeliver full snapshots on resubscription.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/classify"
	"github.com/carebridge/carebridge/internal/fanout"
	"github.com/carebridge/carebridge/internal/identity"
	"github.com/carebridge/carebridge/internal/ledger"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/schedule"
	"github.com/carebridge/carebridge/internal/store"
)

// DefaultResponseDeadline bounds how long after dispatch a reply still
// attributes to that reminder occurrence.
const DefaultResponseDeadline = 10 * time.Minute

// Inbound is one physical webhook delivery from the SMS provider.
type Inbound struct {
	From        string
	Body        string
	MediaURL    string
	ProviderSID string
	ReceivedAt  time.Time // zero means "now"
}

// Transition names the state change an inbound event produced.
type Transition string

const (
	TransitionProfileConfirmed    Transition = "profile_confirmed"
	TransitionConfirmationReplay  Transition = "confirmation_replay"
	TransitionTaskCompleted       Transition = "task_completed"
	TransitionUnattributed        Transition = "unattributed"
	TransitionDuplicateSuppressed Transition = "duplicate_suppressed"
)

// Outcome reports what a Process call did. Every path returns one, so
// no-ops and suppressed duplicates are observable rather than silent.
type Outcome struct {
	Transition   Transition
	Profile      *model.Profile
	Task         *model.Task
	Message      *model.Message
	GalleryEvent *model.GalleryEvent

	// UnknownSender marks an unattributed event whose number resolves to
	// no profile. Nothing is stored for these: there is no owning user
	// to record the message under.
	UnknownSender bool
}

// Reconciler consumes inbound SMS events against current entity state.
type Reconciler struct {
	store    store.Store
	ledger   ledger.Ledger
	fanout   *fanout.Coordinator
	clock    func() time.Time
	deadline time.Duration
	log      zerolog.Logger
}

func New(st store.Store, led ledger.Ledger, fo *fanout.Coordinator, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:    st,
		ledger:   led,
		fanout:   fo,
		clock:    func() time.Time { return time.Now().UTC() },
		deadline: DefaultResponseDeadline,
		log:      log,
	}
}

// SetResponseDeadline overrides the default attribution window for
// tasks that carry no per-task deadline.
func (r *Reconciler) SetResponseDeadline(d time.Duration) {
	if d > 0 {
		r.deadline = d
	}
}

// Process applies exactly one transition for the inbound event. It does
// not retry: transient store failures surface to the caller (the webhook
// transport), whose redelivery re-enters here safely.
func (r *Reconciler) Process(ctx context.Context, in Inbound) (*Outcome, error) {
	phone, err := identity.ProfileID(in.From)
	if err != nil {
		return nil, fmt.Errorf("%w: unresolvable sender %q", model.ErrMalformedInboundEvent, in.From)
	}

	// Fast path for replayed physical deliveries: the provider message
	// SID was already claimed by a previous pass in this process.
	if in.ProviderSID != "" {
		seen, err := r.ledger.Seen(ctx, ledger.MessageKey(in.ProviderSID))
		if err != nil {
			return nil, err
		}
		if seen {
			r.log.Debug().Str("sid", in.ProviderSID).Msg("duplicate suppressed: provider sid already processed")
			return &Outcome{Transition: TransitionDuplicateSuppressed}, nil
		}
	}

	profile, err := r.store.Profiles().GetByPhone(ctx, phone)
	if errors.Is(err, model.ErrNotFound) {
		r.log.Warn().Str("phone", phone).Msg("inbound sms from unknown number")
		return &Outcome{Transition: TransitionUnattributed, UnknownSender: true}, nil
	}
	if err != nil {
		return nil, err
	}

	res := classify.Classify(in.Body)
	now := in.ReceivedAt
	if now.IsZero() {
		now = r.clock()
	}

	if profile.Status == model.ProfilePendingConfirmation {
		return r.reconcileConfirmation(ctx, profile, res, in, now)
	}

	task, err := r.attributableTask(ctx, profile, now)
	if err != nil {
		return nil, err
	}
	if task != nil && res.Sentiment != classify.Negative {
		return r.completeTask(ctx, profile, task, res, in, now)
	}

	// A bare positive reply to an already-confirmed profile is a
	// confirmation replay: no mutation, no gallery event, no error.
	if task == nil && profile.Status == model.ProfileConfirmed && res.Sentiment == classify.Positive {
		return &Outcome{Transition: TransitionConfirmationReplay, Profile: profile}, nil
	}

	return r.recordUnattributed(ctx, profile, task, res, in, now)
}

// reconcileConfirmation handles T1/T2 for a profile awaiting its opt-in
// reply. Non-positive replies fall through to an audit record.
func (r *Reconciler) reconcileConfirmation(ctx context.Context, profile *model.Profile, res classify.Result, in Inbound, now time.Time) (*Outcome, error) {
	if res.Sentiment != classify.Positive {
		return r.recordUnattributed(ctx, profile, nil, res, in, now)
	}

	// Atomic claim: of any concurrent confirmation-shaped replies for
	// this profile, exactly one proceeds past this line.
	key := ledger.ProfileKey(profile.ProfileID)
	won, err := r.ledger.MarkSeen(ctx, key)
	if err != nil {
		return nil, err
	}
	if !won {
		r.log.Debug().Str("profile_id", profile.ProfileID).Msg("duplicate suppressed: confirmation already claimed")
		return &Outcome{Transition: TransitionDuplicateSuppressed, Profile: profile}, nil
	}

	// Writes are ordered so the profile upsert, the re-entry gate, comes
	// last. A failure anywhere releases the claim and surfaces to the
	// transport; its redelivery finds the profile still pending, re-enters
	// here, and the deterministic IDs collapse the partial rows.
	msgID := identity.MessageID(in.ProviderSID)
	gallery, err := r.storeGalleryEvent(ctx, &model.GalleryEvent{
		EventID:      "profile-confirmed:" + profile.ProfileID,
		UserID:       profile.UserID,
		ProfileID:    profile.ProfileID,
		EventType:    model.GalleryProfileCreated,
		MessageID:    &msgID,
		CreationTime: now,
	})
	if err != nil {
		_ = r.ledger.Forget(ctx, key)
		return nil, err
	}

	msg, err := r.storeMessage(ctx, &model.Message{
		MessageID:      msgID,
		UserID:         profile.UserID,
		ProfileID:      profile.ProfileID,
		Body:           in.Body,
		PhotoURL:       optional(in.MediaURL),
		IsConfirmation: true,
		IsPositive:     true,
		Score:          res.Confidence,
		ReceivedAt:     now,
	})
	if err != nil {
		_ = r.ledger.Forget(ctx, key)
		return nil, err
	}

	profile.Status = model.ProfileConfirmed
	profile.ConfirmedAt = &now
	updated, err := r.store.Profiles().Upsert(ctx, profile)
	if err != nil {
		_ = r.ledger.Forget(ctx, key)
		return nil, err
	}

	r.fanout.ProfileUpdated(updated)
	if msg != nil {
		r.fanout.SMSResponseReceived(msg)
	}
	if gallery != nil {
		r.fanout.GalleryEventUpdated(gallery)
	}

	r.log.Info().
		Str("profile_id", profile.ProfileID).
		Str("user_id", profile.UserID).
		Msg("profile confirmed")
	return &Outcome{Transition: TransitionProfileConfirmed, Profile: updated, Message: msg, GalleryEvent: gallery}, nil
}

// completeTask handles T3. The completion is idempotent per provider
// message SID: the same physical webhook delivery can never increment
// completionCount twice, in-process (ledger) or across restarts (the
// stored message row).
func (r *Reconciler) completeTask(ctx context.Context, profile *model.Profile, task *model.Task, res classify.Result, in Inbound, now time.Time) (*Outcome, error) {
	msgID := identity.MessageID(in.ProviderSID)
	key := ledger.MessageKey(msgID)

	if in.ProviderSID != "" {
		won, err := r.ledger.MarkSeen(ctx, key)
		if err != nil {
			return nil, err
		}
		if !won {
			return &Outcome{Transition: TransitionDuplicateSuppressed, Task: task}, nil
		}
		// Durable guard: a fresh process has an empty ledger, but the
		// message row survives restarts. A row received before the
		// current dispatch means the SID was consumed by an earlier
		// occurrence; a row at or after it is a partial write whose
		// delivery is being resumed, so the transition proceeds and the
		// creates below collapse onto the existing rows.
		existing, err := r.store.Messages().Get(ctx, task.UserID, msgID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			_ = r.ledger.Forget(ctx, key)
			return nil, err
		}
		if existing != nil && existing.ReceivedAt.Before(*task.LastDispatchedAt) {
			r.log.Debug().Str("sid", in.ProviderSID).Msg("duplicate suppressed: message already recorded")
			return &Outcome{Transition: TransitionDuplicateSuppressed, Task: task}, nil
		}
	}

	// The task upsert is the mutation that must happen exactly once, so
	// it goes last: any earlier failure releases the claim and the
	// transport's redelivery re-enters with the task still attributable.
	msg, err := r.storeMessage(ctx, &model.Message{
		MessageID:   msgID,
		UserID:      task.UserID,
		ProfileID:   profile.ProfileID,
		TaskID:      &task.TaskID,
		Body:        in.Body,
		PhotoURL:    optional(in.MediaURL),
		IsPositive:  res.Sentiment == classify.Positive,
		IsCompleted: true,
		Score:       res.Confidence,
		ReceivedAt:  now,
	})
	if err != nil {
		_ = r.ledger.Forget(ctx, key)
		return nil, err
	}

	gallery, err := r.storeGalleryEvent(ctx, &model.GalleryEvent{
		EventID:      "task-response:" + msgID,
		UserID:       task.UserID,
		ProfileID:    profile.ProfileID,
		EventType:    model.GalleryTaskResponse,
		TaskID:       &task.TaskID,
		MessageID:    &msgID,
		PhotoURL:     optional(in.MediaURL),
		CreationTime: now,
	})
	if err != nil {
		_ = r.ledger.Forget(ctx, key)
		return nil, err
	}

	task.LastCompletedAt = &now
	task.CompletionCount++
	task.NextScheduledAt = schedule.Next(task.Schedule, now)
	task.Overdue = false
	task.LastDispatchedAt = nil
	updated, err := r.store.Tasks().Upsert(ctx, task)
	if err != nil {
		_ = r.ledger.Forget(ctx, key)
		return nil, err
	}

	r.fanout.TaskUpdated(updated)
	if msg != nil {
		r.fanout.SMSResponseReceived(msg)
	}
	if gallery != nil {
		r.fanout.GalleryEventUpdated(gallery)
	}

	r.log.Info().
		Str("task_id", task.TaskID).
		Str("profile_id", profile.ProfileID).
		Int("completion_count", updated.CompletionCount).
		Time("next_scheduled_at", updated.NextScheduledAt).
		Msg("task completed")
	return &Outcome{Transition: TransitionTaskCompleted, Task: updated, Message: msg, GalleryEvent: gallery}, nil
}

// recordUnattributed handles T4: the reply matched nothing actionable or
// was explicitly negative. The message is kept for audit; no entity
// mutation, no gallery event.
func (r *Reconciler) recordUnattributed(ctx context.Context, profile *model.Profile, task *model.Task, res classify.Result, in Inbound, now time.Time) (*Outcome, error) {
	msgID := identity.MessageID(in.ProviderSID)
	key := ledger.MessageKey(msgID)
	if in.ProviderSID != "" {
		won, err := r.ledger.MarkSeen(ctx, key)
		if err != nil {
			return nil, err
		}
		if !won {
			return &Outcome{Transition: TransitionDuplicateSuppressed}, nil
		}
	}

	msg, err := r.storeMessage(ctx, &model.Message{
		MessageID:      msgID,
		UserID:         profile.UserID,
		ProfileID:      profile.ProfileID,
		TaskID:         taskIDRef(task),
		Body:           in.Body,
		PhotoURL:       optional(in.MediaURL),
		IsConfirmation: profile.Status == model.ProfilePendingConfirmation,
		IsPositive:     res.Sentiment == classify.Positive,
		IsCompleted:    false,
		Score:          res.Confidence,
		ReceivedAt:     now,
	})
	if err != nil {
		if in.ProviderSID != "" {
			_ = r.ledger.Forget(ctx, key)
		}
		return nil, err
	}
	if msg == nil {
		// The row survived a previous delivery; nothing new to record.
		return &Outcome{Transition: TransitionDuplicateSuppressed, Profile: profile}, nil
	}
	r.fanout.SMSResponseReceived(msg)

	r.log.Info().
		Str("profile_id", profile.ProfileID).
		Str("sentiment", string(res.Sentiment)).
		Msg("inbound sms recorded without state change")
	return &Outcome{Transition: TransitionUnattributed, Profile: profile, Message: msg}, nil
}

// attributableTask finds the task a reply most plausibly answers: active,
// dispatched within its response window, and not yet completed for that
// dispatch. Most recent dispatch wins when several qualify.
func (r *Reconciler) attributableTask(ctx context.Context, profile *model.Profile, now time.Time) (*model.Task, error) {
	tasks, err := r.store.Tasks().ListByProfile(ctx, profile.ProfileID)
	if err != nil {
		return nil, err
	}
	var best *model.Task
	for _, t := range tasks {
		if t.Status != model.TaskActive || t.LastDispatchedAt == nil {
			continue
		}
		if t.LastCompletedAt != nil && !t.LastCompletedAt.Before(*t.LastDispatchedAt) {
			continue
		}
		window := r.deadline
		if t.DeadlineMinutes > 0 {
			window = time.Duration(t.DeadlineMinutes) * time.Minute
		}
		if now.Sub(*t.LastDispatchedAt) > window {
			continue
		}
		if best == nil || t.LastDispatchedAt.After(*best.LastDispatchedAt) {
			best = t
		}
	}
	return best, nil
}

// storeMessage persists an inbound message. A conflicting ID means the
// row survived an earlier delivery and is returned as (nil, nil); any
// other failure aborts the transition so the transport retries it.
func (r *Reconciler) storeMessage(ctx context.Context, m *model.Message) (*model.Message, error) {
	out, err := r.store.Messages().Create(ctx, m)
	if errors.Is(err, model.ErrConflict) {
		r.log.Debug().Str("message_id", m.MessageID).Msg("duplicate suppressed: message row exists")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store message %s: %w", m.MessageID, err)
	}
	return out, nil
}

func (r *Reconciler) storeGalleryEvent(ctx context.Context, e *model.GalleryEvent) (*model.GalleryEvent, error) {
	out, err := r.store.GalleryEvents().Create(ctx, e)
	if errors.Is(err, model.ErrConflict) {
		r.log.Debug().Str("event_id", e.EventID).Msg("duplicate suppressed: gallery event exists")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store gallery event %s: %w", e.EventID, err)
	}
	return out, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func taskIDRef(t *model.Task) *string {
	if t == nil {
		return nil
	}
	return &t.TaskID
}
