package store

import (
	"context"
	"time"

	"github.com/carebridge/carebridge/internal/model"
)

// Store exposes persistence operations required by services and the
// reconciler. Implementations live under internal/store/<driver>/.
type Store interface {
	Users() Users
	Profiles() Profiles
	Tasks() Tasks
	Messages() Messages
	GalleryEvents() GalleryEvents
}

type Users interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	Upsert(ctx context.Context, u *model.User) (*model.User, error)
	// AdjustCounts bumps the denormalized profile/task counters with
	// upsert semantics: a missing user row is created, never an error.
	AdjustCounts(ctx context.Context, userID string, profileDelta, taskDelta int) error
	Delete(ctx context.Context, userID string) error
}

type Profiles interface {
	Get(ctx context.Context, userID, profileID string) (*model.Profile, error)
	// GetByPhone resolves a profile from an E.164 number regardless of
	// owner; this is the webhook's only way to attribute a sender.
	GetByPhone(ctx context.Context, phone string) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error)
	List(ctx context.Context, userID string) ([]*model.Profile, error)
	// Delete cascades to the profile's tasks, messages and gallery events.
	Delete(ctx context.Context, userID, profileID string) error
}

type Tasks interface {
	Get(ctx context.Context, userID, taskID string) (*model.Task, error)
	Upsert(ctx context.Context, t *model.Task) (*model.Task, error)
	List(ctx context.Context, userID string) ([]*model.Task, error)
	ListByProfile(ctx context.Context, profileID string) ([]*model.Task, error)
	// ListDue returns active tasks whose next occurrence has arrived and
	// which have not yet been dispatched for that occurrence.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error)
	// ListDeadlineElapsed returns active tasks dispatched at or before
	// the cutoff with no completion reconciled since dispatch.
	ListDeadlineElapsed(ctx context.Context, cutoff time.Time, limit int) ([]*model.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
}

type Messages interface {
	// Create is create-only; messages are immutable once written. An
	// existing ID yields model.ErrConflict, which the reconciler treats
	// as a suppressed duplicate.
	Create(ctx context.Context, m *model.Message) (*model.Message, error)
	// Get is scoped to the owning user; the reconciler uses it as the
	// durable cross-restart duplicate guard.
	Get(ctx context.Context, userID, messageID string) (*model.Message, error)
	ListByProfile(ctx context.Context, userID, profileID string, limit int) ([]*model.Message, error)
}

type GalleryEvents interface {
	Create(ctx context.Context, e *model.GalleryEvent) (*model.GalleryEvent, error)
	List(ctx context.Context, userID string, limit int) ([]*model.GalleryEvent, error)
}
