// Package ledger guards re-entrant event handling. Store change streams
// redeliver the full current snapshot on every resubscription, and the
// SMS webhook is at-least-once, so any side effect keyed off "I saw a
// message shaped like X" must be claimed exactly once. The ledger is the
// fast path for that claim; durable state (profile.confirmedAt, the
// message row itself) remains the source of truth.
package ledger

import (
	"context"
	"sync"
)

// Ledger records idempotency claims. MarkSeen is an atomic check-and-set:
// it returns true only for the single caller that claimed the key first.
type Ledger interface {
	Seen(ctx context.Context, key string) (bool, error)
	MarkSeen(ctx context.Context, key string) (bool, error)
	// Forget releases a claim so a failed side effect can be retried.
	Forget(ctx context.Context, key string) error
}

// ProfileKey guards the one-time gallery emission for a profile confirmation.
func ProfileKey(profileID string) string { return "profile:" + profileID }

// MessageKey guards exactly-once processing of a provider message ID.
func MessageKey(messageID string) string { return "message:" + messageID }

// InMemory is a mutex-guarded set. Suitable for a single process; the
// combined has-seen/mark-seen runs under one lock so concurrent claims
// for the same key admit exactly one winner.
type InMemory struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{seen: make(map[string]struct{})}
}

func (l *InMemory) Seen(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[key]
	return ok, nil
}

func (l *InMemory) MarkSeen(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[key]; ok {
		return false, nil
	}
	l.seen[key] = struct{}{}
	return true, nil
}

func (l *InMemory) Forget(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, key)
	return nil
}
