// Package memory provides an in-process store used by tests and by dev
// mode when no Postgres DSN is configured. Semantics match the Postgres
// adapter, including cascade deletes and upsert-tolerant counters.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/store"
)

type memStore struct {
	mu       sync.RWMutex
	users    map[string]*model.User
	profiles map[string]*model.Profile      // keyed by profileID (E.164)
	tasks    map[string]*model.Task         // keyed by taskID
	messages map[string]*model.Message      // keyed by messageID
	gallery  map[string]*model.GalleryEvent // keyed by eventID
}

// New returns an empty in-memory store.
func New() store.Store {
	return &memStore{
		users:    make(map[string]*model.User),
		profiles: make(map[string]*model.Profile),
		tasks:    make(map[string]*model.Task),
		messages: make(map[string]*model.Message),
		gallery:  make(map[string]*model.GalleryEvent),
	}
}

func (s *memStore) Users() store.Users                 { return (*users)(s) }
func (s *memStore) Profiles() store.Profiles           { return (*profiles)(s) }
func (s *memStore) Tasks() store.Tasks                 { return (*tasks)(s) }
func (s *memStore) Messages() store.Messages           { return (*messages)(s) }
func (s *memStore) GalleryEvents() store.GalleryEvents { return (*gallery)(s) }

// HealthPing satisfies the health checker; the in-memory store is always up.
func (s *memStore) HealthPing(ctx context.Context) error { return nil }

// --- Users ---

type users memStore

func (u *users) Get(_ context.Context, userID string) (*model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	m, ok := u.users[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (u *users) Upsert(_ context.Context, m *model.User) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := *m
	if existing, ok := u.users[m.UserID]; ok {
		out.ProfileCount = existing.ProfileCount
		out.TaskCount = existing.TaskCount
		out.CreationTime = existing.CreationTime
	} else if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	u.users[m.UserID] = &out
	cp := out
	return &cp, nil
}

func (u *users) AdjustCounts(_ context.Context, userID string, profileDelta, taskDelta int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	m, ok := u.users[userID]
	if !ok {
		// Upsert semantics: a missing parent row never fails the bump.
		m = &model.User{UserID: userID, CreationTime: time.Now().UTC()}
		u.users[userID] = m
	}
	m.ProfileCount = clampZero(m.ProfileCount + profileDelta)
	m.TaskCount = clampZero(m.TaskCount + taskDelta)
	return nil
}

func (u *users) Delete(_ context.Context, userID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[userID]; !ok {
		return model.ErrNotFound
	}
	delete(u.users, userID)
	return nil
}

// --- Profiles ---

type profiles memStore

func (p *profiles) Get(_ context.Context, userID, profileID string) (*model.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.profiles[profileID]
	if !ok || m.UserID != userID {
		return nil, model.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (p *profiles) GetByPhone(_ context.Context, phone string) (*model.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, m := range p.profiles {
		if m.PhoneNumber == phone {
			out := *m
			return &out, nil
		}
	}
	return nil, model.ErrNotFound
}

func (p *profiles) Upsert(_ context.Context, m *model.Profile) (*model.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := *m
	if existing, ok := p.profiles[m.ProfileID]; ok {
		out.CreationTime = existing.CreationTime
	} else if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	p.profiles[m.ProfileID] = &out
	cp := out
	return &cp, nil
}

func (p *profiles) List(_ context.Context, userID string) ([]*model.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*model.Profile
	for _, m := range p.profiles {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreationTime.Before(out[j].CreationTime) })
	return out, nil
}

func (p *profiles) Delete(_ context.Context, userID, profileID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.profiles[profileID]
	if !ok || m.UserID != userID {
		return model.ErrNotFound
	}
	delete(p.profiles, profileID)
	for id, t := range p.tasks {
		if t.ProfileID == profileID {
			delete(p.tasks, id)
		}
	}
	for id, msg := range p.messages {
		if msg.ProfileID == profileID {
			delete(p.messages, id)
		}
	}
	for id, ev := range p.gallery {
		if ev.ProfileID == profileID {
			delete(p.gallery, id)
		}
	}
	return nil
}

// --- Tasks ---

type tasks memStore

func (t *tasks) Get(_ context.Context, userID, taskID string) (*model.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.tasks[taskID]
	if !ok || m.UserID != userID {
		return nil, model.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (t *tasks) Upsert(_ context.Context, m *model.Task) (*model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := *m
	if existing, ok := t.tasks[m.TaskID]; ok {
		out.CreationTime = existing.CreationTime
	} else if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	t.tasks[m.TaskID] = &out
	cp := out
	return &cp, nil
}

func (t *tasks) List(_ context.Context, userID string) ([]*model.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*model.Task
	for _, m := range t.tasks {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreationTime.Before(out[j].CreationTime) })
	return out, nil
}

func (t *tasks) ListByProfile(_ context.Context, profileID string) ([]*model.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*model.Task
	for _, m := range t.tasks {
		if m.ProfileID == profileID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreationTime.Before(out[j].CreationTime) })
	return out, nil
}

func (t *tasks) ListDue(_ context.Context, now time.Time, limit int) ([]*model.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*model.Task
	for _, m := range t.tasks {
		if m.Status != model.TaskActive || m.NextScheduledAt.After(now) {
			continue
		}
		// Already dispatched for this occurrence: waiting on a reply.
		if m.LastDispatchedAt != nil && !m.LastDispatchedAt.Before(m.NextScheduledAt) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextScheduledAt.Before(out[j].NextScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *tasks) ListDeadlineElapsed(_ context.Context, cutoff time.Time, limit int) ([]*model.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*model.Task
	for _, m := range t.tasks {
		if m.Status != model.TaskActive || m.LastDispatchedAt == nil {
			continue
		}
		if m.LastDispatchedAt.After(cutoff) {
			continue
		}
		if m.LastCompletedAt != nil && !m.LastCompletedAt.Before(*m.LastDispatchedAt) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastDispatchedAt.Before(*out[j].LastDispatchedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *tasks) Delete(_ context.Context, userID, taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.tasks[taskID]
	if !ok || m.UserID != userID {
		return model.ErrNotFound
	}
	delete(t.tasks, taskID)
	return nil
}

// --- Messages ---

type messages memStore

func (ms *messages) Create(_ context.Context, m *model.Message) (*model.Message, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.messages[m.MessageID]; ok {
		return nil, model.ErrConflict
	}
	out := *m
	if out.ReceivedAt.IsZero() {
		out.ReceivedAt = time.Now().UTC()
	}
	ms.messages[m.MessageID] = &out
	cp := out
	return &cp, nil
}

func (ms *messages) Get(_ context.Context, userID, messageID string) (*model.Message, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	m, ok := ms.messages[messageID]
	if !ok || m.UserID != userID {
		return nil, model.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (ms *messages) ListByProfile(_ context.Context, userID, profileID string, limit int) ([]*model.Message, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	var out []*model.Message
	for _, m := range ms.messages {
		if m.UserID == userID && m.ProfileID == profileID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Gallery events ---

type gallery memStore

func (g *gallery) Create(_ context.Context, e *model.GalleryEvent) (*model.GalleryEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.gallery[e.EventID]; ok {
		return nil, model.ErrConflict
	}
	out := *e
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	g.gallery[e.EventID] = &out
	cp := out
	return &cp, nil
}

func (g *gallery) List(_ context.Context, userID string, limit int) ([]*model.GalleryEvent, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*model.GalleryEvent
	for _, e := range g.gallery {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreationTime.After(out[j].CreationTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
