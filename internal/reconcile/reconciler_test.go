package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carebridge/internal/events"
	"github.com/carebridge/carebridge/internal/fanout"
	"github.com/carebridge/carebridge/internal/ledger"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/store"
	"github.com/carebridge/carebridge/internal/store/memory"
)

var testNow = time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC)

type rig struct {
	store store.Store
	led   *ledger.InMemory
	rec   *Reconciler
}

func newRig(t *testing.T) *rig {
	t.Helper()
	st := memory.New()
	led := ledger.NewInMemory()
	fo := fanout.New(st, events.NewBus(256), zerolog.Nop())
	rec := New(st, led, fo, zerolog.Nop())
	rec.clock = func() time.Time { return testNow }
	return &rig{store: st, led: led, rec: rec}
}

func (r *rig) seedPendingProfile(t *testing.T, phone string) *model.Profile {
	t.Helper()
	p, err := r.store.Profiles().Upsert(context.Background(), &model.Profile{
		ProfileID:   phone,
		UserID:      "caregiver-1",
		Name:        "Grandma Rose",
		PhoneNumber: phone,
		Status:      model.ProfilePendingConfirmation,
	})
	require.NoError(t, err)
	return p
}

func (r *rig) seedConfirmedProfile(t *testing.T, phone string) *model.Profile {
	t.Helper()
	confirmed := testNow.Add(-24 * time.Hour)
	p, err := r.store.Profiles().Upsert(context.Background(), &model.Profile{
		ProfileID:   phone,
		UserID:      "caregiver-1",
		Name:        "Grandma Rose",
		PhoneNumber: phone,
		Status:      model.ProfileConfirmed,
		ConfirmedAt: &confirmed,
	})
	require.NoError(t, err)
	return p
}

func (r *rig) seedDispatchedTask(t *testing.T, profileID string, dispatchedAgo time.Duration) *model.Task {
	t.Helper()
	dispatched := testNow.Add(-dispatchedAgo)
	task, err := r.store.Tasks().Upsert(context.Background(), &model.Task{
		TaskID:           "task-1",
		UserID:           "caregiver-1",
		ProfileID:        profileID,
		Title:            "Morning pills",
		Schedule:         model.Schedule{Hour: 9},
		Status:           model.TaskActive,
		NextScheduledAt:  time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		LastDispatchedAt: &dispatched,
	})
	require.NoError(t, err)
	return task
}

func (r *rig) galleryCount(t *testing.T) int {
	t.Helper()
	lst, err := r.store.GalleryEvents().List(context.Background(), "caregiver-1", 0)
	require.NoError(t, err)
	return len(lst)
}

func TestT1_ConfirmationExactlyOnce(t *testing.T) {
	r := newRig(t)
	r.seedPendingProfile(t, "+15551230001")
	in := Inbound{From: "+1 (555) 123-0001", Body: "YES!!", ProviderSID: "SM100"}

	out, err := r.rec.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, TransitionProfileConfirmed, out.Transition)
	require.NotNil(t, out.Profile)
	assert.Equal(t, model.ProfileConfirmed, out.Profile.Status)
	require.NotNil(t, out.Profile.ConfirmedAt)

	// Webhook replay of the identical delivery.
	out2, err := r.rec.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, TransitionDuplicateSuppressed, out2.Transition)

	assert.Equal(t, 1, r.galleryCount(t))
	got, err := r.store.Profiles().Get(context.Background(), "caregiver-1", "+15551230001")
	require.NoError(t, err)
	assert.Equal(t, model.ProfileConfirmed, got.Status)
}

func TestT2_ConfirmedProfileReplayIsNoOp(t *testing.T) {
	r := newRig(t)
	r.seedConfirmedProfile(t, "+15551230002")

	out, err := r.rec.Process(context.Background(), Inbound{From: "+15551230002", Body: "yes", ProviderSID: "SM200"})
	require.NoError(t, err)
	assert.Equal(t, TransitionConfirmationReplay, out.Transition)

	assert.Equal(t, 0, r.galleryCount(t))
	msgs, err := r.store.Messages().ListByProfile(context.Background(), "caregiver-1", "+15551230002", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs, "confirmation replay must not write anything")
}

func TestT3_CompletionExactlyOncePerSID(t *testing.T) {
	r := newRig(t)
	r.seedConfirmedProfile(t, "+15551230003")
	r.seedDispatchedTask(t, "+15551230003", 5*time.Minute)
	in := Inbound{From: "+15551230003", Body: "done", ProviderSID: "SM300"}

	out, err := r.rec.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, TransitionTaskCompleted, out.Transition)
	require.NotNil(t, out.Task)
	assert.Equal(t, 1, out.Task.CompletionCount)
	assert.False(t, out.Task.Overdue)

	// At-least-once delivery: same SID again.
	out2, err := r.rec.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, TransitionDuplicateSuppressed, out2.Transition)

	got, err := r.store.Tasks().Get(context.Background(), "caregiver-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletionCount, "replay must not double-increment")
	assert.Equal(t, 1, r.galleryCount(t))
}

func TestT3_RecurrenceAdvancesToNextDay(t *testing.T) {
	r := newRig(t)
	r.seedConfirmedProfile(t, "+15551230004")
	r.seedDispatchedTask(t, "+15551230004", 5*time.Minute)

	out, err := r.rec.Process(context.Background(), Inbound{From: "+15551230004", Body: "took it", ProviderSID: "SM400"})
	require.NoError(t, err)
	require.Equal(t, TransitionTaskCompleted, out.Transition)

	want := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	assert.True(t, out.Task.NextScheduledAt.Equal(want), "nextScheduledAt = %v, want %v", out.Task.NextScheduledAt, want)
	assert.True(t, out.Task.NextScheduledAt.After(testNow), "nextScheduledAt must never stay in the past")
}

func TestT3_PhotoWithNeutralTextCompletes(t *testing.T) {
	r := newRig(t)
	r.seedConfirmedProfile(t, "+15551230005")
	r.seedDispatchedTask(t, "+15551230005", 2*time.Minute)

	out, err := r.rec.Process(context.Background(), Inbound{
		From:        "+15551230005",
		Body:        "here you go",
		MediaURL:    "https://api.twilio.com/media/ME123",
		ProviderSID: "SM500",
	})
	require.NoError(t, err)
	assert.Equal(t, TransitionTaskCompleted, out.Transition)
	require.NotNil(t, out.Message)
	require.NotNil(t, out.Message.PhotoURL)
	require.NotNil(t, out.GalleryEvent)
	assert.Equal(t, model.GalleryTaskResponse, out.GalleryEvent.EventType)
}

func TestT4_NegativeReplyIsAuditOnly(t *testing.T) {
	r := newRig(t)
	r.seedConfirmedProfile(t, "+15551230006")
	r.seedDispatchedTask(t, "+15551230006", 3*time.Minute)

	out, err := r.rec.Process(context.Background(), Inbound{From: "+15551230006", Body: "no, I forgot", ProviderSID: "SM600"})
	require.NoError(t, err)
	assert.Equal(t, TransitionUnattributed, out.Transition)
	require.NotNil(t, out.Message)
	assert.False(t, out.Message.IsCompleted)

	got, err := r.store.Tasks().Get(context.Background(), "caregiver-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.CompletionCount)
	assert.Equal(t, 0, r.galleryCount(t))
}

func TestT4_ReplyAfterDeadlineDoesNotComplete(t *testing.T) {
	r := newRig(t)
	r.seedConfirmedProfile(t, "+15551230007")
	r.seedDispatchedTask(t, "+15551230007", 30*time.Minute)

	out, err := r.rec.Process(context.Background(), Inbound{From: "+15551230007", Body: "yes", ProviderSID: "SM700"})
	require.NoError(t, err)
	// Positive but outside the response window: reads as a confirmation
	// replay, not a completion.
	assert.Equal(t, TransitionConfirmationReplay, out.Transition)

	got, err := r.store.Tasks().Get(context.Background(), "caregiver-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.CompletionCount)
}

func TestColdStartReplay_NoNewGalleryEvents(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	// 20 already-confirmed profiles, each with its historical
	// confirmation message persisted.
	var inbounds []Inbound
	for i := 0; i < 20; i++ {
		phone := fmt.Sprintf("+1555200%04d", i)
		r.seedConfirmedProfile(t, phone)
		sid := fmt.Sprintf("SM-hist-%d", i)
		_, err := r.store.Messages().Create(ctx, &model.Message{
			MessageID: sid, UserID: "caregiver-1", ProfileID: phone,
			Body: "yes", IsConfirmation: true, IsPositive: true,
			ReceivedAt: testNow.Add(-48 * time.Hour),
		})
		require.NoError(t, err)
		inbounds = append(inbounds, Inbound{From: phone, Body: "yes", ProviderSID: sid})
	}

	// Fresh process: empty ledger, full snapshot replayed once.
	for _, in := range inbounds {
		_, err := r.rec.Process(ctx, in)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, r.galleryCount(t))
}

func TestConcurrentDoubleSend_SingleConfirmation(t *testing.T) {
	r := newRig(t)
	r.seedPendingProfile(t, "+15551230008")

	var wg sync.WaitGroup
	outcomes := make([]Transition, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := r.rec.Process(context.Background(), Inbound{
				From: "+15551230008", Body: "yes",
				ProviderSID: fmt.Sprintf("SM-race-%d", i),
			})
			if err == nil {
				outcomes[i] = out.Transition
			}
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for _, tr := range outcomes {
		if tr == TransitionProfileConfirmed {
			confirmed++
		}
	}
	assert.Equal(t, 1, confirmed, "exactly one goroutine should win the confirmation")
	assert.Equal(t, 1, r.galleryCount(t))

	got, err := r.store.Profiles().Get(context.Background(), "caregiver-1", "+15551230008")
	require.NoError(t, err)
	assert.Equal(t, model.ProfileConfirmed, got.Status)
}

func TestMalformedSender(t *testing.T) {
	r := newRig(t)
	_, err := r.rec.Process(context.Background(), Inbound{From: "abc", Body: "yes"})
	assert.True(t, errors.Is(err, model.ErrMalformedInboundEvent), "got %v", err)
}

func TestUnknownSender(t *testing.T) {
	r := newRig(t)
	out, err := r.rec.Process(context.Background(), Inbound{From: "+15559990000", Body: "yes"})
	require.NoError(t, err)
	assert.Equal(t, TransitionUnattributed, out.Transition)
	assert.True(t, out.UnknownSender)
	assert.Nil(t, out.Message, "nothing is stored for an unknown number")
}

var errStoreDown = errors.New("store unavailable")

// flakyStore fails a configured number of writes before delegating to
// the wrapped store, mimicking a transient backend outage.
type flakyStore struct {
	store.Store
	failGallery int
	failMessage int
	failTask    int
}

func (f *flakyStore) GalleryEvents() store.GalleryEvents {
	return &flakyGallery{GalleryEvents: f.Store.GalleryEvents(), f: f}
}

func (f *flakyStore) Messages() store.Messages {
	return &flakyMessages{Messages: f.Store.Messages(), f: f}
}

func (f *flakyStore) Tasks() store.Tasks {
	return &flakyTasks{Tasks: f.Store.Tasks(), f: f}
}

type flakyGallery struct {
	store.GalleryEvents
	f *flakyStore
}

func (g *flakyGallery) Create(ctx context.Context, e *model.GalleryEvent) (*model.GalleryEvent, error) {
	if g.f.failGallery > 0 {
		g.f.failGallery--
		return nil, errStoreDown
	}
	return g.GalleryEvents.Create(ctx, e)
}

type flakyMessages struct {
	store.Messages
	f *flakyStore
}

func (m *flakyMessages) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if m.f.failMessage > 0 {
		m.f.failMessage--
		return nil, errStoreDown
	}
	return m.Messages.Create(ctx, msg)
}

type flakyTasks struct {
	store.Tasks
	f *flakyStore
}

func (ts *flakyTasks) Upsert(ctx context.Context, task *model.Task) (*model.Task, error) {
	if ts.f.failTask > 0 {
		ts.f.failTask--
		return nil, errStoreDown
	}
	return ts.Tasks.Upsert(ctx, task)
}

func newFlakyRig(t *testing.T, fs *flakyStore) *rig {
	t.Helper()
	st := memory.New()
	fs.Store = st
	led := ledger.NewInMemory()
	fo := fanout.New(st, events.NewBus(256), zerolog.Nop())
	rec := New(fs, led, fo, zerolog.Nop())
	rec.clock = func() time.Time { return testNow }
	return &rig{store: st, led: led, rec: rec}
}

func TestT1_GalleryWriteFailureSurfacesAndRedeliveryConfirms(t *testing.T) {
	r := newFlakyRig(t, &flakyStore{failGallery: 1})
	r.seedPendingProfile(t, "+15551230010")
	in := Inbound{From: "+15551230010", Body: "yes", ProviderSID: "SM1000"}

	_, err := r.rec.Process(context.Background(), in)
	require.ErrorIs(t, err, errStoreDown, "the transport must see the failure so it redelivers")

	// Nothing applied: the profile stays pending, no gallery event.
	got, err := r.store.Profiles().Get(context.Background(), "caregiver-1", "+15551230010")
	require.NoError(t, err)
	assert.Equal(t, model.ProfilePendingConfirmation, got.Status)
	assert.Equal(t, 0, r.galleryCount(t))

	// Redelivery of the same physical message completes the transition.
	out, err := r.rec.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, TransitionProfileConfirmed, out.Transition)
	require.NotNil(t, out.GalleryEvent)
	assert.Equal(t, 1, r.galleryCount(t))

	got, err = r.store.Profiles().Get(context.Background(), "caregiver-1", "+15551230010")
	require.NoError(t, err)
	assert.Equal(t, model.ProfileConfirmed, got.Status)
}

func TestT1_MessageWriteFailureSurfacesAndRedeliveryConfirms(t *testing.T) {
	r := newFlakyRig(t, &flakyStore{failMessage: 1})
	r.seedPendingProfile(t, "+15551230011")
	in := Inbound{From: "+15551230011", Body: "yes", ProviderSID: "SM1100"}

	_, err := r.rec.Process(context.Background(), in)
	require.ErrorIs(t, err, errStoreDown)

	out, err := r.rec.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, TransitionProfileConfirmed, out.Transition)
	assert.Equal(t, 1, r.galleryCount(t))

	msgs, err := r.store.Messages().ListByProfile(context.Background(), "caregiver-1", "+15551230011", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestT3_TaskWriteFailureSurfacesAndRedeliveryCompletesOnce(t *testing.T) {
	r := newFlakyRig(t, &flakyStore{failTask: 1})
	r.seedConfirmedProfile(t, "+15551230012")
	r.seedDispatchedTask(t, "+15551230012", 5*time.Minute)
	in := Inbound{From: "+15551230012", Body: "done", ProviderSID: "SM1200"}

	_, err := r.rec.Process(context.Background(), in)
	require.ErrorIs(t, err, errStoreDown)

	got, err := r.store.Tasks().Get(context.Background(), "caregiver-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.CompletionCount)
	require.NotNil(t, got.LastDispatchedAt, "a failed completion leaves the dispatch open")

	// Redelivery resumes past the rows the first attempt already wrote.
	out, err := r.rec.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, TransitionTaskCompleted, out.Transition)
	assert.Equal(t, 1, out.Task.CompletionCount)

	msgs, err := r.store.Messages().ListByProfile(context.Background(), "caregiver-1", "+15551230012", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "the partial message row must be reused, not duplicated")
	assert.Equal(t, 1, r.galleryCount(t))
}

func TestT3_StaleSIDReplayAfterRedispatchDoesNotDoubleCount(t *testing.T) {
	r := newRig(t)
	r.seedConfirmedProfile(t, "+15551230013")
	r.seedDispatchedTask(t, "+15551230013", 5*time.Minute)
	in := Inbound{From: "+15551230013", Body: "done", ProviderSID: "SM1300"}

	out, err := r.rec.Process(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, TransitionTaskCompleted, out.Transition)

	// Next occurrence goes out, then the provider replays the old SID
	// into a restarted process with an empty ledger.
	task, err := r.store.Tasks().Get(context.Background(), "caregiver-1", "task-1")
	require.NoError(t, err)
	redispatched := testNow.Add(time.Minute)
	task.LastDispatchedAt = &redispatched
	_, err = r.store.Tasks().Upsert(context.Background(), task)
	require.NoError(t, err)

	rec2 := New(r.store, ledger.NewInMemory(), fanout.New(r.store, events.NewBus(256), zerolog.Nop()), zerolog.Nop())
	rec2.clock = func() time.Time { return testNow.Add(2 * time.Minute) }

	out2, err := rec2.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, TransitionDuplicateSuppressed, out2.Transition)

	got, err := r.store.Tasks().Get(context.Background(), "caregiver-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletionCount, "a consumed SID must not complete a later dispatch")
}

func TestPendingProfile_NegativeReplyDoesNotConfirm(t *testing.T) {
	r := newRig(t)
	r.seedPendingProfile(t, "+15551230009")

	out, err := r.rec.Process(context.Background(), Inbound{From: "+15551230009", Body: "stop", ProviderSID: "SM900"})
	require.NoError(t, err)
	assert.Equal(t, TransitionUnattributed, out.Transition)

	got, err := r.store.Profiles().Get(context.Background(), "caregiver-1", "+15551230009")
	require.NoError(t, err)
	assert.Equal(t, model.ProfilePendingConfirmation, got.Status)
	assert.Equal(t, 0, r.galleryCount(t))
}
