package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carebridge/internal/events"
	"github.com/carebridge/carebridge/internal/fanout"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/store"
	"github.com/carebridge/carebridge/internal/store/memory"
)

func newRig(t *testing.T) (store.Store, *fanout.Coordinator) {
	t.Helper()
	st := memory.New()
	return st, fanout.New(st, events.NewBus(256), zerolog.Nop())
}

func TestCreateProfile_DerivesIDAndCounts(t *testing.T) {
	st, fo := newRig(t)
	svc := NewProfileService(st, fo, zerolog.Nop())
	ctx := context.Background()

	p, err := svc.CreateProfile(ctx, "user-1", "Grandma Rose", "(555) 123-4567", "grandmother")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", p.ProfileID)
	assert.Equal(t, model.ProfilePendingConfirmation, p.Status)

	u, err := st.Users().Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.ProfileCount)
}

func TestCreateProfile_SamePhoneConverges(t *testing.T) {
	st, fo := newRig(t)
	svc := NewProfileService(st, fo, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.CreateProfile(ctx, "user-1", "Rose", "555-123-4567", "grandmother")
	require.NoError(t, err)

	// Mark confirmed, then re-create with a differently formatted number.
	first.Status = model.ProfileConfirmed
	_, err = st.Profiles().Upsert(ctx, first)
	require.NoError(t, err)

	again, err := svc.CreateProfile(ctx, "user-1", "Grandma Rose", "+1 555 123 4567", "grandmother")
	require.NoError(t, err)
	assert.Equal(t, first.ProfileID, again.ProfileID)
	assert.Equal(t, model.ProfileConfirmed, again.Status, "re-create must not reset confirmation")
	assert.Equal(t, "Grandma Rose", again.Name)

	all, err := st.Profiles().List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	u, err := st.Users().Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.ProfileCount, "converged create must not double count")
}

func TestCreateProfile_InvalidPhone(t *testing.T) {
	st, fo := newRig(t)
	svc := NewProfileService(st, fo, zerolog.Nop())

	_, err := svc.CreateProfile(context.Background(), "user-1", "Rose", "not a number", "grandmother")
	assert.ErrorIs(t, err, model.ErrInvalidPhoneNumber)
}

func TestDeleteProfile_CascadesAndSettlesCounters(t *testing.T) {
	st, fo := newRig(t)
	profiles := NewProfileService(st, fo, zerolog.Nop())
	tasks := NewTaskService(st, fo, zerolog.Nop())
	ctx := context.Background()

	p, err := profiles.CreateProfile(ctx, "user-1", "Rose", "+15551234567", "grandmother")
	require.NoError(t, err)
	_, err = tasks.CreateTask(ctx, "user-1", p.ProfileID, "Take medication", model.Schedule{Hour: 9})
	require.NoError(t, err)
	_, err = tasks.CreateTask(ctx, "user-1", p.ProfileID, "Drink water", model.Schedule{Hour: 14})
	require.NoError(t, err)

	require.NoError(t, profiles.DeleteProfile(ctx, "user-1", p.ProfileID))

	u, err := st.Users().Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, u.ProfileCount)
	assert.Equal(t, 0, u.TaskCount)

	remaining, err := st.Tasks().List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestCreateTask_SchedulesFirstOccurrence(t *testing.T) {
	st, fo := newRig(t)
	profiles := NewProfileService(st, fo, zerolog.Nop())
	tasks := NewTaskService(st, fo, zerolog.Nop())
	ctx := context.Background()

	p, err := profiles.CreateProfile(ctx, "user-1", "Rose", "+15551234567", "grandmother")
	require.NoError(t, err)

	task, err := tasks.CreateTask(ctx, "user-1", p.ProfileID, "Take medication", model.Schedule{Hour: 9, Minute: 30})
	require.NoError(t, err)
	assert.Equal(t, model.TaskActive, task.Status)
	assert.True(t, task.NextScheduledAt.After(time.Now().UTC().Add(-time.Minute)))
	assert.Equal(t, 9, task.NextScheduledAt.Hour())
	assert.Equal(t, 30, task.NextScheduledAt.Minute())
}

func TestCreateTask_Validation(t *testing.T) {
	st, fo := newRig(t)
	profiles := NewProfileService(st, fo, zerolog.Nop())
	tasks := NewTaskService(st, fo, zerolog.Nop())
	ctx := context.Background()

	p, err := profiles.CreateProfile(ctx, "user-1", "Rose", "+15551234567", "grandmother")
	require.NoError(t, err)

	_, err = tasks.CreateTask(ctx, "user-1", p.ProfileID, "", model.Schedule{Hour: 9})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = tasks.CreateTask(ctx, "user-1", p.ProfileID, "Walk", model.Schedule{Hour: 25})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = tasks.CreateTask(ctx, "user-1", "+19995550000", "Walk", model.Schedule{Hour: 9})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSetStatus_ResumeRecomputesSchedule(t *testing.T) {
	st, fo := newRig(t)
	profiles := NewProfileService(st, fo, zerolog.Nop())
	tasks := NewTaskService(st, fo, zerolog.Nop())
	ctx := context.Background()

	p, err := profiles.CreateProfile(ctx, "user-1", "Rose", "+15551234567", "grandmother")
	require.NoError(t, err)
	task, err := tasks.CreateTask(ctx, "user-1", p.ProfileID, "Take medication", model.Schedule{Hour: 9})
	require.NoError(t, err)

	paused, err := tasks.SetStatus(ctx, "user-1", task.TaskID, model.TaskPaused)
	require.NoError(t, err)
	assert.Equal(t, model.TaskPaused, paused.Status)

	// Simulate time having passed while paused.
	stale := time.Now().UTC().Add(-48 * time.Hour)
	paused.NextScheduledAt = stale
	paused.Overdue = true
	_, err = st.Tasks().Upsert(ctx, paused)
	require.NoError(t, err)

	resumed, err := tasks.SetStatus(ctx, "user-1", task.TaskID, model.TaskActive)
	require.NoError(t, err)
	assert.True(t, resumed.NextScheduledAt.After(time.Now().UTC().Add(-time.Minute)))
	assert.False(t, resumed.Overdue)

	_, err = tasks.SetStatus(ctx, "user-1", task.TaskID, model.TaskStatus("BOGUS"))
	assert.ErrorIs(t, err, model.ErrValidation)
}
