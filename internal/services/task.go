package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/fanout"
	"github.com/carebridge/carebridge/internal/identity"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/schedule"
	"github.com/carebridge/carebridge/internal/store"
)

// TaskService manages reminder definitions.
type TaskService struct {
	store  store.Store
	fanout *fanout.Coordinator
	log    zerolog.Logger
}

func NewTaskService(s store.Store, fo *fanout.Coordinator, log zerolog.Logger) *TaskService {
	return &TaskService{store: s, fanout: fo, log: log}
}

// CreateTask adds a reminder for a profile. The first occurrence is the
// next time the schedule matches.
func (s *TaskService) CreateTask(ctx context.Context, userID, profileID, title string, sched model.Schedule) (*model.Task, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title required", model.ErrValidation)
	}
	if sched.Hour < 0 || sched.Hour > 23 || sched.Minute < 0 || sched.Minute > 59 {
		return nil, fmt.Errorf("%w: schedule time out of range", model.ErrValidation)
	}
	if _, err := s.store.Profiles().Get(ctx, userID, profileID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out, err := s.store.Tasks().Upsert(ctx, &model.Task{
		TaskID:          identity.TaskID(),
		UserID:          userID,
		ProfileID:       profileID,
		Title:           title,
		Schedule:        sched,
		Status:          model.TaskActive,
		NextScheduledAt: schedule.Next(sched, now),
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Users().AdjustCounts(ctx, userID, 0, 1); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("task counter bump failed")
	}
	s.fanout.TaskUpdated(out)
	return out, nil
}

func (s *TaskService) GetTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return s.store.Tasks().Get(ctx, userID, taskID)
}

func (s *TaskService) ListTasks(ctx context.Context, userID string) ([]*model.Task, error) {
	return s.store.Tasks().List(ctx, userID)
}

// SetStatus pauses, resumes or archives a task. Resuming recomputes the
// next occurrence so the task cannot come back with a stale past date.
func (s *TaskService) SetStatus(ctx context.Context, userID, taskID string, status model.TaskStatus) (*model.Task, error) {
	switch status {
	case model.TaskActive, model.TaskPaused, model.TaskArchived:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrValidation, status)
	}
	task, err := s.store.Tasks().Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	task.Status = status
	if status == model.TaskActive {
		task.NextScheduledAt = schedule.Next(task.Schedule, time.Now().UTC())
		task.Overdue = false
		task.LastDispatchedAt = nil
	}
	out, err := s.store.Tasks().Upsert(ctx, task)
	if err != nil {
		return nil, err
	}
	s.fanout.TaskUpdated(out)
	return out, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) error {
	if err := s.store.Tasks().Delete(ctx, userID, taskID); err != nil {
		return err
	}
	if err := s.store.Users().AdjustCounts(ctx, userID, 0, -1); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("task counter decrement failed")
	}
	return nil
}
