// Package scheduler dispatches due reminders and sweeps reply deadlines.
// It is a polling worker: each tick leases a batch of work, handles each
// item independently, and lets per-item failures back off to the next
// tick rather than aborting the cycle.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/fanout"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/schedule"
	"github.com/carebridge/carebridge/internal/sms"
	"github.com/carebridge/carebridge/internal/store"
)

// Config controls batch size, polling cadence and retry behavior.
type Config struct {
	BatchSize        int           // tasks leased per cycle
	Interval         time.Duration // poll interval
	ResponseDeadline time.Duration // reply window before a dispatch goes overdue
	SendRetries      int           // immediate retries per send before giving up the tick
}

// Scheduler runs the reminder dispatch loop.
type Scheduler struct {
	store  store.Store
	sender sms.Sender
	fanout *fanout.Coordinator
	cfg    Config
	clock  func() time.Time
	log    zerolog.Logger
}

func New(st store.Store, sender sms.Sender, fo *fanout.Coordinator, cfg Config, log zerolog.Logger) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ResponseDeadline <= 0 {
		cfg.ResponseDeadline = 10 * time.Minute
	}
	if cfg.SendRetries <= 0 {
		cfg.SendRetries = 3
	}
	return &Scheduler{
		store:  st,
		sender: sender,
		fanout: fo,
		cfg:    cfg,
		clock:  func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// Run starts the polling loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Int("batch", s.cfg.BatchSize).
		Dur("interval", s.cfg.Interval).
		Dur("response_deadline", s.cfg.ResponseDeadline).
		Msg("reminder scheduler starting")
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reminder scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.processOnce(ctx); err != nil {
				s.log.Error().Stack().Err(err).Msg("scheduler processOnce")
			}
		}
	}
}

// processOnce runs one dispatch pass and one deadline sweep.
func (s *Scheduler) processOnce(ctx context.Context) error {
	now := s.clock()
	if err := s.dispatchDue(ctx, now); err != nil {
		return err
	}
	return s.sweepDeadlines(ctx, now)
}

// dispatchDue sends a reminder for every active task whose occurrence
// has arrived. nextScheduledAt is deliberately left unchanged: the task
// advances when a completion reconciles or the deadline sweep fires.
func (s *Scheduler) dispatchDue(ctx context.Context, now time.Time) error {
	due, err := s.store.Tasks().ListDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, task := range due {
		if err := s.dispatchOne(ctx, task, now); err != nil {
			// Task stays due; the next tick retries it.
			s.log.Error().Stack().Err(err).Str("task_id", task.TaskID).Msg("reminder dispatch failed")
		}
	}
	return nil
}

func (s *Scheduler) dispatchOne(ctx context.Context, task *model.Task, now time.Time) error {
	profile, err := s.store.Profiles().Get(ctx, task.UserID, task.ProfileID)
	if err != nil {
		return fmt.Errorf("task %s: owning profile: %w", task.TaskID, err)
	}
	if profile.Status != model.ProfileConfirmed {
		// Unconfirmed recipients have not opted in; skip quietly.
		return nil
	}

	body := reminderBody(profile, task)
	var sid string
	for attempt := 1; ; attempt++ {
		sid, err = s.sender.Send(ctx, profile.PhoneNumber, body)
		if err == nil {
			break
		}
		if attempt >= s.cfg.SendRetries {
			return fmt.Errorf("task %s after %d attempts: %w", task.TaskID, attempt, err)
		}
		s.log.Warn().Err(err).Str("task_id", task.TaskID).Int("attempt", attempt).Msg("send retry")
	}

	task.LastDispatchedAt = &now
	updated, err := s.store.Tasks().Upsert(ctx, task)
	if err != nil {
		return err
	}
	s.fanout.TaskUpdated(updated)
	s.log.Info().
		Str("task_id", task.TaskID).
		Str("profile_id", task.ProfileID).
		Str("sid", sid).
		Msg("reminder dispatched")
	return nil
}

// sweepDeadlines marks tasks overdue when no reply reconciled within the
// response window, and advances them to the next occurrence so a missed
// reminder never blocks future ones. The deadline is cooperative:
// checked on the tick, not an interrupt.
func (s *Scheduler) sweepDeadlines(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-s.cfg.ResponseDeadline)
	elapsed, err := s.store.Tasks().ListDeadlineElapsed(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, task := range elapsed {
		// Per-task windows override the global default.
		if task.DeadlineMinutes > 0 {
			window := time.Duration(task.DeadlineMinutes) * time.Minute
			if now.Sub(*task.LastDispatchedAt) < window {
				continue
			}
		}
		task.Overdue = true
		task.NextScheduledAt = schedule.Next(task.Schedule, now)
		task.LastDispatchedAt = nil
		updated, err := s.store.Tasks().Upsert(ctx, task)
		if err != nil {
			s.log.Error().Stack().Err(err).Str("task_id", task.TaskID).Msg("deadline sweep write failed")
			continue
		}
		s.fanout.TaskUpdated(updated)
		s.log.Info().
			Str("task_id", task.TaskID).
			Time("next_scheduled_at", updated.NextScheduledAt).
			Msg("task overdue, advanced to next occurrence")
	}
	return nil
}

func reminderBody(profile *model.Profile, task *model.Task) string {
	return fmt.Sprintf("Hi %s! Time for: %s. Reply YES when done, or send a photo.", profile.Name, task.Title)
}
