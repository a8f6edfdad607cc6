package reminderworker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/carebridge/carebridge/internal/config"
	"github.com/carebridge/carebridge/internal/events"
	"github.com/carebridge/carebridge/internal/factory"
	"github.com/carebridge/carebridge/internal/fanout"
	"github.com/carebridge/carebridge/internal/logger"
	"github.com/carebridge/carebridge/internal/scheduler"
)

// Run starts the reminder dispatch worker and blocks until shutdown or error.
func Run() error {
	log := logger.New("reminder-worker")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("config")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("store")
		return err
	}

	sender := factory.NewSender(cfg, log)
	fo := fanout.New(st, events.NewBus(cfg.EventBufferSize), log)

	sched := scheduler.New(st, sender, fo, scheduler.Config{
		BatchSize:        cfg.SchedulerBatchSize,
		Interval:         cfg.SchedulerInterval,
		ResponseDeadline: cfg.ResponseDeadline(),
		SendRetries:      cfg.SendRetries,
	}, log)

	if err := sched.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Stack().Err(err).Msg("reminder worker exit")
		return err
	}
	return nil
}
