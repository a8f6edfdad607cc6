package careservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/api"
	"github.com/carebridge/carebridge/internal/auth"
	"github.com/carebridge/carebridge/internal/config"
	"github.com/carebridge/carebridge/internal/events"
	"github.com/carebridge/carebridge/internal/factory"
	"github.com/carebridge/carebridge/internal/fanout"
	"github.com/carebridge/carebridge/internal/health"
	"github.com/carebridge/carebridge/internal/logger"
	"github.com/carebridge/carebridge/internal/reconcile"
	"github.com/carebridge/carebridge/internal/store"
)

// Run starts the care service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("care-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Care service starting")

	// Cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return err
	}

	led := factory.NewLedger(cfg, log)
	fo := fanout.New(st, events.NewBus(cfg.EventBufferSize), log)
	rec := reconcile.New(st, led, fo, log)
	rec.SetResponseDeadline(cfg.ResponseDeadline())

	var verifier *auth.TwilioVerifier
	if cfg.TwilioAuthToken != "" && cfg.WebhookPublicURL != "" {
		verifier = auth.NewTwilioVerifier(cfg.TwilioAuthToken, cfg.WebhookPublicURL)
	} else {
		log.Warn().Msg("webhook signature verification disabled")
	}

	router := api.NewRouter(st, rec, fo, verifier, log)
	startHealthCheckers(ctx, log, st)

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// startHealthCheckers probes dependencies in the background and binds
// the aggregate to the health endpoint. Components without a pinger are
// treated as always up.
func startHealthCheckers(ctx context.Context, log zerolog.Logger, st store.Store) {
	var checkers []health.HealthChecker
	if pinger, ok := st.(health.HealthPinger); ok {
		c := health.NewComponentChecker("store", pinger, 2*time.Second, log)
		go c.Start(ctx, 30*time.Second)
		checkers = append(checkers, c)
	}
	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, 30*time.Second)
	api.BindServiceHealth(svcHealth.IsHealthy)
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// The SSE stream needs an unbounded write window.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
