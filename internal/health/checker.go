package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ComponentChecker polls one dependency through a HealthPinger.
type ComponentChecker struct {
	name    string
	pinger  HealthPinger
	timeout time.Duration
	healthy atomic.Int32
	log     zerolog.Logger
}

func NewComponentChecker(name string, pinger HealthPinger, timeout time.Duration, log zerolog.Logger) *ComponentChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ComponentChecker{name: name, pinger: pinger, timeout: timeout, log: log}
}

func (c *ComponentChecker) Name() string    { return c.name }
func (c *ComponentChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

// Start probes immediately, then on every tick until ctx is cancelled.
func (c *ComponentChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if err := c.pinger.HealthPing(probeCtx); err != nil {
			if c.healthy.Swap(0) == 1 {
				c.log.Error().Stack().Err(err).Str("component", c.name).Msg("component health: DOWN")
			}
			return
		}
		if c.healthy.Swap(1) == 0 {
			c.log.Info().Str("component", c.name).Msg("component health: UP")
		}
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}
