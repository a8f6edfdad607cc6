package factory

import (
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/config"
	ledgerpkg "github.com/carebridge/carebridge/internal/ledger"
)

// NewLedger returns the dedup ledger. With a Redis address configured
// the ledger is shared across processes; otherwise each process keeps
// its own in-memory one, which is enough for a single instance.
func NewLedger(cfg *config.Config, log zerolog.Logger) ledgerpkg.Ledger {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("no redis configured; dedup ledger is process-local")
		return ledgerpkg.NewInMemory()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return ledgerpkg.NewRedis(client, 0)
}
