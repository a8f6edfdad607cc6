package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/config"
	storepkg "github.com/carebridge/carebridge/internal/store"
	storemem "github.com/carebridge/carebridge/internal/store/memory"
	storepg "github.com/carebridge/carebridge/internal/store/postgres"
)

// NewStore returns a store.Store for the configured driver. The postgres
// driver runs the idempotent schema DDL before returning so both
// binaries can start against a fresh database.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "memory":
		log.Warn().Msg("using in-memory store; data will not survive restarts")
		return storemem.New(), nil
	case "postgres":
		db, err := storepg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := storepg.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		return storepg.NewWithDB(db), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
