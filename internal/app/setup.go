package service

import (
	"context"
	"fmt"

	repository "github.com/okian/festboard/internal/adapters/repository"
	"github.com/okian/festboard/internal/config"
	"github.com/okian/festboard/pkg/logger"
)

// OpenStore opens the persistence backend selected by cfg.Store.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	debug := repository.WithDebugSQL(cfg.DebugSQL, cfg.DebugSQL && cfg.LogLevel == "debug")
	switch cfg.Store {
	case config.StoreMemory:
		return repository.NewTreapStore(), nil
	case config.StorePostgres:
		return repository.OpenPostgres(ctx, cfg.DatabaseURL, debug)
	case config.StoreSQLite:
		return repository.OpenSQLite(ctx, cfg.SQLitePath, debug)
	}
	return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
}

// OptionsFromConfig translates cfg into service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithKnownTeams(cfg.KnownTeams...),
		WithStrictTeams(cfg.StrictTeams),
		WithOverridePolicy(OverridePolicy(cfg.OverridePolicy)),
		WithBoardPageSize(cfg.BoardPageSize),
	}
}

// FromConfig opens the configured store and builds a Service on it. The
// caller owns the service and must Start and Stop it.
func FromConfig(ctx context.Context, cfg *config.Config, log logger.Logger, extra ...Option) (*Service, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	opts := append(OptionsFromConfig(cfg), WithStore(store), WithLogger(log))
	return New(append(opts, extra...)...), nil
}
