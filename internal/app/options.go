package service

import (
	"time"

	repository "github.com/okian/festboard/internal/adapters/repository"
	"github.com/okian/festboard/pkg/logger"
)

// OverridePolicy decides how recomputation treats manually overridden totals.
type OverridePolicy string

const (
	// RecomputeWins replaces overrides on the next recomputation.
	RecomputeWins OverridePolicy = "recompute_wins"
	// OverrideSticky keeps overrides until ClearOverride is called.
	OverrideSticky OverridePolicy = "override_sticky"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Defaults to an in-memory treap store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKnownTeams seeds team names that always appear in totals.
func WithKnownTeams(names ...string) Option {
	return func(s *Service) {
		s.knownTeams = append(s.knownTeams, names...)
	}
}

// WithStrictTeams rejects results that name unregistered teams.
func WithStrictTeams(strict bool) Option {
	return func(s *Service) {
		s.strictTeams = strict
	}
}

// WithOverridePolicy sets the override policy. Unknown values are ignored.
func WithOverridePolicy(p OverridePolicy) Option {
	return func(s *Service) {
		if p == RecomputeWins || p == OverrideSticky {
			s.policy = p
		}
	}
}

// WithBoardPageSize caps programs per display slide.
func WithBoardPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.boardPageSize = n
		}
	}
}

// WithWriteConcurrency bounds parallel total writes during reconciliation.
func WithWriteConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.writeConcurrency = n
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the generator for program and result ids.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}
