// Package service wires the aggregation engine to storage and exposes the
// operations the HTTP API depends on.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	repository "github.com/okian/festboard/internal/adapters/repository"
	"github.com/okian/festboard/pkg/logger"
)

// Service implements the API dependencies for the results board.
type Service struct {
	// recomputeMu serialises recompute passes so a slower pass cannot
	// overwrite the totals of a newer one.
	recomputeMu sync.Mutex
	mu          sync.Mutex
	started     bool

	store    repository.Store
	validate *validator.Validate

	knownTeams       []string
	strictTeams      bool
	policy           OverridePolicy
	boardPageSize    int
	writeConcurrency int

	now   func() time.Time
	newID func() (string, error)

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		validate:         validator.New(),
		policy:           RecomputeWins,
		boardPageSize:    9,
		writeConcurrency: 4,
		now:              time.Now,
		newID:            newUUIDv7,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewTreapStore(repository.WithClock(s.now))
	}
	if s.logger == nil {
		s.logger = logger.Discard()
	}
	return s
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Start registers the configured known teams and runs an initial
// recomputation so persisted totals match stored results.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting results service...",
		logger.String("policy", string(s.policy)),
		logger.Int("knownTeams", len(s.knownTeams)),
	)

	for _, name := range s.knownTeams {
		if name == "" {
			continue
		}
		if err := s.store.EnsureTeam(ctx, name); err != nil {
			return storageErr("register known team", err)
		}
	}

	report, err := s.Recompute(ctx)
	if err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "results service started",
		logger.Int("teams", report.Written+report.Skipped),
	)
	return nil
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "results service stopped")
}

// Policy returns the active override policy.
func (s *Service) Policy() OverridePolicy { return s.policy }
