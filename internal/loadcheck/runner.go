// Package loadcheck drives a running festboard instance through its admin API
// and checks that the served leaderboard matches a local aggregation of the
// submitted results.
package loadcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/festboard/internal/domain/model"
	"github.com/okian/festboard/internal/domain/types"
	"github.com/okian/festboard/pkg/logger"
)

// ErrMismatch is returned when the leaderboard disagrees with the submitted results.
var ErrMismatch = errors.New("leaderboard mismatch")

// Run executes the complete check.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	stats := Stats{StartTime: time.Now()}
	if cfg.Seed == 0 {
		cfg.Seed = stats.StartTime.UnixNano()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	log := logger.Get()

	log.Info(ctx, "starting festboard load check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("programs", cfg.Programs),
		logger.Int("rewrites", cfg.Rewrites),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", cfg.Seed),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	if err := c.login(ctx, cfg.Username, cfg.Password); err != nil {
		return stats, fmt.Errorf("login failed: %w", err)
	}

	p := generate(cfg, fmt.Sprintf("lc%x", uint32(cfg.Seed)))

	for _, team := range p.teams {
		if err := c.do(ctx, http.MethodPost, "/teams", map[string]string{"name": team}, nil, http.StatusCreated); err != nil {
			return stats, fmt.Errorf("register team %s: %w", team, err)
		}
	}

	ids, err := createPrograms(ctx, c, cfg, p)
	stats.ProgramsCreated = len(ids)
	if err != nil {
		return stats, err
	}

	submitted, failed, refused := submitResults(ctx, c, cfg, p, ids)
	stats.ResultsSubmitted, stats.ResultsFailed, stats.ReplaysRefused = submitted, failed, refused
	if failed > 0 {
		return stats, fmt.Errorf("%d of %d results failed", failed, submitted)
	}

	var board []types.Entry
	if err := c.do(ctx, http.MethodGet, "/leaderboard", nil, &board, http.StatusOK); err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	expected := expectedTotals(p)
	if err := verify(expected, board); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrMismatch, err)
	}
	stats.TeamsVerified = len(expected)
	stats.Duration = time.Since(stats.StartTime)

	log.Info(ctx, "load check passed",
		logger.Int("programsCreated", stats.ProgramsCreated),
		logger.Int("resultsSubmitted", stats.ResultsSubmitted),
		logger.Int("replaysRefused", stats.ReplaysRefused),
		logger.Int("teamsVerified", stats.TeamsVerified),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// createPrograms creates every planned program and returns ids by plan index.
func createPrograms(ctx context.Context, c *client, cfg *Config, p plan) ([]string, error) {
	ids := make([]string, len(p.programs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, pp := range p.programs {
		g.Go(func() error {
			var created model.Program
			body := map[string]string{
				"name":     pp.name,
				"category": string(pp.category),
				"gender":   string(pp.gender),
			}
			if err := c.do(gctx, http.MethodPost, "/programs", body, &created, http.StatusCreated); err != nil {
				return fmt.Errorf("create program %q: %w", pp.name, err)
			}
			ids[i] = created.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// submitResults posts results concurrently across programs. Results of one
// program go out in order so the last one is the newest. The last submission
// of each program is replayed with its idempotency key and must be refused.
func submitResults(ctx context.Context, c *client, cfg *Config, p plan, ids []string) (int, int, int) {
	var submitted, failed, refused atomic.Int64
	log := logger.Get()

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i, pp := range p.programs {
		g.Go(func() error {
			path := "/programs/" + ids[i] + "/results"
			plog := log.With(logger.String("program", ids[i]))
			var key string
			for _, slots := range pp.results {
				var resp struct {
					Reconciled bool `json:"reconciled"`
				}
				key = uuid.NewString()
				err := c.send(ctx, http.MethodPost, path, key, map[string]any{"slots": slots}, &resp, http.StatusCreated)
				submitted.Add(1)
				if err == nil && !resp.Reconciled {
					err = errors.New("result stored but totals not reconciled")
				}
				if err != nil {
					failed.Add(1)
					plog.Warn(ctx, "result submission failed", logger.Error(err))
					return nil
				}
				if cfg.Verbose {
					plog.Debug(ctx, "result submitted")
				}
			}
			if key == "" {
				return nil
			}
			err := c.send(ctx, http.MethodPost, path, key, map[string]any{"slots": pp.results[len(pp.results)-1]}, nil, http.StatusConflict)
			if err != nil {
				failed.Add(1)
				plog.Warn(ctx, "replayed submission was not refused", logger.Error(err))
				return nil
			}
			refused.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(submitted.Load()), int(failed.Load()), int(refused.Load())
}
