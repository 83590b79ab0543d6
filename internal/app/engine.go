package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	repository "github.com/okian/festboard/internal/adapters/repository"
	"github.com/okian/festboard/internal/domain/model"
	"github.com/okian/festboard/internal/domain/scoring"
	"github.com/okian/festboard/internal/domain/types"
	"github.com/okian/festboard/pkg/logger"
	"github.com/okian/festboard/pkg/metrics"
)

// Report summarises one reconciliation pass.
type Report struct {
	// Written counts team totals persisted.
	Written int `json:"written"`
	// Skipped counts teams left alone because their total is overridden.
	Skipped int `json:"skipped"`
	// Failed maps a team to the error that stopped its write.
	Failed map[string]error `json:"-"`
}

// FailedTeams lists teams whose write failed, sorted.
func (r Report) FailedTeams() []string {
	out := make([]string, 0, len(r.Failed))
	for team := range r.Failed {
		out = append(out, team)
	}
	sort.Strings(out)
	return out
}

// ranker is implemented by stores that can rank without a full scan.
type ranker interface {
	TopN(ctx context.Context, n int) ([]types.Entry, error)
	Rank(ctx context.Context, team string) (types.Entry, error)
}

// RecomputeTotals loads results and the team registry, keeps the latest
// result of every program and sums team scores. Nothing is written.
func (s *Service) RecomputeTotals(ctx context.Context) (map[string]int64, error) {
	var (
		results []model.Result
		teams   []model.Team
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results, err = s.store.ListResults(gctx)
		return storageErr("list results", err)
	})
	g.Go(func() error {
		var err error
		teams, err = s.store.ListTeams(gctx)
		return storageErr("list teams", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	known := make([]string, 0, len(s.knownTeams)+len(teams))
	known = append(known, s.knownTeams...)
	for _, t := range teams {
		known = append(known, t.Name)
	}

	return scoring.RecomputeTotals(scoring.Authoritative(results), known), nil
}

func (s *Service) upsertMode() repository.UpsertMode {
	if s.policy == OverrideSticky {
		return repository.UpsertKeepOverride
	}
	return repository.UpsertOverwrite
}

// Reconcile persists total for team in one atomic upsert. A team without a
// stored row gets one.
func (s *Service) Reconcile(ctx context.Context, team string, total int64) error {
	team = strings.TrimSpace(team)
	if team == "" {
		return invalid("team name is required")
	}
	if total < 0 {
		return invalid("total must not be negative")
	}

	row := model.TeamTotal{Team: team, Total: total, UpdatedAt: s.now()}
	if err := s.store.UpsertTeamTotal(ctx, row, s.upsertMode()); err != nil {
		metrics.RecordReconcileWrite(metrics.OutcomeFailed)
		return storageErr("upsert team total", err)
	}
	metrics.RecordReconcileWrite(metrics.OutcomeWritten)
	return nil
}

// ReconcileAll writes every total independently. One team failing does not
// stop the others; failures are collected in the report.
func (s *Service) ReconcileAll(ctx context.Context, totals map[string]int64) Report {
	report := Report{Failed: make(map[string]error)}

	overridden := map[string]bool{}
	if s.policy == OverrideSticky {
		rows, err := s.store.ListTeamTotals(ctx)
		if err != nil {
			// Writes still use KeepOverride, so overrides survive without the hint.
			s.logger.Warn(ctx, "listing totals before reconcile", logger.Error(err))
		}
		for _, r := range rows {
			if r.Overridden {
				overridden[r.Team] = true
			}
		}
	}

	teams := make([]string, 0, len(totals))
	for team := range totals {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.writeConcurrency)
	for _, team := range teams {
		if overridden[team] {
			report.Skipped++
			metrics.RecordReconcileWrite(metrics.OutcomeSkipped)
			continue
		}
		total := totals[team]
		g.Go(func() error {
			err := s.Reconcile(ctx, team, total)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[team] = err
				return nil
			}
			report.Written++
			return nil
		})
	}
	_ = g.Wait()
	return report
}

// Recompute recalculates every team total and reconciles it with the store.
// The report is returned even when some writes failed.
func (s *Service) Recompute(ctx context.Context) (Report, error) {
	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()

	start := time.Now()
	totals, err := s.RecomputeTotals(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("engine", "recompute_read")
		s.logger.Error(ctx, "recompute failed", logger.Error(err))
		return Report{Failed: map[string]error{}}, err
	}

	report := s.ReconcileAll(ctx, totals)
	took := time.Since(start)
	metrics.RecordRecompute(took)

	s.logger.Info(ctx, "recomputed team totals",
		logger.Int("teams", len(totals)),
		logger.Int("written", report.Written),
		logger.Int("skipped", report.Skipped),
		logger.Int("failed", len(report.Failed)),
		logger.Duration("took", took),
	)

	if len(report.Failed) > 0 {
		causes := make([]error, 0, len(report.Failed))
		for _, team := range report.FailedTeams() {
			s.logger.Warn(ctx, "team total not written",
				logger.String("team", team),
				logger.Error(report.Failed[team]),
			)
			causes = append(causes, report.Failed[team])
		}
		// Each cause keeps its own kind for errors.Is.
		return report, fmt.Errorf("%d of %d team totals not written: %w",
			len(report.Failed), len(totals), errors.Join(causes...))
	}
	return report, nil
}

// ManualOverride sets a team's total to an administrator supplied value.
// Invalid input leaves the store untouched.
func (s *Service) ManualOverride(ctx context.Context, team, raw string) error {
	team = strings.TrimSpace(team)
	if team == "" {
		return invalid("team name is required")
	}
	total, err := scoring.ParseTotal(raw)
	if err != nil {
		return invalid("total %q: %v", raw, err)
	}

	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()

	row := model.TeamTotal{Team: team, Total: total, Overridden: true, UpdatedAt: s.now()}
	if err := s.store.UpsertTeamTotal(ctx, row, repository.UpsertOverwrite); err != nil {
		return storageErr("override team total", err)
	}
	metrics.RecordOverride("set")
	s.logger.Info(ctx, "team total overridden",
		logger.String("team", team),
		logger.Int64("total", total),
	)
	return nil
}

// ClearOverride drops a team's override and writes its computed total.
func (s *Service) ClearOverride(ctx context.Context, team string) error {
	team = strings.TrimSpace(team)
	if team == "" {
		return invalid("team name is required")
	}

	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()

	if _, err := s.store.GetTeamTotal(ctx, team); err != nil {
		return storageErr("get team total", err)
	}
	totals, err := s.RecomputeTotals(ctx)
	if err != nil {
		return err
	}

	row := model.TeamTotal{Team: team, Total: totals[team], UpdatedAt: s.now()}
	if err := s.store.UpsertTeamTotal(ctx, row, repository.UpsertOverwrite); err != nil {
		return storageErr("clear override", err)
	}
	metrics.RecordOverride("cleared")
	s.logger.Info(ctx, "team override cleared",
		logger.String("team", team),
		logger.Int64("total", row.Total),
	)
	return nil
}

// Leaderboard returns persisted totals ranked. limit <= 0 returns every team.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	if r, ok := s.store.(ranker); ok && limit > 0 {
		entries, err := r.TopN(ctx, limit)
		if err != nil {
			return nil, storageErr("top totals", err)
		}
		return entries, nil
	}

	rows, err := s.store.ListTeamTotals(ctx)
	if err != nil {
		return nil, storageErr("list team totals", err)
	}
	entries := scoring.RankTotals(rows)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Rank returns one team's leaderboard entry.
func (s *Service) Rank(ctx context.Context, team string) (types.Entry, error) {
	team = strings.TrimSpace(team)
	if team == "" {
		return types.Entry{}, invalid("team name is required")
	}
	if r, ok := s.store.(ranker); ok {
		e, err := r.Rank(ctx, team)
		return e, storageErr("rank team", err)
	}

	entries, err := s.Leaderboard(ctx, 0)
	if err != nil {
		return types.Entry{}, err
	}
	for _, e := range entries {
		if e.Team == team {
			return e, nil
		}
	}
	return types.Entry{}, fmt.Errorf("rank team %q: %w", team, ErrNotFound)
}

// Standings ranks live totals computed from stored results. Nothing is
// persisted and overrides are ignored.
func (s *Service) Standings(ctx context.Context) ([]types.Entry, error) {
	totals, err := s.RecomputeTotals(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.Rank(totals), nil
}
