package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	repository "github.com/okian/festboard/internal/adapters/repository"
	"github.com/okian/festboard/internal/domain/model"
	"github.com/okian/festboard/internal/domain/scoring"
	"github.com/okian/festboard/pkg/logger"
	"github.com/okian/festboard/pkg/metrics"
)

// ProgramInput is the editable part of a program.
type ProgramInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Category string `json:"category" validate:"required"`
	Gender   string `json:"gender" validate:"required"`
}

// ProgramQuery narrows Programs. Empty fields match everything.
type ProgramQuery struct {
	Gender   string
	Category string
	Query    string
}

// ProgramItem is a program plus whether a result was recorded for it.
// seedTeamTotal writes the computed total of a team that has no total row
// yet, so it shows on the leaderboard right away.
func (s *Service) seedTeamTotal(ctx context.Context, team string) error {
	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()

	_, err := s.store.GetTeamTotal(ctx, team)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return storageErr("get team total", err)
	}
	totals, err := s.RecomputeTotals(ctx)
	if err != nil {
		return err
	}
	return s.Reconcile(ctx, team, totals[team])
}

type ProgramItem struct {
	model.Program
	HasResult bool `json:"has_result"`
}

// ResultInput is a result as entered: up to three placed teams.
type ResultInput struct {
	Slots [model.SlotCount]model.Slot `json:"slots"`
}

// RegisterTeam adds name to the team registry.
func (s *Service) RegisterTeam(ctx context.Context, name string) (model.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Team{}, invalid("team name is required")
	}
	if err := s.store.EnsureTeam(ctx, name); err != nil {
		return model.Team{}, storageErr("register team", err)
	}
	s.logger.Info(ctx, "team registered", logger.String("team", name))

	if err := s.seedTeamTotal(ctx, name); err != nil {
		return model.Team{}, err
	}

	teams, err := s.Teams(ctx)
	if err != nil {
		return model.Team{}, err
	}
	for _, t := range teams {
		if t.Name == name {
			return t, nil
		}
	}
	return model.Team{Name: name}, nil
}

// Teams returns the registry ordered by name.
func (s *Service) Teams(ctx context.Context) ([]model.Team, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, storageErr("list teams", err)
	}
	return teams, nil
}

func (s *Service) parseProgramInput(in ProgramInput) (model.Program, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return model.Program{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	cat, err := model.ParseCategory(in.Category)
	if err != nil {
		return model.Program{}, invalid("category %q", in.Category)
	}
	gender, err := model.ParseGender(in.Gender)
	if err != nil {
		return model.Program{}, invalid("gender %q", in.Gender)
	}
	return model.Program{Name: in.Name, Category: cat, Gender: gender}, nil
}

// CreateProgram validates and stores a new program.
func (s *Service) CreateProgram(ctx context.Context, in ProgramInput) (model.Program, error) {
	p, err := s.parseProgramInput(in)
	if err != nil {
		return model.Program{}, err
	}
	if p.ID, err = s.newID(); err != nil {
		return model.Program{}, fmt.Errorf("program id: %w", err)
	}
	p.CreatedAt = s.now()

	if err := s.store.CreateProgram(ctx, p); err != nil {
		return model.Program{}, storageErr("create program", err)
	}
	metrics.RecordProgramCreated()
	s.logger.Info(ctx, "program created",
		logger.String("id", p.ID),
		logger.String("name", p.Name),
		logger.String("category", string(p.Category)),
		logger.String("gender", string(p.Gender)),
	)
	return p, nil
}

// UpdateProgram replaces the name, category and gender of program id.
func (s *Service) UpdateProgram(ctx context.Context, id string, in ProgramInput) (model.Program, error) {
	p, err := s.parseProgramInput(in)
	if err != nil {
		return model.Program{}, err
	}
	cur, err := s.store.GetProgram(ctx, id)
	if err != nil {
		return model.Program{}, storageErr("get program", err)
	}
	cur.Name, cur.Category, cur.Gender = p.Name, p.Category, p.Gender
	if err := s.store.UpdateProgram(ctx, cur); err != nil {
		return model.Program{}, storageErr("update program", err)
	}
	return cur, nil
}

// Programs searches programs and flags the ones that have a result.
func (s *Service) Programs(ctx context.Context, q ProgramQuery) ([]ProgramItem, error) {
	var f repository.ProgramFilter
	if strings.TrimSpace(q.Gender) != "" {
		g, err := model.ParseGender(q.Gender)
		if err != nil {
			return nil, invalid("gender %q", q.Gender)
		}
		f.Gender = g
	}
	if strings.TrimSpace(q.Category) != "" {
		c, err := model.ParseCategory(q.Category)
		if err != nil {
			return nil, invalid("category %q", q.Category)
		}
		f.Category = c
	}
	f.Query = q.Query

	programs, err := s.store.ListPrograms(ctx, f)
	if err != nil {
		return nil, storageErr("list programs", err)
	}
	latest, err := s.latestByProgram(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ProgramItem, 0, len(programs))
	for _, p := range programs {
		_, ok := latest[p.ID]
		out = append(out, ProgramItem{Program: p, HasResult: ok})
	}
	return out, nil
}

func (s *Service) latestByProgram(ctx context.Context) (map[string]model.Result, error) {
	results, err := s.store.ListResults(ctx)
	if err != nil {
		return nil, storageErr("list results", err)
	}
	latest := scoring.Authoritative(results)
	out := make(map[string]model.Result, len(latest))
	for _, r := range latest {
		out[r.ProgramID] = r
	}
	return out, nil
}

// LatestResult returns the result that currently counts for a program.
func (s *Service) LatestResult(ctx context.Context, programID string) (model.Result, error) {
	if _, err := s.store.GetProgram(ctx, programID); err != nil {
		return model.Result{}, storageErr("get program", err)
	}
	latest, err := s.latestByProgram(ctx)
	if err != nil {
		return model.Result{}, err
	}
	r, ok := latest[programID]
	if !ok {
		return model.Result{}, fmt.Errorf("result for program %q: %w", programID, ErrNotFound)
	}
	return r, nil
}

func (s *Service) validateResult(ctx context.Context, in ResultInput) ([model.SlotCount]model.Slot, error) {
	var slots [model.SlotCount]model.Slot
	seen := make(map[string]bool, model.SlotCount)

	for i, sl := range in.Slots {
		team := strings.TrimSpace(sl.Team)
		score := strings.TrimSpace(sl.Score)
		if team == "" {
			if i == 0 {
				return slots, invalid("first place team is required")
			}
			if score != "" {
				return slots, invalid("slot %d has a score but no team", i+1)
			}
			continue
		}
		if _, err := scoring.ParseSlotScore(score); err != nil {
			if errors.Is(err, scoring.ErrScoreTooLarge) {
				return slots, invalid("slot %d score %s is above the maximum of %d", i+1, score, scoring.MaxScore)
			}
			return slots, invalid("slot %d score %q is not a non-negative integer", i+1, sl.Score)
		}
		if seen[team] {
			return slots, invalid("team %q appears twice", team)
		}
		seen[team] = true
		slots[i] = model.Slot{Team: team, Score: score}
	}

	if s.strictTeams {
		registered := make(map[string]bool, len(s.knownTeams))
		for _, name := range s.knownTeams {
			registered[name] = true
		}
		teams, err := s.Teams(ctx)
		if err != nil {
			return slots, err
		}
		for _, t := range teams {
			registered[t.Name] = true
		}
		for team := range seen {
			if !registered[team] {
				return slots, invalid("team %q is not registered", team)
			}
		}
	}
	return slots, nil
}

// SaveResult records a new result for a program and recomputes totals.
// Earlier results for the program stay as history. A failed recompute still
// returns the saved result together with the error.
func (s *Service) SaveResult(ctx context.Context, programID string, in ResultInput) (model.Result, Report, error) {
	slots, err := s.validateResult(ctx, in)
	if err != nil {
		return model.Result{}, Report{}, err
	}

	id, err := s.newID()
	if err != nil {
		return model.Result{}, Report{}, fmt.Errorf("result id: %w", err)
	}
	r := model.Result{ID: id, ProgramID: programID, Slots: slots, CreatedAt: s.now()}
	if err := s.store.InsertResult(ctx, r); err != nil {
		return model.Result{}, Report{}, storageErr("insert result", err)
	}
	metrics.RecordResultSaved()
	s.logger.Info(ctx, "result saved",
		logger.String("program", programID),
		logger.String("id", r.ID),
	)

	report, err := s.Recompute(ctx)
	return r, report, err
}
