// Package repository defines the results store interface and its implementations.
package repository

import (
	"context"

	"github.com/okian/festboard/internal/domain/model"
)

// UpsertMode controls how UpsertTeamTotal treats an existing overridden row.
type UpsertMode int

const (
	// UpsertOverwrite always writes the given row.
	UpsertOverwrite UpsertMode = iota
	// UpsertKeepOverride leaves rows flagged as overridden untouched.
	UpsertKeepOverride
)

// ProgramFilter narrows ListPrograms. Zero values match everything.
type ProgramFilter struct {
	Gender   model.Gender
	Category model.Category
	// Query is matched case-insensitively against the program name.
	Query string
}

// Counts summarises store contents.
type Counts struct {
	ProgramsByGender map[model.Gender]int
	Results          int
	Teams            int
}

// Store provides read/write access to teams, programs, results and team totals.
type Store interface {
	// ListResults returns every stored result, in no particular order.
	ListResults(ctx context.Context) ([]model.Result, error)
	// InsertResult appends a result. Results are never updated in place.
	InsertResult(ctx context.Context, r model.Result) error

	// ListTeams returns the team registry ordered by name.
	ListTeams(ctx context.Context) ([]model.Team, error)
	// EnsureTeam registers name if it is not registered yet.
	EnsureTeam(ctx context.Context, name string) error

	// GetTeamTotal returns ErrNotFound if no total was ever written for team.
	GetTeamTotal(ctx context.Context, team string) (model.TeamTotal, error)
	// UpsertTeamTotal atomically inserts or updates the row keyed by t.Team.
	UpsertTeamTotal(ctx context.Context, t model.TeamTotal, mode UpsertMode) error
	// ListTeamTotals returns all totals ordered by total desc, then team asc.
	ListTeamTotals(ctx context.Context) ([]model.TeamTotal, error)

	CreateProgram(ctx context.Context, p model.Program) error
	UpdateProgram(ctx context.Context, p model.Program) error
	GetProgram(ctx context.Context, id string) (model.Program, error)
	// ListPrograms returns matching programs, newest first.
	ListPrograms(ctx context.Context, f ProgramFilter) ([]model.Program, error)

	Count(ctx context.Context) (Counts, error)
	Close() error
}
