// Package scoring aggregates program results into per-team totals and ranks them.
//
// Everything here is pure: no I/O, no clocks, no package state. Callers load
// results from storage, pass them in, and persist what comes back.
package scoring

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/festboard/internal/domain/model"
	"github.com/okian/festboard/internal/domain/types"
)

// MaxScore is the largest score one slot may carry when a result is entered.
const MaxScore = 1_000_000

var (
	// ErrInvalidTotal is returned by ParseTotal for input that is not a non-negative integer.
	ErrInvalidTotal = errors.New("invalid total")
	// ErrScoreTooLarge is returned by ParseSlotScore for scores above MaxScore.
	ErrScoreTooLarge = errors.New("score too large")
)

// ParseScore parses a slot score. Anything that is not a non-negative base-10
// integer counts as 0 so one bad cell cannot poison a whole recomputation.
func ParseScore(raw string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// ParseTotal parses an administrator supplied total. Unlike ParseScore it is strict.
func ParseTotal(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidTotal
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, ErrInvalidTotal
	}
	return v, nil
}

// ParseSlotScore validates a score as it is entered: a non-negative integer
// no greater than MaxScore.
func ParseSlotScore(raw string) (int64, error) {
	v, err := ParseTotal(raw)
	if err != nil {
		return 0, err
	}
	if v > MaxScore {
		return 0, ErrScoreTooLarge
	}
	return v, nil
}

// addCapped adds two non-negative values, stopping at math.MaxInt64.
func addCapped(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

// newer reports whether a supersedes b as the authoritative result of a program.
// IDs are time-ordered, so they break timestamp ties in creation order.
func newer(a, b model.Result) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Authoritative keeps the latest result of every program, sorted by program id.
// Input order is irrelevant.
func Authoritative(results []model.Result) []model.Result {
	latest := make(map[string]model.Result, len(results))
	for _, r := range results {
		cur, ok := latest[r.ProgramID]
		if !ok || newer(r, cur) {
			latest[r.ProgramID] = r
		}
	}

	out := make([]model.Result, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProgramID < out[j].ProgramID })
	return out
}

// RecomputeTotals sums slot scores per team across results.
//
// Every known team appears in the output, with 0 when it scored nothing. A team
// named in a result but missing from knownTeams gets its own bucket. The caller
// is expected to pass authoritative results only (see Authoritative).
// A total that would overflow stays at math.MaxInt64.
func RecomputeTotals(results []model.Result, knownTeams []string) map[string]int64 {
	totals := make(map[string]int64, len(knownTeams))
	for _, name := range knownTeams {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		totals[name] = 0
	}

	for _, r := range results {
		for _, slot := range r.Slots {
			if slot.Empty() {
				continue
			}
			team := strings.TrimSpace(slot.Team)
			totals[team] = addCapped(totals[team], ParseScore(slot.Score))
		}
	}
	return totals
}

// Rank orders totals for display: total descending, then team name ascending.
// Equal totals share a rank and the next distinct total takes the following rank.
func Rank(totals map[string]int64) []types.Entry {
	entries := make([]types.Entry, 0, len(totals))
	for team, total := range totals {
		entries = append(entries, types.Entry{Team: team, Total: total})
	}
	sortEntries(entries)
	assignRanksWithTies(entries)
	return entries
}

// RankTotals ranks persisted team totals.
func RankTotals(rows []model.TeamTotal) []types.Entry {
	totals := make(map[string]int64, len(rows))
	for _, row := range rows {
		totals[row.Team] = row.Total
	}
	return Rank(totals)
}

// Leading returns the top ranked entry.
func Leading(entries []types.Entry) (types.Entry, bool) {
	if len(entries) == 0 {
		return types.Entry{}, false
	}
	return entries[0], true
}

func sortEntries(entries []types.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].Team < entries[j].Team
	})
}

// assignRanksWithTies expects entries sorted by sortEntries.
func assignRanksWithTies(entries []types.Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Total != entries[i-1].Total {
			rank++
		}
		entries[i].Rank = rank
	}
}
