package loadcheck

import (
	"fmt"
	"sort"

	"github.com/okian/festboard/internal/domain/model"
	"github.com/okian/festboard/internal/domain/scoring"
	"github.com/okian/festboard/internal/domain/types"
)

// expectedTotals aggregates the last result of every planned program.
func expectedTotals(p plan) map[string]int64 {
	latest := make([]model.Result, 0, len(p.programs))
	for i, pp := range p.programs {
		if len(pp.results) == 0 {
			continue
		}
		latest = append(latest, model.Result{
			ProgramID: fmt.Sprintf("p%d", i),
			Slots:     pp.results[len(pp.results)-1],
		})
	}
	return scoring.RecomputeTotals(latest, p.teams)
}

// verify checks the served leaderboard against the expected totals of the
// run's own teams and checks that it is ordered.
func verify(expected map[string]int64, board []types.Entry) error {
	served := make(map[string]int64, len(board))
	for _, e := range board {
		served[e.Team] = e.Total
	}

	teams := make([]string, 0, len(expected))
	for team := range expected {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	for _, team := range teams {
		got, ok := served[team]
		if !ok {
			return fmt.Errorf("team %s missing from leaderboard", team)
		}
		if got != expected[team] {
			return fmt.Errorf("team %s: leaderboard total %d, expected %d", team, got, expected[team])
		}
	}

	for i := 1; i < len(board); i++ {
		prev, cur := board[i-1], board[i]
		if cur.Total > prev.Total || (cur.Total == prev.Total && cur.Team < prev.Team) {
			return fmt.Errorf("leaderboard not ordered at position %d: %s(%d) after %s(%d)",
				i, cur.Team, cur.Total, prev.Team, prev.Total)
		}
	}
	return nil
}
