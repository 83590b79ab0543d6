package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/festboard/internal/domain/model"
	"github.com/okian/festboard/internal/domain/types"
	"github.com/okian/festboard/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: total DESC, then team ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the
// leaderboard from best to worst.

// treap node
type node struct {
	team  string
	total int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aTotal, aTeam) should appear before (bTotal, bTeam).
func less(aTotal int64, aTeam string, bTotal int64, bTeam string) bool {
	if aTotal != bTotal {
		return aTotal > bTotal
	}
	return aTeam < bTeam
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// priority hashes the team name so the tree shape is independent of insert order.
func priority(team string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(team))
	return h.Sum64()
}

func insert(n *node, team string, total int64) *node {
	if n == nil {
		return &node{team: team, total: total, prio: priority(team), size: 1}
	}
	if less(total, team, n.total, n.team) {
		n.left = insert(n.left, team, total)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, team, total)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, team string, total int64) *node {
	if n == nil {
		return nil
	}
	if total == n.total && team == n.team {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, team, total)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, team, total)
		}
	} else if less(total, team, n.total, n.team) {
		n.left = deleteNode(n.left, team, total)
	} else {
		n.right = deleteNode(n.right, team, total)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, types.Entry{Team: n.team, Total: n.total})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore keeps everything in memory. A single mutex guards all state,
// which makes UpsertTeamTotal atomic with respect to concurrent callers.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node
	totals   map[string]model.TeamTotal
	teams    map[string]model.Team
	programs map[string]model.Program
	results  []model.Result
	now      func() time.Time
}

var _ Store = (*TreapStore)(nil)

// NewTreapStore constructs an empty in-memory store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		totals:   make(map[string]model.TeamTotal),
		teams:    make(map[string]model.Team),
		programs: make(map[string]model.Program),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close is a no-op; the store holds no external resources.
func (s *TreapStore) Close() error { return nil }

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(time.Since(start))
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(time.Since(start))
}

// ListResults returns a copy of every stored result.
func (s *TreapStore) ListResults(ctx context.Context) ([]model.Result, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Result(nil), s.results...), nil
}

// InsertResult appends r.
func (s *TreapStore) InsertResult(ctx context.Context, r model.Result) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.programs[r.ProgramID]; !ok {
		return ErrNotFound
	}
	s.results = append(s.results, r)
	return nil
}

// ListTeams returns the registry ordered by name.
func (s *TreapStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]model.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// EnsureTeam registers name once.
func (s *TreapStore) EnsureTeam(ctx context.Context, name string) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[name]; !ok {
		s.teams[name] = model.Team{Name: name, CreatedAt: s.now()}
	}
	return nil
}

// GetTeamTotal returns the persisted total for team.
func (s *TreapStore) GetTeamTotal(ctx context.Context, team string) (model.TeamTotal, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return model.TeamTotal{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.totals[team]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.TeamTotal{}, ErrNotFound
	}
	return t, nil
}

// UpsertTeamTotal replaces the row for t.Team in O(log n) expected time.
func (s *TreapStore) UpsertTeamTotal(ctx context.Context, t model.TeamTotal, mode UpsertMode) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	old, exists := s.totals[t.Team]
	if exists {
		if mode == UpsertKeepOverride && old.Overridden {
			s.mu.Unlock()
			return nil
		}
		s.root = deleteNode(s.root, old.Team, old.Total)
	}
	s.totals[t.Team] = t
	s.root = insert(s.root, t.Team, t.Total)
	count := len(s.totals)
	s.mu.Unlock()

	if !exists {
		metrics.UpdateTeamsTracked(count)
	}
	return nil
}

// ListTeamTotals returns every row in leaderboard order.
func (s *TreapStore) ListTeamTotals(ctx context.Context) ([]model.TeamTotal, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]types.Entry, 0, len(s.totals))
	collectTopN(s.root, len(s.totals), &entries)

	out := make([]model.TeamTotal, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.totals[e.Team])
	}
	return out, nil
}

// TopN returns the top n entries with dense ranks.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	defer observeQuery(time.Now())
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Entry, 0, min(n, len(s.totals)))
	collectTopN(s.root, n, &out)
	assignRanks(out)
	return out, nil
}

// Rank returns the ranked entry for team.
func (s *TreapStore) Rank(ctx context.Context, team string) (types.Entry, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return types.Entry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.totals[team]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}

	all := make([]types.Entry, 0, len(s.totals))
	collectTopN(s.root, len(s.totals), &all)
	assignRanks(all)
	for _, e := range all {
		if e.Team == team {
			return e, nil
		}
	}
	return types.Entry{}, ErrNotFound
}

// CreateProgram stores p. The id must be unused.
func (s *TreapStore) CreateProgram(ctx context.Context, p model.Program) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.programs[p.ID]; ok {
		return ErrDuplicate
	}
	s.programs[p.ID] = p
	return nil
}

// UpdateProgram replaces name, category and gender of an existing program.
func (s *TreapStore) UpdateProgram(ctx context.Context, p model.Program) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.programs[p.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name, cur.Category, cur.Gender = p.Name, p.Category, p.Gender
	s.programs[p.ID] = cur
	return nil
}

// GetProgram returns the program with id.
func (s *TreapStore) GetProgram(ctx context.Context, id string) (model.Program, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Program{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.programs[id]
	if !ok {
		return model.Program{}, ErrNotFound
	}
	return p, nil
}

// ListPrograms filters programs and orders them newest first.
func (s *TreapStore) ListPrograms(ctx context.Context, f ProgramFilter) ([]model.Program, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	s.mu.RLock()
	out := make([]model.Program, 0, len(s.programs))
	for _, p := range s.programs {
		if f.Gender != "" && p.Gender != f.Gender {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()

	sortPrograms(out)
	return out, nil
}

// Count reports programs per gender, results and registered teams.
func (s *TreapStore) Count(ctx context.Context) (Counts, error) {
	if err := ctx.Err(); err != nil {
		return Counts{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	c := Counts{
		ProgramsByGender: make(map[model.Gender]int, len(model.Genders())),
		Results:          len(s.results),
		Teams:            len(s.teams),
	}
	for _, p := range s.programs {
		c.ProgramsByGender[p.Gender]++
	}
	return c, nil
}

func sortPrograms(ps []model.Program) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.After(ps[j].CreatedAt)
		}
		return ps[i].ID > ps[j].ID
	})
}

// assignRanks gives equal totals the same rank; the next distinct total
// takes the following rank. Entries must already be in leaderboard order.
func assignRanks(entries []types.Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Total != entries[i-1].Total {
			rank++
		}
		entries[i].Rank = rank
	}
}
