package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/festboard/internal/domain/model"
	"github.com/okian/festboard/pkg/metrics"
)

type teamRow struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	Name      string    `bun:"name,pk"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type programRow struct {
	bun.BaseModel `bun:"table:programs,alias:p"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Category  string    `bun:"category,notnull"`
	Gender    string    `bun:"gender,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ID        string    `bun:"id,pk"`
	ProgramID string    `bun:"program_id,notnull"`
	Team1     string    `bun:"team1,notnull"`
	Score1    string    `bun:"score1,notnull"`
	Team2     string    `bun:"team2,notnull"`
	Score2    string    `bun:"score2,notnull"`
	Team3     string    `bun:"team3,notnull"`
	Score3    string    `bun:"score3,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type teamTotalRow struct {
	bun.BaseModel `bun:"table:team_totals,alias:tt"`

	Team       string    `bun:"team,pk"`
	Total      int64     `bun:"total,notnull"`
	Overridden bool      `bun:"overridden,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

const (
	upsertTotalSQL = `INSERT INTO team_totals (team, total, overridden, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (team) DO UPDATE SET
	total = EXCLUDED.total,
	overridden = EXCLUDED.overridden,
	updated_at = EXCLUDED.updated_at`

	keepOverrideClause = `
WHERE team_totals.overridden = FALSE`
)

// BunStore is a SQL-backed Store for Postgres or SQLite.
type BunStore struct {
	db *bun.DB
}

var _ Store = (*BunStore)(nil)

// OpenPostgres connects to Postgres at dsn and creates missing tables.
func OpenPostgres(ctx context.Context, dsn string, opts ...BunOption) (*BunStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return newBunStore(ctx, bun.NewDB(sqldb, pgdialect.New()), opts)
}

// OpenSQLite opens the SQLite database at path and creates missing tables.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...BunOption) (*BunStore, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("open sqlite", err)
	}
	// SQLite allows a single writer. A single long-lived connection also
	// keeps a ":memory:" database alive for the life of the store.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)
	return newBunStore(ctx, bun.NewDB(sqldb, sqlitedialect.New()), opts)
}

func newBunStore(ctx context.Context, db *bun.DB, opts []BunOption) (*BunStore, error) {
	var cfg bunConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.debug {
		db.AddQueryHook(cfg.hook())
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, unavailable("ping", err)
	}
	s := &BunStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BunStore) createTables(ctx context.Context) error {
	tables := []interface{}{
		(*teamRow)(nil),
		(*programRow)(nil),
		(*resultRow)(nil),
		(*teamTotalRow)(nil),
	}
	for _, m := range tables {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return unavailable(fmt.Sprintf("creating table for %T", m), err)
		}
	}

	_, err := s.db.NewCreateIndex().
		Model((*resultRow)(nil)).
		Index("results_program_id_idx").
		Column("program_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return unavailable("creating results index", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BunStore) Close() error {
	return s.db.Close()
}

func unavailable(op string, err error) error {
	metrics.RecordErrorByComponent("repository", "unavailable")
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// ListResults returns every stored result.
func (s *BunStore) ListResults(ctx context.Context) ([]model.Result, error) {
	defer observeQuery(time.Now())

	var rows []resultRow
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, unavailable("list results", err)
	}
	out := make([]model.Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// InsertResult appends r. The program must exist.
func (s *BunStore) InsertResult(ctx context.Context, r model.Result) error {
	defer observeUpdate(time.Now())

	if _, err := s.GetProgram(ctx, r.ProgramID); err != nil {
		return err
	}
	row := resultFromModel(r)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return unavailable("insert result", err)
	}
	return nil
}

// ListTeams returns the registry ordered by name.
func (s *BunStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	defer observeQuery(time.Now())

	var rows []teamRow
	if err := s.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, unavailable("list teams", err)
	}
	out := make([]model.Team, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Team{Name: r.Name, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

// EnsureTeam registers name once.
func (s *BunStore) EnsureTeam(ctx context.Context, name string) error {
	defer observeUpdate(time.Now())

	row := &teamRow{Name: name, CreatedAt: time.Now().UTC()}
	if _, err := s.db.NewInsert().Model(row).On("CONFLICT (name) DO NOTHING").Exec(ctx); err != nil {
		return unavailable("ensure team", err)
	}
	return nil
}

// GetTeamTotal returns the persisted total for team.
func (s *BunStore) GetTeamTotal(ctx context.Context, team string) (model.TeamTotal, error) {
	defer observeQuery(time.Now())

	var row teamTotalRow
	err := s.db.NewSelect().Model(&row).Where("team = ?", team).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.TeamTotal{}, ErrNotFound
	}
	if err != nil {
		return model.TeamTotal{}, unavailable("get team total", err)
	}
	return row.toModel(), nil
}

// UpsertTeamTotal writes t in a single INSERT ... ON CONFLICT statement so
// concurrent writers for the same new team produce exactly one row.
func (s *BunStore) UpsertTeamTotal(ctx context.Context, t model.TeamTotal, mode UpsertMode) error {
	defer observeUpdate(time.Now())

	query := upsertTotalSQL
	if mode == UpsertKeepOverride {
		query += keepOverrideClause
	}
	_, err := s.db.ExecContext(ctx, query, t.Team, t.Total, t.Overridden, t.UpdatedAt.UTC())
	if err != nil {
		return unavailable("upsert team total", err)
	}
	return nil
}

// ListTeamTotals returns every row in leaderboard order.
func (s *BunStore) ListTeamTotals(ctx context.Context) ([]model.TeamTotal, error) {
	defer observeQuery(time.Now())

	var rows []teamTotalRow
	err := s.db.NewSelect().Model(&rows).OrderExpr("total DESC, team ASC").Scan(ctx)
	if err != nil {
		return nil, unavailable("list team totals", err)
	}
	out := make([]model.TeamTotal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// CreateProgram stores p. The id must be unused.
func (s *BunStore) CreateProgram(ctx context.Context, p model.Program) error {
	defer observeUpdate(time.Now())

	row := programFromModel(p)
	res, err := s.db.NewInsert().Model(&row).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return unavailable("create program", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicate
	}
	return nil
}

// UpdateProgram replaces name, category and gender of an existing program.
func (s *BunStore) UpdateProgram(ctx context.Context, p model.Program) error {
	defer observeUpdate(time.Now())

	row := programFromModel(p)
	res, err := s.db.NewUpdate().
		Model(&row).
		Column("name", "category", "gender").
		WherePK().
		Exec(ctx)
	if err != nil {
		return unavailable("update program", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetProgram returns the program with id.
func (s *BunStore) GetProgram(ctx context.Context, id string) (model.Program, error) {
	defer observeQuery(time.Now())

	var row programRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Program{}, ErrNotFound
	}
	if err != nil {
		return model.Program{}, unavailable("get program", err)
	}
	return row.toModel(), nil
}

// ListPrograms filters programs and orders them newest first.
func (s *BunStore) ListPrograms(ctx context.Context, f ProgramFilter) ([]model.Program, error) {
	defer observeQuery(time.Now())

	var rows []programRow
	q := s.db.NewSelect().Model(&rows)
	if f.Gender != "" {
		q = q.Where("gender = ?", string(f.Gender))
	}
	if f.Category != "" {
		q = q.Where("category = ?", string(f.Category))
	}
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+term+"%")
	}
	if err := q.OrderExpr("created_at DESC, id DESC").Scan(ctx); err != nil {
		return nil, unavailable("list programs", err)
	}

	out := make([]model.Program, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Count reports programs per gender, results and registered teams.
func (s *BunStore) Count(ctx context.Context) (Counts, error) {
	defer observeQuery(time.Now())

	var groups []struct {
		Gender string `bun:"gender"`
		N      int    `bun:"n"`
	}
	err := s.db.NewSelect().
		Model((*programRow)(nil)).
		Column("gender").
		ColumnExpr("COUNT(*) AS n").
		Group("gender").
		Scan(ctx, &groups)
	if err != nil {
		return Counts{}, unavailable("count programs", err)
	}

	results, err := s.db.NewSelect().Model((*resultRow)(nil)).Count(ctx)
	if err != nil {
		return Counts{}, unavailable("count results", err)
	}
	teams, err := s.db.NewSelect().Model((*teamRow)(nil)).Count(ctx)
	if err != nil {
		return Counts{}, unavailable("count teams", err)
	}

	c := Counts{
		ProgramsByGender: make(map[model.Gender]int, len(groups)),
		Results:          results,
		Teams:            teams,
	}
	for _, g := range groups {
		c.ProgramsByGender[model.Gender(g.Gender)] = g.N
	}
	return c, nil
}

func (r resultRow) toModel() model.Result {
	return model.Result{
		ID:        r.ID,
		ProgramID: r.ProgramID,
		Slots: [model.SlotCount]model.Slot{
			{Team: r.Team1, Score: r.Score1},
			{Team: r.Team2, Score: r.Score2},
			{Team: r.Team3, Score: r.Score3},
		},
		CreatedAt: r.CreatedAt,
	}
}

func resultFromModel(r model.Result) resultRow {
	return resultRow{
		ID:        r.ID,
		ProgramID: r.ProgramID,
		Team1:     r.Slots[0].Team,
		Score1:    r.Slots[0].Score,
		Team2:     r.Slots[1].Team,
		Score2:    r.Slots[1].Score,
		Team3:     r.Slots[2].Team,
		Score3:    r.Slots[2].Score,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (r programRow) toModel() model.Program {
	return model.Program{
		ID:        r.ID,
		Name:      r.Name,
		Category:  model.Category(r.Category),
		Gender:    model.Gender(r.Gender),
		CreatedAt: r.CreatedAt,
	}
}

func programFromModel(p model.Program) programRow {
	return programRow{
		ID:        p.ID,
		Name:      p.Name,
		Category:  string(p.Category),
		Gender:    string(p.Gender),
		CreatedAt: p.CreatedAt.UTC(),
	}
}

func (r teamTotalRow) toModel() model.TeamTotal {
	return model.TeamTotal{
		Team:       r.Team,
		Total:      r.Total,
		Overridden: r.Overridden,
		UpdatedAt:  r.UpdatedAt,
	}
}
