// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/okian/festboard/internal/adapters/http/auth"
	"github.com/okian/festboard/internal/domain/dedupe"
	"github.com/okian/festboard/internal/domain/types"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	RankDependencies
	StatsDependencies
	TeamsDependencies
	ProgramsDependencies
	TotalsDependencies
	BoardDependencies
}

// Authenticator issues admin tokens and guards admin routes.
type Authenticator interface {
	Login(ctx context.Context, client, username, password string) (auth.Token, error)
	Middleware(next http.HandlerFunc) http.HandlerFunc
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	authn              Authenticator
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	teamsHandler       *TeamsHandler
	programsHandler    *ProgramsHandler
	totalsHandler      *TotalsHandler
	boardHandler       *BoardHandler
	loginHandler       *LoginHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps
// the leaderboard limit parameter.
func NewServer(deps Dependencies, authn Authenticator, maxLimit int) *Server {
	return &Server{
		authn:              authn,
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		teamsHandler:       NewTeamsHandler(deps),
		programsHandler:    NewProgramsHandler(deps, dedupe.NewInMemoryDeduper()),
		totalsHandler:      NewTotalsHandler(deps),
		boardHandler:       NewBoardHandler(deps),
		loginHandler:       NewLoginHandler(authn),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /standings", MetricsMiddleware(s.leaderboardHandler.HandleGetStandings, "standings"))
	mux.HandleFunc("GET /rank/{team}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("GET /teams", MetricsMiddleware(s.teamsHandler.HandleListTeams, "teams"))
	mux.HandleFunc("GET /programs", MetricsMiddleware(s.programsHandler.HandleListPrograms, "programs"))
	mux.HandleFunc("GET /programs/{id}/result", MetricsMiddleware(s.programsHandler.HandleGetResult, "program_result"))
	mux.HandleFunc("GET /board", MetricsMiddleware(s.boardHandler.HandleGetBoard, "board"))
	mux.HandleFunc("GET /board/rotation", MetricsMiddleware(s.boardHandler.HandleGetRotation, "board_rotation"))
	mux.HandleFunc("POST /auth/login", MetricsMiddleware(s.loginHandler.HandleLogin, "login"))

	admin := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return MetricsMiddleware(s.authn.Middleware(h), endpoint)
	}
	mux.HandleFunc("POST /teams", admin(s.teamsHandler.HandleRegisterTeam, "teams_create"))
	mux.HandleFunc("POST /programs", admin(s.programsHandler.HandleCreateProgram, "programs_create"))
	mux.HandleFunc("PUT /programs/{id}", admin(s.programsHandler.HandleUpdateProgram, "programs_update"))
	mux.HandleFunc("POST /programs/{id}/results", admin(s.programsHandler.HandleSaveResult, "results_create"))
	mux.HandleFunc("POST /totals/recompute", admin(s.totalsHandler.HandleRecompute, "recompute"))
	mux.HandleFunc("PUT /totals/{team}", admin(s.totalsHandler.HandleOverride, "override"))
	mux.HandleFunc("DELETE /totals/{team}/override", admin(s.totalsHandler.HandleClearOverride, "override_clear"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status from the error kind.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode body: trailing data")
	}
	return nil
}

// clientAddr identifies the caller for throttling.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
