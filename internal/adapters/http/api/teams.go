package api

import (
	"context"
	"net/http"

	"github.com/okian/festboard/internal/domain/model"
)

// TeamsDependencies defines the interface for the team registry.
type TeamsDependencies interface {
	Teams(ctx context.Context) ([]model.Team, error)
	RegisterTeam(ctx context.Context, name string) (model.Team, error)
}

// TeamsHandler handles team registry requests.
type TeamsHandler struct {
	deps TeamsDependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamsDependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

type teamRequest struct {
	Name string `json:"name"`
}

// HandleListTeams handles GET /teams.
func (h *TeamsHandler) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.deps.Teams(r.Context())
	if err != nil {
		writeFailure(w, Wrap("api.list_teams", err))
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// HandleRegisterTeam handles POST /teams.
func (h *TeamsHandler) HandleRegisterTeam(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_team"
	var req teamRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	team, err := h.deps.RegisterTeam(r.Context(), req.Name)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, team)
}
