package api

import (
	"context"
	"net/http"

	service "github.com/okian/festboard/internal/app"
)

// StatsDependencies defines the interface for the dashboard summary.
type StatsDependencies interface {
	Stats(ctx context.Context) (service.Stats, error)
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps StatsDependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps StatsDependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Stats(r.Context())
	if err != nil {
		writeFailure(w, Wrap("api.get_stats", err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
