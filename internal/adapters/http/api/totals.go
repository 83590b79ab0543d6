package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	service "github.com/okian/festboard/internal/app"
)

// TotalsDependencies defines the interface for total maintenance.
type TotalsDependencies interface {
	Recompute(ctx context.Context) (service.Report, error)
	ManualOverride(ctx context.Context, team, raw string) error
	ClearOverride(ctx context.Context, team string) error
}

// TotalsHandler handles recompute and override requests.
type TotalsHandler struct {
	deps TotalsDependencies
}

// NewTotalsHandler creates a new totals handler.
func NewTotalsHandler(deps TotalsDependencies) *TotalsHandler {
	return &TotalsHandler{deps: deps}
}

// overrideRequest accepts the total as a JSON string or number.
type overrideRequest struct {
	Total json.RawMessage `json:"total"`
}

func (o overrideRequest) raw() string {
	var s string
	if err := json.Unmarshal(o.Total, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(o.Total))
}

type recomputeResponse struct {
	Report reportResponse `json:"report"`
}

// HandleRecompute handles POST /totals/recompute.
func (h *TotalsHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Recompute(r.Context())
	if err != nil {
		writeFailure(w, Wrap("api.recompute", err))
		return
	}
	writeJSON(w, http.StatusOK, recomputeResponse{Report: toReportResponse(report)})
}

// HandleOverride handles PUT /totals/{team}.
func (h *TotalsHandler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	const op = "api.override_total"
	var req overrideRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	team := r.PathValue("team")
	if err := h.deps.ManualOverride(r.Context(), team, req.raw()); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearOverride handles DELETE /totals/{team}/override.
func (h *TotalsHandler) HandleClearOverride(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ClearOverride(r.Context(), r.PathValue("team")); err != nil {
		writeFailure(w, Wrap("api.clear_override", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
