package api

import (
	"context"
	"net/http"

	service "github.com/okian/festboard/internal/app"
	"github.com/okian/festboard/internal/domain/dedupe"
	"github.com/okian/festboard/internal/domain/model"
)

// IdempotencyHeader lets a client retry a result submission safely.
const IdempotencyHeader = "Idempotency-Key"

// ProgramsDependencies defines the interface for program and result operations.
type ProgramsDependencies interface {
	Programs(ctx context.Context, q service.ProgramQuery) ([]service.ProgramItem, error)
	CreateProgram(ctx context.Context, in service.ProgramInput) (model.Program, error)
	UpdateProgram(ctx context.Context, id string, in service.ProgramInput) (model.Program, error)
	LatestResult(ctx context.Context, programID string) (model.Result, error)
	SaveResult(ctx context.Context, programID string, in service.ResultInput) (model.Result, service.Report, error)
}

// ProgramsHandler handles program and result requests.
type ProgramsHandler struct {
	deps ProgramsDependencies
	seen dedupe.Deduper
}

// NewProgramsHandler creates a new programs handler. A nil seen disables
// idempotency keys.
func NewProgramsHandler(deps ProgramsDependencies, seen dedupe.Deduper) *ProgramsHandler {
	return &ProgramsHandler{deps: deps, seen: seen}
}

// reportResponse is the wire form of a reconciliation report.
type reportResponse struct {
	Written int      `json:"written"`
	Skipped int      `json:"skipped"`
	Failed  []string `json:"failed"`
}

func toReportResponse(r service.Report) reportResponse {
	return reportResponse{Written: r.Written, Skipped: r.Skipped, Failed: r.FailedTeams()}
}

type saveResultResponse struct {
	Result     model.Result   `json:"result"`
	Report     reportResponse `json:"report"`
	Reconciled bool           `json:"reconciled"`
}

// HandleListPrograms handles GET /programs?gender=&category=&q=.
func (h *ProgramsHandler) HandleListPrograms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.deps.Programs(r.Context(), service.ProgramQuery{
		Gender:   q.Get("gender"),
		Category: q.Get("category"),
		Query:    q.Get("q"),
	})
	if err != nil {
		writeFailure(w, Wrap("api.list_programs", err))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleCreateProgram handles POST /programs.
func (h *ProgramsHandler) HandleCreateProgram(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_program"
	var in service.ProgramInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.CreateProgram(r.Context(), in)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleUpdateProgram handles PUT /programs/{id}.
func (h *ProgramsHandler) HandleUpdateProgram(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_program"
	var in service.ProgramInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.UpdateProgram(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGetResult handles GET /programs/{id}/result: the result that counts.
func (h *ProgramsHandler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.LatestResult(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_result", err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSaveResult handles POST /programs/{id}/results. A result that was
// stored but not fully reconciled is still reported as created, with
// reconciled set to false and the failed teams listed.
//
// A request carrying an Idempotency-Key already used for the same program
// is refused with 409 and stores nothing.
func (h *ProgramsHandler) HandleSaveResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_result"
	var in service.ResultInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	programID := r.PathValue("id")
	key := ""
	if k := r.Header.Get(IdempotencyHeader); k != "" && h.seen != nil {
		key = programID + ":" + k
		if h.seen.SeenAndRecord(r.Context(), key) {
			writeFailure(w, NewKind(op, ErrDuplicate))
			return
		}
	}

	res, report, err := h.deps.SaveResult(r.Context(), programID, in)
	if err != nil && res.ID == "" {
		if key != "" {
			h.seen.Unrecord(r.Context(), key)
		}
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, saveResultResponse{
		Result:     res,
		Report:     toReportResponse(report),
		Reconciled: err == nil,
	})
}
