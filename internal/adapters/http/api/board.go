package api

import (
	"context"
	"net/http"

	service "github.com/okian/festboard/internal/app"
)

// BoardDependencies defines the interface for the display board.
type BoardDependencies interface {
	Board(ctx context.Context, gender string) ([]service.Slide, error)
	Rotation() []service.RotationStep
}

// BoardHandler serves display board slides.
type BoardHandler struct {
	deps BoardDependencies
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(deps BoardDependencies) *BoardHandler {
	return &BoardHandler{deps: deps}
}

// HandleGetBoard handles GET /board?gender=boys|girls.
func (h *BoardHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	slides, err := h.deps.Board(r.Context(), r.URL.Query().Get("gender"))
	if err != nil {
		writeFailure(w, Wrap("api.get_board", err))
		return
	}
	if slides == nil {
		slides = []service.Slide{}
	}
	writeJSON(w, http.StatusOK, slides)
}

// HandleGetRotation handles GET /board/rotation.
func (h *BoardHandler) HandleGetRotation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Rotation())
}
