package api

import (
	"net/http"

	"github.com/okian/matchreport/internal/domain/model"
)

// ScoreHandler summarizes reports that are not stored.
type ScoreHandler struct {
	deps Dependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps Dependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleScore handles POST /score.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"

	var report model.Report
	if err := decodeBody(op, r, &report); err != nil {
		writeFailure(w, err)
		return
	}
	view, err := h.deps.Score(r.Context(), report, hintFromQuery(r))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}
