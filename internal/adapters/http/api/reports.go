package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/matchreport/internal/domain/access"
	"github.com/okian/matchreport/internal/domain/model"
)

// ReportsHandler serves the stored report resources.
type ReportsHandler struct {
	deps Dependencies
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps Dependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps}
}

type listResponse struct {
	Reports any `json:"reports"`
	Count   int `json:"count"`
}

type recalcResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// requireRole rejects callers whose staff role may not mutate reports.
func (h *ReportsHandler) requireRole(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := access.Require(r.Context(), h.deps, r.Header.Get(RoleHeader)); err != nil {
			writeFailure(w, Wrap("api.auth", err))
			return
		}
		next(w, r)
	}
}

// HandleList handles GET /reports.
func (h *ReportsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_reports"

	limit, err := limitFromQuery(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	headers, err := h.deps.ListReports(r.Context(), limit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Reports: headers, Count: len(headers)})
}

// HandleCreate handles POST /reports.
func (h *ReportsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_report"

	var report model.Report
	if err := decodeBody(op, r, &report); err != nil {
		writeFailure(w, err)
		return
	}
	// Identity and timestamps are assigned by the store.
	report.ID = ""
	view, err := h.deps.CreateReport(r.Context(), report)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/reports/"+view.ID)
	writeJSON(w, http.StatusCreated, view)
}

// HandleGet handles GET /reports/{id}.
func (h *ReportsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_report"

	view, err := h.deps.GetReport(r.Context(), mux.Vars(r)["id"], hintFromQuery(r))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleUpdate handles PUT /reports/{id}. Only header fields change;
// actions and stats have their own resources.
func (h *ReportsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_report"

	var report model.Report
	if err := decodeBody(op, r, &report); err != nil {
		writeFailure(w, err)
		return
	}
	report.ID = mux.Vars(r)["id"]
	view, err := h.deps.UpdateReport(r.Context(), report)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleDelete handles DELETE /reports/{id}.
func (h *ReportsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteReport(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeFailure(w, Wrap("api.delete_report", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReplaceActions handles PUT /reports/{id}/actions with a JSON array body.
func (h *ReportsHandler) HandleReplaceActions(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_actions"

	var actions []model.Action
	if err := decodeBody(op, r, &actions); err != nil {
		writeFailure(w, err)
		return
	}
	view, err := h.deps.ReplaceActions(r.Context(), mux.Vars(r)["id"], actions)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleReplaceStats handles PUT /reports/{id}/stats with a JSON object body.
func (h *ReportsHandler) HandleReplaceStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_stats"

	var bag model.StatBag
	if err := decodeBody(op, r, &bag); err != nil {
		writeFailure(w, err)
		return
	}
	view, err := h.deps.ReplaceStats(r.Context(), mux.Vars(r)["id"], bag)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleRecalc handles POST /reports/{id}/recalc.
func (h *ReportsHandler) HandleRecalc(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.deps.Recalculate(r.Context(), id); err != nil {
		writeFailure(w, Wrap("api.recalc", err))
		return
	}
	writeJSON(w, http.StatusAccepted, recalcResponse{ID: id, Status: "queued"})
}

