package dispatch

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safecity/dispatch/internal/report"
	"github.com/safecity/dispatch/internal/shared/auth"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/types"
)

// Handler provides HTTP handlers for the dispatch workflows
type Handler struct {
	coordinator *Coordinator
	verifier    *Verifier
}

// NewHandler creates a new dispatch handler
func NewHandler(coordinator *Coordinator, verifier *Verifier) *Handler {
	return &Handler{coordinator: coordinator, verifier: verifier}
}

// Register attaches the dispatch endpoints onto the report and officer
// routers. The workflows live on the resources they act on.
func (h *Handler) Register(reports, officers chi.Router) {
	reports.With(auth.RequireAdmin).Post("/{reportID}/verify", h.VerifyReport)
	reports.With(auth.RequireAdmin).Post("/{reportID}/assign", h.AssignOfficer)
	officers.With(auth.RequireAdmin).Post("/{officerID}/release", h.ReleaseOfficer)
}

// VerifyReport records an approve or reject decision
func (h *Handler) VerifyReport(w http.ResponseWriter, r *http.Request) {
	reportID, err := types.ParseID(chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid report ID"))
		return
	}

	var req struct {
		Decision report.VerificationStatus `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	rep, err := h.verifier.Verify(r.Context(), auth.GetUser(r.Context()), reportID, req.Decision)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// AssignOfficer links an officer to a report
func (h *Handler) AssignOfficer(w http.ResponseWriter, r *http.Request) {
	reportID, err := types.ParseID(chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid report ID"))
		return
	}

	var req struct {
		OfficerID types.ID `json:"officer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if req.OfficerID.IsZero() {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"officer_id": "officer_id is required",
		}))
		return
	}

	assignment, err := h.coordinator.Assign(r.Context(), auth.GetUser(r.Context()), reportID, req.OfficerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assignment)
}

// ReleaseOfficer returns an officer to available
func (h *Handler) ReleaseOfficer(w http.ResponseWriter, r *http.Request) {
	officerID, err := types.ParseID(chi.URLParam(r, "officerID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid officer ID"))
		return
	}

	assignment, err := h.coordinator.Release(r.Context(), auth.GetUser(r.Context()), officerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assignment)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
