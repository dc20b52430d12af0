package officer

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safecity/dispatch/internal/shared/auth"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/events"
	"github.com/safecity/dispatch/internal/shared/types"
)

// Handler provides HTTP handlers for the officer module
type Handler struct {
	repo *Repository
	bus  events.EventBus
}

// NewHandler creates a new officer handler
func NewHandler(repo *Repository, bus events.EventBus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes registers the officer routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListOfficers)
	r.Get("/available", h.ListAvailable)
	r.With(auth.RequireAdmin).Post("/", h.CreateOfficer)

	r.Route("/{officerID}", func(r chi.Router) {
		r.Get("/", h.GetOfficer)
		r.With(auth.RequireAdmin).Patch("/status", h.UpdateStatus)
		r.With(auth.RequireAdmin).Delete("/", h.DeleteOfficer)
	})

	return r
}

// ListOfficers lists officers, optionally filtered by status or district
func (h *Handler) ListOfficers(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		District: r.URL.Query().Get("district"),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := Status(s)
		if !status.Valid() {
			writeError(w, errors.BadRequest("invalid officer status"))
			return
		}
		filter.Status = &status
	}

	officers, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  officers,
		"total": len(officers),
	})
}

// ListAvailable lists officers that can accept a new assignment
func (h *Handler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	officers, err := h.repo.ListAvailable(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  officers,
		"total": len(officers),
	})
}

// GetOfficer gets an officer by ID
func (h *Handler) GetOfficer(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "officerID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid officer ID"))
		return
	}

	o, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// CreateOfficer registers a new officer
func (h *Handler) CreateOfficer(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if problems := req.Validate(); len(problems) > 0 {
		writeError(w, errors.Validation("validation failed", problems))
		return
	}

	o := New(req)
	if err := h.repo.Create(r.Context(), o); err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, "officer.created", map[string]any{
		"officer_id":   o.ID,
		"badge_number": o.BadgeNumber,
		"unit":         o.Unit,
	})

	writeJSON(w, http.StatusCreated, o)
}

// UpdateStatus changes an officer's availability status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "officerID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid officer ID"))
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if !req.Status.Valid() {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"status": "must be one of available, on_call, busy",
		}))
		return
	}

	// on_call always carries a report link, so it is only ever set by
	// the assignment workflow.
	if req.Status == StatusOnCall {
		writeError(w, errors.InvalidState("on_call is set by assignment, not manually"))
		return
	}

	current, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	// An officer linked to a report stays linked; only the dispatch
	// release path may move them back to available.
	if req.Status == StatusAvailable && current.AssignedReportID != nil {
		writeError(w, errors.InvalidState("officer is assigned to a report and must be released first"))
		return
	}

	o, err := h.repo.UpdateStatus(r.Context(), id, req.Status, req.Location)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, "officer.status_changed", map[string]any{
		"officer_id": o.ID,
		"status":     o.Status,
	})

	writeJSON(w, http.StatusOK, o)
}

// DeleteOfficer removes an officer
func (h *Handler) DeleteOfficer(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "officerID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid officer ID"))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, "officer.deleted", map[string]any{"officer_id": id})

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publish(r *http.Request, eventType string, data map[string]any) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "officer", data)
	if user := auth.GetUser(r.Context()); user != nil {
		event = event.WithActor(user.ID, user.UserType)
	}

	h.bus.Publish(r.Context(), event)
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
