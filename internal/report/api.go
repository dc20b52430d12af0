package report

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safecity/dispatch/internal/shared/auth"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/events"
	"github.com/safecity/dispatch/internal/shared/types"
)

// Handler provides HTTP handlers for the report module
type Handler struct {
	repo *Repository
	bus  events.EventBus
}

// NewHandler creates a new report handler
func NewHandler(repo *Repository, bus events.EventBus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes registers the report routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateReport)
	r.Get("/mine", h.ListMine)
	r.Get("/district/{district}", h.ListByDistrict)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/pending", h.ListPending)
		r.Get("/unassigned", h.ListUnassigned)
		r.Get("/stats", h.GetStats)
	})

	r.Route("/{reportID}", func(r chi.Router) {
		r.Get("/", h.GetReport)
		r.With(auth.RequireAdmin).Patch("/status", h.UpdateStatus)
	})

	return r
}

// CreateReport submits a new crime report. Lifecycle fields from the
// request body are discarded; every report enters the queue pending.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if problems := req.Validate(); len(problems) > 0 {
		writeError(w, errors.Validation("validation failed", problems))
		return
	}

	var userID *types.ID
	if user := auth.GetUser(r.Context()); user != nil {
		userID = &user.ID
	}

	c := New(req, userID)
	if err := h.repo.Create(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, "report.submitted", map[string]any{
		"report_id":  c.ID,
		"crime_type": c.CrimeType,
		"district":   c.District,
		"priority":   c.Priority,
	})

	writeJSON(w, http.StatusCreated, c)
}

// GetReport gets a crime report by ID
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid report ID"))
		return
	}

	c, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// ListMine lists the authenticated user's own reports
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	reports, err := h.repo.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  reports,
		"total": len(reports),
	})
}

// ListPending lists reports awaiting verification with submitter profiles
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	reports, err := h.repo.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  reports,
		"total": len(reports),
	})
}

// ListUnassigned lists approved reports with no officer assigned
func (h *Handler) ListUnassigned(w http.ResponseWriter, r *http.Request) {
	reports, err := h.repo.ListUnassigned(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  reports,
		"total": len(reports),
	})
}

// ListByDistrict lists reports for a district
func (h *Handler) ListByDistrict(w http.ResponseWriter, r *http.Request) {
	district := chi.URLParam(r, "district")
	if district == "" {
		writeError(w, errors.BadRequest("district is required"))
		return
	}

	reports, err := h.repo.ListByDistrict(r.Context(), district)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  reports,
		"total": len(reports),
	})
}

// UpdateStatus progresses a report's lifecycle status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid report ID"))
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if !req.Status.Valid() {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"status": "must be one of pending, investigating, resolved, closed, rejected",
		}))
		return
	}

	c, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, "report.status_changed", map[string]any{
		"report_id": c.ID,
		"status":    c.Status,
	})

	writeJSON(w, http.StatusOK, c)
}

// GetStats returns count aggregates over all reports
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) publish(r *http.Request, eventType string, data map[string]any) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "report", data)
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
