package prediction

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/safecity/dispatch/internal/shared/auth"
	"github.com/safecity/dispatch/internal/shared/errors"
)

// Handler proxies the prediction service endpoints
type Handler struct {
	client *Client
}

// NewHandler creates a new prediction handler
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// Routes registers the prediction routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/hotspots", h.GetHotspots)
	r.Get("/forecast", h.GetForecast)
	r.Get("/statistics", h.GetStatistics)
	r.Get("/health", h.GetHealth)
	r.With(auth.RequireAdmin).Post("/train", h.Train)

	return r
}

// GetHotspots returns predicted hotspots for a city
func (h *Handler) GetHotspots(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		writeError(w, errors.BadRequest("city is required"))
		return
	}

	var threshold float64
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			writeError(w, errors.BadRequest("threshold must be between 0 and 1"))
			return
		}
		threshold = parsed
	}

	hotspots, err := h.client.Hotspots(r.Context(), city, threshold, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"city":     city,
		"hotspots": hotspots,
	})
}

// GetForecast returns predicted crime counts for a city
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		writeError(w, errors.BadRequest("city is required"))
		return
	}

	forecasts, err := h.client.Forecast(r.Context(), city, r.URL.Query().Get("window"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"city":        city,
		"predictions": forecasts,
	})
}

// GetStatistics returns model statistics for a city
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		writeError(w, errors.BadRequest("city is required"))
		return
	}

	stats, err := h.client.Statistics(r.Context(), city)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Train starts a model training run
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.BadRequest("invalid request body"))
			return
		}
	}

	result, err := h.client.Train(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

// GetHealth reports whether the prediction service is reachable
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Health(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
