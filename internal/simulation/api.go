package simulation

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/safecity/dispatch/internal/dispatch"
	"github.com/safecity/dispatch/internal/officer"
	"github.com/safecity/dispatch/internal/report"
	"github.com/safecity/dispatch/internal/shared/auth"
	"github.com/safecity/dispatch/internal/shared/errors"
)

// Handler seeds demo data and runs end-to-end dispatch scenarios for
// training environments. Never mounted in production.
type Handler struct {
	reports     *report.Repository
	officers    *officer.Repository
	coordinator *dispatch.Coordinator
	verifier    *dispatch.Verifier
}

// NewHandler creates a new simulation handler
func NewHandler(reports *report.Repository, officers *officer.Repository, coordinator *dispatch.Coordinator, verifier *dispatch.Verifier) *Handler {
	return &Handler{
		reports:     reports,
		officers:    officers,
		coordinator: coordinator,
		verifier:    verifier,
	}
}

// Routes registers the simulation routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(auth.RequireAdmin).Post("/seed", h.Seed)
	r.With(auth.RequireAdmin).Post("/scenario", h.RunScenario)

	return r
}

var demoDistricts = []string{"north", "south", "east", "west", "center"}

var demoCrimes = []struct {
	crimeType   string
	description string
	priority    report.Priority
}{
	{"theft", "Bicycle stolen from apartment courtyard", report.PriorityLow},
	{"burglary", "Forced entry through ground floor window", report.PriorityMedium},
	{"vandalism", "Storefront window smashed overnight", report.PriorityLow},
	{"assault", "Altercation outside a bar, one person injured", report.PriorityHigh},
	{"robbery", "Phone snatched at the tram stop", report.PriorityHigh},
}

// Seed creates a batch of demo officers and pending reports
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Officers int `json:"officers"`
		Reports  int `json:"reports"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.BadRequest("invalid request body"))
			return
		}
	}
	if req.Officers <= 0 {
		req.Officers = 5
	}
	if req.Reports <= 0 {
		req.Reports = 10
	}
	if req.Officers > 100 || req.Reports > 500 {
		writeError(w, errors.BadRequest("batch too large"))
		return
	}

	var officerIDs, reportIDs []string

	for i := 0; i < req.Officers; i++ {
		o := officer.New(officer.CreateRequest{
			Name:             fmt.Sprintf("Demo Officer %d", time.Now().UnixNano()%100000),
			BadgeNumber:      fmt.Sprintf("DEMO-%d", time.Now().UnixNano()),
			Unit:             "patrol",
			AssignedDistrict: demoDistricts[i%len(demoDistricts)],
		})
		if err := h.officers.Create(r.Context(), o); err != nil {
			writeError(w, err)
			return
		}
		officerIDs = append(officerIDs, o.ID.String())
	}

	for i := 0; i < req.Reports; i++ {
		crime := demoCrimes[rand.Intn(len(demoCrimes))]
		c := report.New(report.CreateRequest{
			CrimeType:   crime.crimeType,
			Description: crime.description,
			Location:    fmt.Sprintf("Demo St %d", rand.Intn(200)+1),
			District:    demoDistricts[rand.Intn(len(demoDistricts))],
			DateTime:    time.Now().Add(-time.Duration(rand.Intn(72)) * time.Hour),
			Priority:    crime.priority,
		}, nil)
		if err := h.reports.Create(r.Context(), c); err != nil {
			writeError(w, err)
			return
		}
		reportIDs = append(reportIDs, c.ID.String())
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"officers": officerIDs,
		"reports":  reportIDs,
	})
}

// RunScenario walks one report through the full workflow: submit,
// approve, assign, release. Useful for demoing the change feed.
func (h *Handler) RunScenario(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	o := officer.New(officer.CreateRequest{
		Name:        "Scenario Officer",
		BadgeNumber: fmt.Sprintf("SCN-%d", time.Now().UnixNano()),
		Unit:        "patrol",
	})
	if err := h.officers.Create(r.Context(), o); err != nil {
		writeError(w, err)
		return
	}

	c := report.New(report.CreateRequest{
		CrimeType:   "theft",
		Description: "Scenario: wallet stolen at the market",
		Location:    "Market Sq 1",
		District:    "center",
		DateTime:    time.Now(),
		Priority:    report.PriorityMedium,
	}, nil)
	if err := h.reports.Create(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.verifier.Verify(r.Context(), user, c.ID, report.VerificationApproved); err != nil {
		writeError(w, err)
		return
	}

	assignment, err := h.coordinator.Assign(r.Context(), user, c.ID, o.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	released, err := h.coordinator.Release(r.Context(), user, o.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assigned": assignment,
		"released": released,
	})
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
