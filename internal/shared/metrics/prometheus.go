package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	reportsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crime_reports_submitted_total",
			Help: "Total number of crime reports submitted",
		},
		[]string{"district", "priority"},
	)

	reportsVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crime_reports_verified_total",
			Help: "Total number of verification decisions",
		},
		[]string{"decision"},
	)

	assignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officer_assignments_total",
			Help: "Total number of officer assignment attempts",
		},
		[]string{"result"},
	)

	assignmentConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "officer_assignment_conflicts_total",
			Help: "Total number of assignments lost to a concurrent claim",
		},
	)

	officersAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "officers_available",
			Help: "Number of officers currently available for assignment",
		},
	)

	realtimeSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Number of active change-feed subscriptions",
		},
		[]string{"table"},
	)

	predictionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_requests_total",
			Help: "Total number of requests to the prediction service",
		},
		[]string{"endpoint", "status"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordReportSubmitted records a citizen report submission
func RecordReportSubmitted(district, priority string) {
	reportsSubmitted.WithLabelValues(district, priority).Inc()
}

// RecordVerification records a verification decision
func RecordVerification(decision string) {
	reportsVerified.WithLabelValues(decision).Inc()
}

// RecordAssignment records an assignment attempt outcome
func RecordAssignment(result string) {
	assignmentsTotal.WithLabelValues(result).Inc()
	if result == "conflict" {
		assignmentConflicts.Inc()
	}
}

// RecordOfficersAvailable records the available officer count
func RecordOfficersAvailable(count int) {
	officersAvailable.Set(float64(count))
}

// RecordSubscribers records the subscriber count for a table feed
func RecordSubscribers(table string, count int) {
	realtimeSubscribers.WithLabelValues(table).Set(float64(count))
}

// RecordPredictionRequest records a call to the prediction service
func RecordPredictionRequest(endpoint, status string) {
	predictionRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
