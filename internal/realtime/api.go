package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/types"
)

var streamTables = map[string]bool{
	"crime_reports": true,
	"officers":      true,
}

// Handler serves the change feed over server-sent events
type Handler struct {
	notifier *Notifier
}

// NewHandler creates a new realtime handler
func NewHandler(notifier *Notifier) *Handler {
	return &Handler{notifier: notifier}
}

// Stream streams row changes for one table as SSE. An optional id
// query parameter narrows the feed to a single row. The stream ends
// when the client disconnects.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	if !streamTables[table] {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"table": "must be crime_reports or officers",
		}))
		return
	}

	var filter func(Change) bool
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := types.ParseID(raw)
		if err != nil {
			writeError(w, errors.BadRequest("invalid id filter"))
			return
		}
		filter = func(c Change) bool { return c.ID == id }
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.Internal(fmt.Errorf("streaming unsupported")))
		return
	}

	sub := h.notifier.Subscribe(table, filter)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: ready\ndata: {\"table\":%q}\n\n", table)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case change, ok := <-sub.C:
			if !ok {
				return
			}
			payload, err := json.Marshal(change)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
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
