package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/api/respond"
	"github.com/carebridge/carebridge/internal/fanout"
)

// EventsHandler streams change events to caregiver clients over
// Server-Sent Events, and exposes the resync endpoint clients call after
// a dropped stream.
type EventsHandler struct {
	fanout *fanout.Coordinator
	log    zerolog.Logger
}

func NewEventsHandler(fo *fanout.Coordinator, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{fanout: fo, log: log}
}

// StreamEvents GET /api/users/{userId}/events
//
// Events for other users are filtered out, not withheld at the bus; the
// bus itself is unscoped.
func (h *EventsHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.WriteInternalError(w, "streaming unsupported")
		return
	}

	ch, cancel := h.fanout.Bus().Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			if evt.UserID != userID {
				continue
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				h.log.Error().Err(err).Msg("event marshal failed")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Resync POST /api/users/{userId}/resync
//
// Republishes the user's full snapshot through the bus so a freshly
// reconnected stream converges without client-side diffing.
func (h *EventsHandler) Resync(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := h.fanout.Resync(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "resynced"})
}
