package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/carebridge/carebridge/internal/api/respond"
	"github.com/carebridge/carebridge/internal/services"
)

// HistoryHandler serves the message audit trail and the gallery feed.
type HistoryHandler struct {
	svc *services.HistoryService
}

func NewHistoryHandler(svc *services.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

func queryLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// ListMessages GET /api/users/{userId}/profiles/{profileId}/messages
func (h *HistoryHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.svc.ListMessages(r.Context(), vars["userId"], vars["profileId"], queryLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"messages": out, "count": len(out)})
}

// ListGalleryEvents GET /api/users/{userId}/gallery
func (h *HistoryHandler) ListGalleryEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.svc.ListGalleryEvents(r.Context(), vars["userId"], queryLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": out, "count": len(out)})
}
