package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carebridge/carebridge/internal/api/respond"
	"github.com/carebridge/carebridge/internal/api/validate"
	"github.com/carebridge/carebridge/internal/services"
)

// ProfileHandler is a thin HTTP transport over ProfileService.
type ProfileHandler struct {
	svc *services.ProfileService
}

func NewProfileHandler(svc *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// CreateProfile POST /api/users/{userId}/profiles
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var req struct {
		Name         string `json:"name"`
		PhoneNumber  string `json:"phoneNumber"`
		Relationship string `json:"relationship"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Name(req.Name); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.CreateProfile(r.Context(), userID, req.Name, req.PhoneNumber, req.Relationship)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// ListProfiles GET /api/users/{userId}/profiles
func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListProfiles(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"profiles": out, "count": len(out)})
}

// GetProfile GET /api/users/{userId}/profiles/{profileId}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.svc.GetProfile(r.Context(), vars["userId"], vars["profileId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// DeleteProfile DELETE /api/users/{userId}/profiles/{profileId}
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.DeleteProfile(r.Context(), vars["userId"], vars["profileId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
