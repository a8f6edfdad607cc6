package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carebridge/carebridge/internal/api/respond"
	"github.com/carebridge/carebridge/internal/api/validate"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/services"
)

// UserHandler is a thin HTTP transport over UserService.
type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler { return &UserHandler{svc: svc} }

// UpsertUser PUT /api/users/{userId}
func (h *UserHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := validate.UserID(userID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	var req struct {
		Email              string `json:"email"`
		SubscriptionStatus string `json:"subscriptionStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	out, err := h.svc.UpsertUser(r.Context(), &model.User{
		UserID:             userID,
		Email:              req.Email,
		SubscriptionStatus: req.SubscriptionStatus,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// GetUser GET /api/users/{userId}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
