package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carebridge/carebridge/internal/api/respond"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/services"
)

// TaskHandler is a thin HTTP transport over TaskService.
type TaskHandler struct {
	svc *services.TaskService
}

func NewTaskHandler(svc *services.TaskService) *TaskHandler { return &TaskHandler{svc: svc} }

// CreateTask POST /api/users/{userId}/profiles/{profileId}/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		Title    string         `json:"title"`
		Schedule model.Schedule `json:"schedule"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	out, err := h.svc.CreateTask(r.Context(), vars["userId"], vars["profileId"], req.Title, req.Schedule)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// ListTasks GET /api/users/{userId}/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListTasks(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"tasks": out, "count": len(out)})
}

// GetTask GET /api/users/{userId}/tasks/{taskId}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.svc.GetTask(r.Context(), vars["userId"], vars["taskId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// SetTaskStatus PATCH /api/users/{userId}/tasks/{taskId}/status
func (h *TaskHandler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		Status model.TaskStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	out, err := h.svc.SetStatus(r.Context(), vars["userId"], vars["taskId"], req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// DeleteTask DELETE /api/users/{userId}/tasks/{taskId}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.DeleteTask(r.Context(), vars["userId"], vars["taskId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
