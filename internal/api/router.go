package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/api/recovery"
	"github.com/carebridge/carebridge/internal/auth"
	"github.com/carebridge/carebridge/internal/fanout"
	"github.com/carebridge/carebridge/internal/reconcile"
	"github.com/carebridge/carebridge/internal/services"
	"github.com/carebridge/carebridge/internal/store"
)

// NewRouter wires every HTTP route of the care service. A nil verifier
// disables webhook signature checks, for local development and tests.
func NewRouter(st store.Store, rec *reconcile.Reconciler, fo *fanout.Coordinator, verifier *auth.TwilioVerifier, log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	userSvc := services.NewUserService(st)
	profileSvc := services.NewProfileService(st, fo, log)
	taskSvc := services.NewTaskService(st, fo, log)
	historySvc := services.NewHistoryService(st)

	healthHandler := NewHealthHandler()
	userHandler := NewUserHandler(userSvc)
	profileHandler := NewProfileHandler(profileSvc)
	taskHandler := NewTaskHandler(taskSvc)
	historyHandler := NewHistoryHandler(historySvc)
	webhookHandler := NewWebhookHandler(rec, log)
	eventsHandler := NewEventsHandler(fo, log)

	// Provider callback, signature-checked when configured
	router.Handle("/sms-webhook", auth.Middleware(verifier)(http.HandlerFunc(webhookHandler.HandleInboundSMS))).Methods("POST")

	// Health endpoint
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	// User endpoints
	router.HandleFunc("/api/users/{userId}", userHandler.UpsertUser).Methods("PUT")
	router.HandleFunc("/api/users/{userId}", userHandler.GetUser).Methods("GET")

	// Profile endpoints
	router.HandleFunc("/api/users/{userId}/profiles", profileHandler.CreateProfile).Methods("POST")
	router.HandleFunc("/api/users/{userId}/profiles", profileHandler.ListProfiles).Methods("GET")
	router.HandleFunc("/api/users/{userId}/profiles/{profileId}", profileHandler.GetProfile).Methods("GET")
	router.HandleFunc("/api/users/{userId}/profiles/{profileId}", profileHandler.DeleteProfile).Methods("DELETE")

	// Task endpoints
	router.HandleFunc("/api/users/{userId}/profiles/{profileId}/tasks", taskHandler.CreateTask).Methods("POST")
	router.HandleFunc("/api/users/{userId}/tasks", taskHandler.ListTasks).Methods("GET")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId}", taskHandler.GetTask).Methods("GET")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId}/status", taskHandler.SetTaskStatus).Methods("PATCH")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId}", taskHandler.DeleteTask).Methods("DELETE")

	// History endpoints
	router.HandleFunc("/api/users/{userId}/profiles/{profileId}/messages", historyHandler.ListMessages).Methods("GET")
	router.HandleFunc("/api/users/{userId}/gallery", historyHandler.ListGalleryEvents).Methods("GET")

	// Live updates
	router.HandleFunc("/api/users/{userId}/events", eventsHandler.StreamEvents).Methods("GET")
	router.HandleFunc("/api/users/{userId}/resync", eventsHandler.Resync).Methods("POST")

	return router
}
