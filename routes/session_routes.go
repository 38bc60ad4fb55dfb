package routes

import (
	"studysync/controllers"
	"studysync/services"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

// RegisterSessionRoutes sets up study session routes under /api/sessions
func RegisterSessionRoutes(r *mux.Router, studySessions *services.StudySessionService, store sessions.Store, log zerolog.Logger) {
	controller := controllers.NewSessionController(studySessions, log)

	sessionRouter := r.PathPrefix("/api/sessions").Subrouter()
	sessionRouter.Use(RequireSession(store))

	sessionRouter.HandleFunc("/create", controller.Create).Methods("POST")
	sessionRouter.HandleFunc("/user/{userId:[0-9]+}", controller.ForUser).Methods("GET")
	sessionRouter.HandleFunc("/{sessionId:[0-9]+}/join", controller.Join).Methods("POST")
}
