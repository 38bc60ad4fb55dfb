package routes

import (
	"studysync/controllers"
	"studysync/services"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

// RegisterMatchRoutes sets up routes for matching under /api/matching
func RegisterMatchRoutes(r *mux.Router, matching *services.MatchingService, store sessions.Store, log zerolog.Logger) {
	controller := controllers.NewMatchController(matching, log)

	matchRouter := r.PathPrefix("/api/matching").Subrouter()
	matchRouter.Use(RequireSession(store))

	matchRouter.HandleFunc("/potential-matches/{userId:[0-9]+}", controller.PotentialMatches).Methods("GET")
	matchRouter.HandleFunc("/matches/{userId:[0-9]+}", controller.Matches).Methods("GET")
	matchRouter.HandleFunc("/swipe", controller.Swipe).Methods("POST")
	matchRouter.HandleFunc("/match/{matchId:[0-9]+}", controller.MatchDetail).Methods("GET")
	matchRouter.HandleFunc("/match/{matchId:[0-9]+}/action", controller.MatchAction).Methods("POST")
}
