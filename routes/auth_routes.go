package routes

import (
	"net/http"

	"studysync/controllers"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

// RegisterAuthRoutes sets up /api/auth and the OAuth redirect endpoints
func RegisterAuthRoutes(r *mux.Router, controller *controllers.AuthController, store sessions.Store) {
	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/user", controller.CurrentUser).Methods("GET")
	authRouter.HandleFunc("/email-login", controller.EmailLogin).Methods("POST")
	authRouter.HandleFunc("/email-signup", controller.EmailSignup).Methods("POST")
	authRouter.HandleFunc("/logout", controller.Logout).Methods("POST")

	authRouter.Handle("/complete-profile", RequireSession(store)(http.HandlerFunc(controller.CompleteProfile))).Methods("POST")

	r.HandleFunc("/oauth2/authorization/{provider}", controller.OAuthAuthorize).Methods("GET")
	r.HandleFunc("/login/oauth2/code/{provider}", controller.OAuthCallback).Methods("GET")
}
