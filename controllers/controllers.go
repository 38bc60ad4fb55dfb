package controllers

import (
	"net/http"

	"studysync/helpers"
)

// HealthCheckHandler provides a basic health check
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// WelcomeHandler provides a welcome message
func WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Welcome to the StudySync API."})
}

// NotFoundHandler answers unknown routes with the JSON error body
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteError(w, http.StatusNotFound, "Not Found", "No route for "+r.Method+" "+r.URL.Path)
}
