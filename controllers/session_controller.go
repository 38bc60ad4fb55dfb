package controllers

import (
	"net/http"

	"studysync/helpers"
	"studysync/services"

	"github.com/rs/zerolog"
)

// SessionController handles study session scheduling
type SessionController struct {
	Sessions *services.StudySessionService
	Log      zerolog.Logger
}

// NewSessionController creates a new SessionController instance
func NewSessionController(sessions *services.StudySessionService, log zerolog.Logger) *SessionController {
	return &SessionController{Sessions: sessions, Log: log}
}

// Create schedules a session organized by the session user
func (sc *SessionController) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateSessionInput
	if err := helpers.DecodeJSON(r, &in); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid request payload")
		return
	}
	userID, _ := helpers.UserIDFrom(r.Context())
	if in.OrganizerID == 0 {
		in.OrganizerID = userID
	}
	if in.OrganizerID != userID {
		helpers.WriteError(w, http.StatusForbidden, "Forbidden", "organizerId must be the logged in user")
		return
	}

	session, err := sc.Sessions.Create(r.Context(), in)
	if err != nil {
		helpers.WriteServiceError(w, sc.Log, err, "Failed to create study session")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"session": session,
		"message": "Study session created successfully",
	})
}

// ForUser lists the sessions of {userId}
func (sc *SessionController) ForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}
	list, err := sc.Sessions.ForUser(r.Context(), userID)
	if err != nil {
		helpers.WriteServiceError(w, sc.Log, err, "Failed to fetch study sessions")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, list)
}

// Join adds the session user to {sessionId}
func (sc *SessionController) Join(w http.ResponseWriter, r *http.Request) {
	sessionID, err := helpers.PathInt64(r, "sessionId")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid session id")
		return
	}
	userID, _ := helpers.UserIDFrom(r.Context())
	session, err := sc.Sessions.Join(r.Context(), sessionID, userID)
	if err != nil {
		helpers.WriteServiceError(w, sc.Log, err, "Failed to join study session")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{"success": true, "session": session})
}
