package controllers

import (
	"net/http"

	"studysync/helpers"
	"studysync/services"

	"github.com/rs/zerolog"
)

// MatchController handles HTTP requests for the candidate feed and matches
type MatchController struct {
	Matching *services.MatchingService
	Log      zerolog.Logger
}

// NewMatchController creates a new MatchController instance
func NewMatchController(matching *services.MatchingService, log zerolog.Logger) *MatchController {
	return &MatchController{Matching: matching, Log: log}
}

// sessionUser resolves the {userId} path variable and checks it against the session.
func sessionUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	sessionID, _ := helpers.UserIDFrom(r.Context())
	userID, err := helpers.PathInt64(r, "userId")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid user id")
		return 0, false
	}
	if userID != sessionID {
		helpers.WriteError(w, http.StatusForbidden, "Forbidden", "You can only access your own data")
		return 0, false
	}
	return userID, true
}

// PotentialMatches returns the ranked candidates for the user
func (mc *MatchController) PotentialMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}
	candidates, err := mc.Matching.PotentialMatches(r.Context(), userID)
	if err != nil {
		helpers.WriteServiceError(w, mc.Log, err, "Failed to fetch potential matches")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, candidates)
}

// Matches returns the user's confirmed matches
func (mc *MatchController) Matches(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}
	matches, err := mc.Matching.UserMatches(r.Context(), userID)
	if err != nil {
		helpers.WriteServiceError(w, mc.Log, err, "Failed to fetch matches")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, matches)
}

// Swipe records a like or pass
func (mc *MatchController) Swipe(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID       int64 `json:"userId"`
		TargetUserID int64 `json:"targetUserId"`
		Liked        bool  `json:"liked"`
	}
	if err := helpers.DecodeJSON(r, &payload); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid request payload")
		return
	}
	sessionID, _ := helpers.UserIDFrom(r.Context())
	if payload.UserID == 0 {
		payload.UserID = sessionID
	}
	if payload.UserID != sessionID {
		helpers.WriteError(w, http.StatusForbidden, "Forbidden", "You can only swipe as yourself")
		return
	}

	result, err := mc.Matching.Swipe(r.Context(), payload.UserID, payload.TargetUserID, payload.Liked)
	if err != nil {
		helpers.WriteServiceError(w, mc.Log, err, "Failed to record swipe")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, result)
}

// MatchDetail returns one match with both users
func (mc *MatchController) MatchDetail(w http.ResponseWriter, r *http.Request) {
	matchID, err := helpers.PathInt64(r, "matchId")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid match id")
		return
	}
	sessionID, _ := helpers.UserIDFrom(r.Context())
	match, err := mc.Matching.MatchDetail(r.Context(), matchID, sessionID)
	if err != nil {
		helpers.WriteServiceError(w, mc.Log, err, "Failed to fetch match")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, match)
}

// MatchAction applies like, view or reject to a match
func (mc *MatchController) MatchAction(w http.ResponseWriter, r *http.Request) {
	matchID, err := helpers.PathInt64(r, "matchId")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid match id")
		return
	}
	var payload struct {
		Action string `json:"action"`
	}
	if err := helpers.DecodeJSON(r, &payload); err != nil || payload.Action == "" {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "action is required")
		return
	}
	sessionID, _ := helpers.UserIDFrom(r.Context())
	match, err := mc.Matching.ApplyAction(r.Context(), matchID, sessionID, payload.Action)
	if err != nil {
		helpers.WriteServiceError(w, mc.Log, err, "Failed to update match")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{"success": true, "match": match})
}
