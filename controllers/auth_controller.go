package controllers

import (
	"net/http"
	"strings"

	"studysync/helpers"
	"studysync/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

const oauthStateCookie = "studysync-oauth-state"

// AuthController handles login, signup, profile completion and OAuth
type AuthController struct {
	Auth        *services.AuthService
	OAuth       *services.OAuthService
	Sessions    sessions.Store
	FrontendURL string
	Log         zerolog.Logger
}

// NewAuthController creates a new AuthController instance
func NewAuthController(auth *services.AuthService, oauth *services.OAuthService, store sessions.Store, frontendURL string, log zerolog.Logger) *AuthController {
	return &AuthController{Auth: auth, OAuth: oauth, Sessions: store, FrontendURL: strings.TrimRight(frontendURL, "/"), Log: log}
}

func redirectFor(needsSetup bool) string {
	if needsSetup {
		return "/setup"
	}
	return "/dashboard"
}

// CurrentUser returns the user of the session cookie
func (ac *AuthController) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.SessionUserID(ac.Sessions, r)
	if !ok {
		helpers.WriteError(w, http.StatusUnauthorized, "Not authenticated", "Not authenticated")
		return
	}
	user, err := ac.Auth.CurrentUser(r.Context(), userID)
	if err != nil {
		// a session pointing at a deleted user counts as logged out
		helpers.WriteError(w, http.StatusUnauthorized, "Not authenticated", "Not authenticated")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, user)
}

// EmailLogin checks the credentials and starts a session
func (ac *AuthController) EmailLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := helpers.DecodeJSON(r, &payload); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid request payload")
		return
	}

	user, err := ac.Auth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		helpers.WriteServiceError(w, ac.Log, err, "Login failed")
		return
	}
	if err := helpers.SaveLogin(ac.Sessions, w, r, user.ID, user.Email); err != nil {
		helpers.WriteServiceError(w, ac.Log, err, "Login failed")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"user":     user,
		"message":  "Login successful",
		"redirect": redirectFor(user.NeedsSetup()),
	})
}

// EmailSignup registers a new account and logs it in
func (ac *AuthController) EmailSignup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := helpers.DecodeJSON(r, &payload); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid request payload")
		return
	}

	user, err := ac.Auth.Signup(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		helpers.WriteServiceError(w, ac.Log, err, "Signup failed")
		return
	}
	if err := helpers.SaveLogin(ac.Sessions, w, r, user.ID, user.Email); err != nil {
		helpers.WriteServiceError(w, ac.Log, err, "Signup failed")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"user":       user,
		"message":    "Account created",
		"redirect":   "/setup",
		"userExists": false,
	})
}

// CompleteProfile applies the setup form to the session user
func (ac *AuthController) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := helpers.UserIDFrom(r.Context())
	var payload services.ProfileUpdate
	if err := helpers.DecodeJSON(r, &payload); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid request payload")
		return
	}
	user, err := ac.Auth.CompleteProfile(r.Context(), userID, payload)
	if err != nil {
		helpers.WriteServiceError(w, ac.Log, err, "Failed to update profile")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"user":     user,
		"redirect": redirectFor(user.NeedsSetup()),
	})
}

// Logout invalidates the session
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := helpers.ClearLogin(ac.Sessions, w, r); err != nil {
		ac.Log.Warn().Err(err).Msg("Failed to clear session")
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Successfully logged out",
	})
}

// OAuthAuthorize redirects to the provider consent page
func (ac *AuthController) OAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	state := uuid.NewString()
	url, err := ac.OAuth.AuthCodeURL(provider, state)
	if err != nil {
		helpers.WriteServiceError(w, ac.Log, err, "Login provider unavailable")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusFound)
}

// OAuthCallback finishes the authorization-code flow and redirects to the frontend
func (ac *AuthController) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid OAuth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	user, err := ac.OAuth.Exchange(r.Context(), provider, r.URL.Query().Get("code"))
	if err != nil {
		ac.Log.Error().Err(err).Str("provider", provider).Msg("❌ OAuth login failed")
		http.Redirect(w, r, ac.FrontendURL+"/login?error=oauth", http.StatusFound)
		return
	}
	if err := helpers.SaveLogin(ac.Sessions, w, r, user.ID, user.Email); err != nil {
		helpers.WriteServiceError(w, ac.Log, err, "Login failed")
		return
	}
	ac.Log.Info().Int64("user_id", user.ID).Str("provider", provider).Msg("✅ OAuth login")
	http.Redirect(w, r, ac.FrontendURL+redirectFor(user.NeedsSetup()), http.StatusFound)
}
