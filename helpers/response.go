package helpers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"studysync/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	UserExists bool   `json:"userExists,omitempty"`
}

// WriteJSONResponse writes data as JSON with the given status code
func WriteJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an ErrorResponse. label is the short error name, message the user-facing text.
func WriteError(w http.ResponseWriter, status int, label, message string) {
	WriteJSONResponse(w, status, ErrorResponse{Error: label, Message: message})
}

// StatusFor maps a service error kind to an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// WriteServiceError answers with the status and message carried by a service error.
// Unexpected errors are logged and answered with fallback.
func WriteServiceError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("❌ " + fallback)
		WriteError(w, status, http.StatusText(status), fallback)
		return
	}
	WriteJSONResponse(w, status, ErrorResponse{
		Error:      http.StatusText(status),
		Message:    services.UserMessage(err, fallback),
		UserExists: errors.Is(err, services.ErrUserExists),
	})
}

// DecodeJSON decodes the request body into v
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// PathInt64 parses a numeric mux path variable
func PathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
