package services

import (
	"errors"
	"fmt"

	"studysync/storage"
)

// Error kinds returned by the services. Controllers map them to status codes.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = storage.ErrNotFound
	ErrConflict           = storage.ErrConflict
)

// ErrUserExists is the signup conflict. It matches ErrConflict too.
var ErrUserExists = fmt.Errorf("user exists: %w", storage.ErrConflict)

// Error carries a user-facing message alongside one of the error kinds.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// UserMessage returns the user-facing text of err, or fallback when err carries none.
func UserMessage(err error, fallback string) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return fallback
}
