package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the session cookie is missing or expired (HTTP 401)
	ErrUnauthorized = errors.New("not authenticated")
	// ErrForbidden means the resource belongs to someone else (HTTP 403)
	ErrForbidden = errors.New("forbidden")
	// ErrNoCandidates is returned by feed decisions when the feed is empty
	ErrNoCandidates = errors.New("no candidates")
	// ErrEmptyMessage is returned by Channel.Send for blank text
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNotAuthenticated is returned by session operations that need a user
	ErrNotAuthenticated = errors.New("no authenticated user")
)

// AppError is an application failure reported by the server with success:false
type AppError struct {
	Status     int
	Message    string
	UserExists bool
}

func (e *AppError) Error() string {
	return e.Message
}

// StatusError is any other non-2xx response
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// TransportError means the request never produced a response
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAuthExpired reports whether err should send the user back to login
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTransport reports whether err is a network failure
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
