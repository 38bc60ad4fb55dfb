package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ErrorKinds(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	writeJSON := func(status int, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/api/auth/user", writeJSON(http.StatusUnauthorized, `{"success":false,"error":"Not authenticated","message":"Not authenticated"}`))
	mux.HandleFunc("/api/matching/match/1", writeJSON(http.StatusForbidden, `{"success":false,"error":"Forbidden","message":"Not a participant of this match"}`))
	mux.HandleFunc("/api/auth/email-signup", writeJSON(http.StatusConflict, `{"success":false,"error":"Conflict","message":"User with this email already exists","userExists":true}`))
	mux.HandleFunc("/api/matching/matches/1", writeJSON(http.StatusInternalServerError, `{"success":false,"error":"Internal Server Error","message":"Failed to fetch matches"}`))
	mux.HandleFunc("/api/chat/1/messages", writeJSON(http.StatusOK, `[{"id":2,"matchId":1,"senderId":5,"message":"hi","messageType":"TEXT","timestamp":"2026-01-01T10:00:00Z"}]`))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.User(ctx)
	assert.True(t, IsAuthExpired(err))
	assert.False(t, IsTransport(err))

	_, err = c.MatchDetail(ctx, 1)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "Not a participant")

	_, err = c.EmailSignup(ctx, "Al", "al@asu.edu", "secret123")
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.UserExists)
	assert.Equal(t, "User with this email already exists", appErr.Message)

	_, err = c.Matches(ctx, 1)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
	assert.False(t, IsAuthExpired(err))

	msgs, err := c.Messages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.PotentialMatches(context.Background(), 1)
	assert.True(t, IsTransport(err))
	assert.False(t, IsAuthExpired(err))
}

func TestClient_OAuthURL(t *testing.T) {
	t.Parallel()
	c, err := New("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/oauth2/authorization/google", c.OAuthURL("google"))
}

func TestWSURL(t *testing.T) {
	t.Parallel()
	u, err := WSURL("https://api.studysync.app")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.studysync.app/ws", u)
	u, err = WSURL("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", u)
	_, err = WSURL("ftp://x")
	assert.Error(t, err)
}
