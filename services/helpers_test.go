package services

import (
	"context"
	"sync"
	"testing"

	"studysync/models"
	"studysync/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type broadcast struct {
	Topic     string
	EventType string
	Payload   interface{}
}

// recordingBroadcaster keeps every broadcast for assertions.
type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcast
}

func (r *recordingBroadcaster) Broadcast(topic, eventType string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, broadcast{topic, eventType, payload})
	return nil
}

func (r *recordingBroadcaster) Calls() []broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast(nil), r.calls...)
}

type fixture struct {
	store    storage.Store
	bc       *recordingBroadcaster
	auth     *AuthService
	chat     *ChatService
	matching *MatchingService
	sessions *StudySessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	bc := &recordingBroadcaster{}
	log := zerolog.Nop()
	chat := &ChatService{Store: store, Broadcaster: bc, Log: log}
	return &fixture{
		store:    store,
		bc:       bc,
		auth:     &AuthService{Store: store, Log: log, Cost: bcrypt.MinCost},
		chat:     chat,
		matching: &MatchingService{Store: store, Chat: chat, Log: log},
		sessions: &StudySessionService{Store: store, Chat: chat, Log: log},
	}
}

// student creates a user with a completed profile.
func (f *fixture) student(t *testing.T, first string, classes ...string) *models.User {
	t.Helper()
	u := &models.User{
		Email:            first + "@asu.edu",
		FirstName:        first,
		LastName:         "Sun",
		Major:            "Computer Science",
		Classes:          classes,
		ProfileCompleted: true,
	}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

// mutualMatch makes a and b like each other and returns the match id.
func (f *fixture) mutualMatch(t *testing.T, a, b *models.User) int64 {
	t.Helper()
	ctx := context.Background()
	_, err := f.matching.Swipe(ctx, a.ID, b.ID, true)
	require.NoError(t, err)
	res, err := f.matching.Swipe(ctx, b.ID, a.ID, true)
	require.NoError(t, err)
	require.True(t, res.IsMatch)
	return res.MatchID
}
