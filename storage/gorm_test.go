package storage

import (
	"context"
	"testing"
	"time"

	"studysync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createUser(t *testing.T, s Store, email string, classes ...string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FirstName: email[:1], Classes: classes}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestGormStore_Users(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	lat, lng := 33.42, -111.93
	u := &models.User{
		Email:        " Alice@ASU.edu ",
		FirstName:    "Alice",
		Classes:      []string{"CSE110"},
		Availability: map[string][]string{"monday": {"morning"}},
		Latitude:     &lat,
		Longitude:    &lng,
	}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice@asu.edu", u.Email)

	got, err := s.GetUserByEmail(ctx, "ALICE@asu.edu")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, []string{"CSE110"}, got.Classes)
	assert.Equal(t, []string{"morning"}, got.Availability["monday"])
	require.True(t, got.HasCoordinates())

	err = s.CreateUser(ctx, &models.User{Email: "alice@asu.edu"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	got.Major = "Computer Science"
	require.NoError(t, s.UpdateUser(ctx, got))
	again, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", again.Major)
}

func TestGormStore_MatchesAreSymmetric(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	a := createUser(t, s, "a@asu.edu")
	b := createUser(t, s, "b@asu.edu")
	c := createUser(t, s, "c@asu.edu")

	m := &models.Match{User1ID: a.ID, User2ID: b.ID, Status: models.MatchStatusPending, SharedClasses: []string{"CSE110"}}
	require.NoError(t, s.CreateMatch(ctx, m))

	found, err := s.FindMatchBetween(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, found.ID)
	assert.Equal(t, []string{"CSE110"}, found.SharedClasses)

	_, err = s.FindMatchBetween(ctx, a.ID, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListMatchesForUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	found.Status = models.MatchStatusLiked
	require.NoError(t, s.UpdateMatch(ctx, found))
	reloaded, err := s.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsMutual())
}

func TestGormStore_MessagesOrderedAndFindableByClientID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, body := range []string{"second", "first", "third"} {
		offset := map[int]time.Duration{0: time.Minute, 1: 0, 2: 2 * time.Minute}[i]
		require.NoError(t, s.CreateMessage(ctx, &models.Message{
			MatchID:         1,
			SenderID:        1,
			Body:            body,
			MessageType:     models.MessageTypeText,
			ClientMessageID: "c-" + body,
			Timestamp:       base.Add(offset),
		}))
	}
	require.NoError(t, s.CreateMessage(ctx, &models.Message{MatchID: 2, Body: "elsewhere", Timestamp: base}))

	msgs, err := s.ListMessages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Body)
	assert.Equal(t, "second", msgs[1].Body)
	assert.Equal(t, "third", msgs[2].Body)

	last, err := s.LastMessage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "third", last.Body)

	found, err := s.FindMessageByClientID(ctx, 1, "c-second")
	require.NoError(t, err)
	assert.Equal(t, "second", found.Body)

	_, err = s.FindMessageByClientID(ctx, 2, "c-second")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LastMessage(ctx, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_StudySessionsByParticipant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Now().Add(48 * time.Hour).UTC()
	later := &models.StudySession{OrganizerID: 1, Title: "later", StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour), ParticipantIDs: []int64{1, 2}}
	sooner := &models.StudySession{OrganizerID: 2, Title: "sooner", StartTime: start, EndTime: start.Add(time.Hour), ParticipantIDs: []int64{2}}
	require.NoError(t, s.CreateStudySession(ctx, later))
	require.NoError(t, s.CreateStudySession(ctx, sooner))

	forTwo, err := s.ListStudySessionsForUser(ctx, 2)
	require.NoError(t, err)
	require.Len(t, forTwo, 2)
	assert.Equal(t, "sooner", forTwo[0].Title)

	forOne, err := s.ListStudySessionsForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, forOne, 1)

	sooner.ParticipantIDs = append(sooner.ParticipantIDs, 1)
	require.NoError(t, s.UpdateStudySession(ctx, sooner))
	forOne, err = s.ListStudySessionsForUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, forOne, 2)
}
