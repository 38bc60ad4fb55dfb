package services

import (
	"context"
	"testing"
	"time"

	"studysync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatService_PostAndList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	alice := f.student(t, "alice", "CSE110")
	bob := f.student(t, "bob", "CSE110")
	matchID := f.mutualMatch(t, alice, bob)

	clock := time.Now().Add(time.Hour)
	f.chat.Now = func() time.Time { clock = clock.Add(time.Second); return clock }

	msg, created, err := f.chat.PostMessage(ctx, PostMessageInput{MatchID: matchID, SenderID: alice.ID, Message: "  hi bob  ", ClientMessageID: "c-1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "hi bob", msg.Body)
	assert.Equal(t, models.MessageTypeText, msg.MessageType)
	assert.Equal(t, "alice Sun", msg.SenderName)

	_, _, err = f.chat.PostMessage(ctx, PostMessageInput{MatchID: matchID, SenderID: bob.ID, Message: "hey"})
	require.NoError(t, err)

	msgs, err := f.chat.Messages(ctx, matchID, bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, models.MessageTypeSystem, msgs[0].MessageType)
	assert.Equal(t, "hi bob", msgs[1].Body)
	assert.Equal(t, "hey", msgs[2].Body)

	calls := f.bc.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, ChatTopic(matchID), calls[1].Topic)
	assert.Equal(t, EventChat, calls[1].EventType)
}

func TestChatService_DuplicateClientMessageIDPersistsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	alice := f.student(t, "alice", "CSE110")
	bob := f.student(t, "bob", "CSE110")
	matchID := f.mutualMatch(t, alice, bob)
	before := len(f.bc.Calls())

	in := PostMessageInput{MatchID: matchID, SenderID: alice.ID, Message: "once", ClientMessageID: "same"}
	first, created, err := f.chat.PostMessage(ctx, in)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.chat.PostMessage(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	msgs, err := f.chat.Messages(ctx, matchID, alice.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Len(t, f.bc.Calls(), before+1)
}

func TestChatService_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	alice := f.student(t, "alice", "CSE110")
	bob := f.student(t, "bob", "CSE110")
	eve := f.student(t, "eve", "CSE110")
	matchID := f.mutualMatch(t, alice, bob)

	tests := []struct {
		name string
		in   PostMessageInput
		kind error
		msg  string
	}{
		{"empty body", PostMessageInput{MatchID: matchID, SenderID: alice.ID, Message: "  "}, ErrValidation, "senderId and message are required"},
		{"no sender", PostMessageInput{MatchID: matchID, Message: "hi"}, ErrValidation, "senderId and message are required"},
		{"unknown sender", PostMessageInput{MatchID: matchID, SenderID: 999, Message: "hi"}, ErrValidation, "Sender not found"},
		{"unknown match", PostMessageInput{MatchID: 999, SenderID: alice.ID, Message: "hi"}, ErrNotFound, "Match not found"},
		{"outsider", PostMessageInput{MatchID: matchID, SenderID: eve.ID, Message: "hi"}, ErrForbidden, "Not a participant of this match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.chat.PostMessage(ctx, tt.in)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.msg, err.Error())
		})
	}

	_, err := f.chat.Messages(ctx, matchID, eve.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestChatService_AnnounceJoin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	alice := f.student(t, "alice", "CSE110")
	bob := f.student(t, "bob", "CSE110")
	matchID := f.mutualMatch(t, alice, bob)

	require.NoError(t, f.chat.AnnounceJoin(ctx, matchID, bob.ID))
	calls := f.bc.Calls()
	assert.Equal(t, EventUserJoined, calls[len(calls)-1].EventType)
}
