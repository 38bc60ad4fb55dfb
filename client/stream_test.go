package client

import (
	"testing"
	"time"

	"studysync/models"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func msg(id int64, sec int, body string) models.Message {
	return models.Message{ID: id, MatchID: 1, Body: body, MessageType: models.MessageTypeText, Timestamp: t0.Add(time.Duration(sec) * time.Second)}
}

func bodies(msgs []models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

func TestMessageStream_OrderAndDedup(t *testing.T) {
	t.Parallel()
	s := NewMessageStream()
	assert.True(t, s.Merge(msg(3, 2, "c"), msg(1, 0, "a")))
	assert.True(t, s.Merge(msg(2, 0, "b")))
	assert.False(t, s.Merge(msg(1, 0, "a")))
	assert.Equal(t, []string{"a", "b", "c"}, bodies(s.Messages()))
}

func TestMessageStream_SnapshotKeepsNewerPushes(t *testing.T) {
	t.Parallel()
	s := NewMessageStream()
	s.ReplaceSnapshot([]models.Message{msg(1, 0, "a"), msg(2, 1, "b")})

	// pushed after the poll was taken
	s.Merge(msg(3, 5, "pushed"))
	// a stale entry the server no longer returns
	s.Merge(msg(9, 0, "stale"))

	changed := s.ReplaceSnapshot([]models.Message{msg(1, 0, "a"), msg(2, 1, "b")})
	assert.True(t, changed)
	assert.Equal(t, []string{"a", "b", "pushed"}, bodies(s.Messages()))

	assert.False(t, s.ReplaceSnapshot([]models.Message{msg(1, 0, "a"), msg(2, 1, "b")}))

	s.ReplaceSnapshot([]models.Message{msg(1, 0, "a"), msg(2, 1, "b"), msg(3, 5, "pushed")})
	assert.Equal(t, 3, s.Len())
}

func TestMessageStream_PendingReplacedBySaved(t *testing.T) {
	t.Parallel()
	s := NewMessageStream()
	pending := models.Message{ClientMessageID: "c-1", Body: "hello", Timestamp: t0}
	s.Merge(pending)
	assert.Equal(t, 1, s.Len())

	saved := msg(5, 0, "hello")
	saved.ClientMessageID = "c-1"
	s.Merge(saved)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(5), s.Messages()[0].ID)

	assert.False(t, s.Merge(pending))
	s.ReplaceSnapshot([]models.Message{saved})
	assert.Equal(t, 1, s.Len())
}
