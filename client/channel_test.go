package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"studysync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatAPI is an in-memory conversation
type fakeChatAPI struct {
	mu      sync.Mutex
	msgs    []models.Message
	posts   int
	postErr error
	nextID  int64
}

func (f *fakeChatAPI) Messages(context.Context, int64) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.msgs...), nil
}

func (f *fakeChatAPI) PostMessage(_ context.Context, matchID int64, out OutgoingMessage) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts++
	if f.postErr != nil {
		return nil, f.postErr
	}
	f.nextID++
	m := models.Message{
		ID:              f.nextID,
		MatchID:         matchID,
		SenderID:        out.SenderID,
		Body:            out.Message,
		MessageType:     out.MessageType,
		ClientMessageID: out.ClientMessageID,
		Timestamp:       t0.Add(time.Duration(f.nextID) * time.Second),
	}
	f.msgs = append(f.msgs, m)
	return &m, nil
}

// fakePubSub echoes every sendMessage back to the subscriber, like the server would
type fakePubSub struct {
	mu      sync.Mutex
	handler FrameHandler
	sent    []string
	closed  bool
	api     *fakeChatAPI
}

func (p *fakePubSub) Subscribe(_ string, fn FrameHandler) error {
	p.mu.Lock()
	p.handler = fn
	p.mu.Unlock()
	return nil
}

func (p *fakePubSub) Send(destination string, body interface{}) error {
	p.mu.Lock()
	p.sent = append(p.sent, destination)
	fn := p.handler
	p.mu.Unlock()
	out, ok := body.(OutgoingMessage)
	if !ok || fn == nil {
		return nil
	}
	// the server dedups by clientMessageId and echoes the stored message
	p.api.mu.Lock()
	var stored models.Message
	for _, m := range p.api.msgs {
		if m.ClientMessageID == out.ClientMessageID {
			stored = m
		}
	}
	p.api.mu.Unlock()
	data, _ := json.Marshal(stored)
	fn(Frame{Command: "MESSAGE", Destination: ChatTopic(1), Type: "CHAT", Body: data})
	return nil
}

func (p *fakePubSub) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

var alice = &models.User{ID: 11, FirstName: "alice"}

func TestChannel_SendRejectsEmptyText(t *testing.T) {
	t.Parallel()
	api := &fakeChatAPI{}
	ch, err := OpenChannel(context.Background(), api, 1, alice, ChannelOptions{PollInterval: time.Hour})
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, api.posts)
}

func TestChannel_SendFailureNotices(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err    error
		notice string
	}{
		{&AppError{Status: 400, Message: "nope"}, MsgSendFailed},
		{errOffline, MsgNetworkSendFailed},
	}
	for _, tt := range tests {
		rec := &Recorder{}
		api := &fakeChatAPI{postErr: tt.err}
		ch, err := OpenChannel(context.Background(), api, 1, alice, ChannelOptions{PollInterval: time.Hour, Notifier: rec})
		require.NoError(t, err)
		_, err = ch.Send(context.Background(), "hi")
		assert.Error(t, err)
		assert.Equal(t, []string{tt.notice}, rec.Messages())
		require.NoError(t, ch.Close())
	}
}

func TestChannel_DualDeliveryYieldsOneCopy(t *testing.T) {
	t.Parallel()
	api := &fakeChatAPI{msgs: []models.Message{msg(100, -60, "earlier")}}
	ps := &fakePubSub{api: api}
	ch, err := OpenChannel(context.Background(), api, 1, alice, ChannelOptions{
		PollInterval: 20 * time.Millisecond,
		Dial:         func(context.Context) (PubSub, error) { return ps, nil },
	})
	require.NoError(t, err)
	defer ch.Close()
	assert.True(t, ch.Realtime())

	saved, err := ch.Send(context.Background(), "hello bob")
	require.NoError(t, err)
	assert.Equal(t, "hello bob", saved.Body)
	assert.NotEmpty(t, saved.ClientMessageID)

	require.Eventually(t, func() bool {
		msgs := ch.Messages()
		return len(msgs) == 2 && msgs[1].Body == "hello bob"
	}, time.Second, 10*time.Millisecond)

	// several poll ticks later there is still exactly one copy
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"earlier", "hello bob"}, bodies(ch.Messages()))
	assert.Equal(t, []string{"/app/chat/1/addUser", "/app/chat/1/sendMessage"}, ps.sent)
}

func TestChannel_PollPicksUpPeerMessages(t *testing.T) {
	t.Parallel()
	api := &fakeChatAPI{}
	ch, err := OpenChannel(context.Background(), api, 1, alice, ChannelOptions{PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	defer ch.Close()

	api.mu.Lock()
	api.msgs = append(api.msgs, msg(1, 0, "from bob"))
	api.mu.Unlock()

	select {
	case <-ch.Updates():
	case <-time.After(time.Second):
		t.Fatal("no update after poll")
	}
	assert.Equal(t, []string{"from bob"}, bodies(ch.Messages()))
}

func TestChannel_CloseStopsEverything(t *testing.T) {
	t.Parallel()
	api := &fakeChatAPI{}
	ps := &fakePubSub{api: api}
	ch, err := OpenChannel(context.Background(), api, 1, alice, ChannelOptions{
		PollInterval: 10 * time.Millisecond,
		Dial:         func(context.Context) (PubSub, error) { return ps, nil },
	})
	require.NoError(t, err)
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	assert.True(t, ps.closed)
	assert.False(t, ch.Realtime())

	api.mu.Lock()
	api.msgs = append(api.msgs, msg(1, 0, "late"))
	api.mu.Unlock()
	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, ch.Messages())
}

func TestChannel_DialFailureFallsBackToPolling(t *testing.T) {
	t.Parallel()
	api := &fakeChatAPI{}
	ch, err := OpenChannel(context.Background(), api, 1, alice, ChannelOptions{
		PollInterval: time.Hour,
		Dial:         func(context.Context) (PubSub, error) { return nil, errOffline },
	})
	require.NoError(t, err)
	defer ch.Close()
	assert.False(t, ch.Realtime())
	_, err = ch.Send(context.Background(), "still works")
	require.NoError(t, err)
	assert.Len(t, ch.Messages(), 1)
}
