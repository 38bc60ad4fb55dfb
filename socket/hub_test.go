package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"studysync/helpers"
	"studysync/models"
	"studysync/services"
	"studysync/storage"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hubFixture struct {
	store storage.Store
	hub   *Hub
	srv   *httptest.Server
	match *models.Match
	alice *models.User
	bob   *models.User
	eve   *models.User
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hub, err := NewHub(nil, zerolog.Nop())
	require.NoError(t, err)
	hub.Chat = &services.ChatService{Store: store, Broadcaster: hub, Log: zerolog.Nop()}

	ctx := context.Background()
	mk := func(name string) *models.User {
		u := &models.User{Email: name + "@asu.edu", FirstName: name, Major: "CS", ProfileCompleted: true}
		require.NoError(t, store.CreateUser(ctx, u))
		return u
	}
	f := &hubFixture{store: store, hub: hub, alice: mk("alice"), bob: mk("bob"), eve: mk("eve")}
	f.match = &models.Match{User1ID: f.alice.ID, User2ID: f.bob.ID, Status: models.MatchStatusLiked}
	require.NoError(t, store.CreateMatch(ctx, f.match))

	// the test server trusts a ?user= query parameter in place of the session middleware
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64); err == nil {
			r = r.WithContext(helpers.WithUserID(r.Context(), id))
		}
		hub.ServeWS(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *hubFixture) dial(t *testing.T, userID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws?user=" + strconv.FormatInt(userID, 10)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

func TestHub_RequiresUser(t *testing.T) {
	t.Parallel()
	f := newHubFixture(t)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_SubscribeAndSend(t *testing.T) {
	t.Parallel()
	f := newHubFixture(t)
	topic := services.ChatTopic(f.match.ID)

	bob := f.dial(t, f.bob.ID)
	require.NoError(t, bob.WriteJSON(Frame{Command: CommandSubscribe, Destination: topic}))
	require.Eventually(t, func() bool { return f.hub.Subscribers(topic) == 1 }, 2*time.Second, 10*time.Millisecond)

	alice := f.dial(t, f.alice.ID)
	body, _ := json.Marshal(map[string]interface{}{"message": "hello over ws", "clientMessageId": "ws-1"})
	send := Frame{Command: CommandSend, Destination: "/app/chat/" + strconv.FormatInt(f.match.ID, 10) + "/sendMessage", Body: body}
	require.NoError(t, alice.WriteJSON(send))

	got := readFrame(t, bob)
	assert.Equal(t, CommandMessage, got.Command)
	assert.Equal(t, topic, got.Destination)
	assert.Equal(t, services.EventChat, got.Type)
	var msg models.Message
	require.NoError(t, json.Unmarshal(got.Body, &msg))
	assert.Equal(t, "hello over ws", msg.Body)
	assert.Equal(t, f.alice.ID, msg.SenderID)

	// the same clientMessageId is not persisted twice
	require.NoError(t, alice.WriteJSON(send))
	require.Eventually(t, func() bool {
		msgs, err := f.store.ListMessages(context.Background(), f.match.ID)
		return err == nil && len(msgs) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHub_OutsiderCannotSubscribe(t *testing.T) {
	t.Parallel()
	f := newHubFixture(t)
	topic := services.ChatTopic(f.match.ID)

	eve := f.dial(t, f.eve.ID)
	require.NoError(t, eve.WriteJSON(Frame{Command: CommandSubscribe, Destination: topic}))
	got := readFrame(t, eve)
	assert.Equal(t, CommandError, got.Command)
	assert.Contains(t, string(got.Body), "Not a participant")
	assert.Equal(t, 0, f.hub.Subscribers(topic))
}

func TestHub_DeliversOnlyToTopicSubscribers(t *testing.T) {
	t.Parallel()
	f := newHubFixture(t)

	other := &models.Match{User1ID: f.alice.ID, User2ID: f.eve.ID, Status: models.MatchStatusLiked}
	require.NoError(t, f.store.CreateMatch(context.Background(), other))

	bob := f.dial(t, f.bob.ID)
	require.NoError(t, bob.WriteJSON(Frame{Command: CommandSubscribe, Destination: services.ChatTopic(f.match.ID)}))
	eve := f.dial(t, f.eve.ID)
	require.NoError(t, eve.WriteJSON(Frame{Command: CommandSubscribe, Destination: services.ChatTopic(other.ID)}))
	require.Eventually(t, func() bool {
		return f.hub.Subscribers(services.ChatTopic(f.match.ID)) == 1 && f.hub.Subscribers(services.ChatTopic(other.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.hub.Broadcast(services.ChatTopic(other.ID), services.EventChat, map[string]string{"message": "for eve"}))
	require.NoError(t, f.hub.Broadcast(services.ChatTopic(f.match.ID), services.EventChat, map[string]string{"message": "for bob"}))

	assert.Contains(t, string(readFrame(t, bob).Body), "for bob")
	assert.Contains(t, string(readFrame(t, eve).Body), "for eve")
}

func TestHub_Listeners(t *testing.T) {
	t.Parallel()
	hub, err := NewHub(NewLocalBroker(), zerolog.Nop())
	require.NoError(t, err)

	var seen []Frame
	hub.AddListener(func(topic string, f Frame) { seen = append(seen, f) })
	require.NoError(t, hub.Broadcast("/topic/chat/7", services.EventUserJoined, map[string]int{"userId": 1}))

	require.Len(t, seen, 1)
	assert.Equal(t, services.EventUserJoined, seen[0].Type)
	assert.Equal(t, "/topic/chat/7", seen[0].Destination)
}

func TestSubjectMapping(t *testing.T) {
	t.Parallel()
	subject, err := SubjectFor("/topic/chat/42")
	require.NoError(t, err)
	assert.Equal(t, "studysync.chat.42", subject)
	assert.Equal(t, "/topic/chat/42", TopicFor(subject))

	for _, bad := range []string{"/topic/other/1", "/topic/chat/", "/topic/chat/1.2", "/topic/chat/>"} {
		_, err := SubjectFor(bad)
		assert.Error(t, err, bad)
	}
}

func TestMatchIDFrom(t *testing.T) {
	t.Parallel()
	id, action, ok := matchIDFrom("/app/chat/12/sendMessage", "/app/chat/")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, "sendMessage", action)

	_, _, ok = matchIDFrom("/app/chat/abc/sendMessage", "/app/chat/")
	assert.False(t, ok)
	_, _, ok = matchIDFrom("/topic/chat/3", "/app/chat/")
	assert.False(t, ok)
}
