package socket

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studysync/helpers"
	"studysync/services"

	socketio "github.com/googollee/go-socket.io"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

// RoomFor is the Socket.IO room mirroring a chat topic
func RoomFor(matchID string) string {
	return "chat:" + matchID
}

// NewSocketServer builds the Socket.IO bridge. Clients emit "join" with a match id and
// receive "newMessage" for every chat message broadcast on the hub. "sendMessage" posts
// as the session user and reaches the room through the same broadcast.
func NewSocketServer(hub *Hub, store sessions.Store, log zerolog.Logger) *socketio.Server {
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(s socketio.Conn) error {
		r := &http.Request{Header: s.RemoteHeader()}
		userID, ok := helpers.SessionUserID(store, r)
		if !ok {
			log.Debug().Str("sid", s.ID()).Msg("Socket.IO connection without session")
			return nil
		}
		s.SetContext(userID)
		log.Info().Str("sid", s.ID()).Int64("user_id", userID).Msg("✅ Socket connected")
		return nil
	})

	server.OnEvent("/", "join", func(s socketio.Conn, matchID string) {
		userID, _ := s.Context().(int64)
		id, err := strconv.ParseInt(strings.TrimSpace(matchID), 10, 64)
		if err != nil || userID == 0 {
			s.Emit("error", "Invalid join request")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := hub.Chat.Authorize(ctx, id, userID); err != nil {
			s.Emit("error", services.UserMessage(err, "Join refused"))
			return
		}
		s.Join(RoomFor(strconv.FormatInt(id, 10)))
		log.Info().Str("sid", s.ID()).Int64("match_id", id).Msg("👥 Socket joined match")
	})

	server.OnEvent("/", "sendMessage", func(s socketio.Conn, payload map[string]interface{}) {
		userID, _ := s.Context().(int64)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := postSocketMessage(ctx, hub.Chat, userID, payload); err != nil {
			s.Emit("error", services.UserMessage(err, "Failed to send message"))
		}
	})

	server.OnError("/", func(s socketio.Conn, err error) {
		log.Warn().Err(err).Msg("Socket.IO error")
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Debug().Str("sid", s.ID()).Str("reason", reason).Msg("Socket disconnected")
	})

	hub.AddListener(func(topic string, f Frame) {
		if f.Type != services.EventChat {
			return
		}
		matchID := strings.TrimPrefix(topic, "/topic/chat/")
		server.BroadcastToRoom("/", RoomFor(matchID), "newMessage", f.Body)
	})

	return server
}

// postSocketMessage persists a Socket.IO "sendMessage" payload sent by userID
func postSocketMessage(ctx context.Context, chat *services.ChatService, userID int64, payload map[string]interface{}) error {
	if userID == 0 {
		return &services.Error{Kind: services.ErrForbidden, Message: "Sign in to send messages"}
	}
	matchID, ok := int64From(payload["matchId"])
	if !ok {
		return &services.Error{Kind: services.ErrValidation, Message: "matchId is required"}
	}
	if sender, ok := int64From(payload["senderId"]); ok && sender != userID {
		return &services.Error{Kind: services.ErrForbidden, Message: "You can only send messages as yourself"}
	}
	in := services.PostMessageInput{MatchID: matchID, SenderID: userID}
	in.Message, _ = payload["message"].(string)
	in.ClientMessageID, _ = payload["clientMessageId"].(string)
	_, _, err := chat.PostMessage(ctx, in)
	return err
}

func int64From(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n > 0 && n == float64(int64(n))
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return id, err == nil && id > 0
	}
	return 0, false
}
