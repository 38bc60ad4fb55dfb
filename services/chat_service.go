package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"studysync/metrics"
	"studysync/models"
	"studysync/storage"

	"github.com/rs/zerolog"
)

// Frame types carried on chat topics
const (
	EventChat       = "CHAT"
	EventUserJoined = "USER_JOINED"
)

// ChatTopic is the pub/sub topic of a match conversation.
func ChatTopic(matchID int64) string {
	return fmt.Sprintf("/topic/chat/%d", matchID)
}

// Broadcaster fans a payload out to the subscribers of a topic.
type Broadcaster interface {
	Broadcast(topic, eventType string, payload interface{}) error
}

// ChatService persists conversation messages and announces them on the match topic
type ChatService struct {
	Store       storage.Store
	Broadcaster Broadcaster
	Log         zerolog.Logger
	Now         func() time.Time

	// mu serializes the clientMessageId lookup with the insert
	mu sync.Mutex
}

// PostMessageInput is a message submitted over REST or the websocket
type PostMessageInput struct {
	MatchID         int64  `json:"matchId"`
	SenderID        int64  `json:"senderId"`
	Message         string `json:"message"`
	MessageType     string `json:"messageType"`
	ClientMessageID string `json:"clientMessageId"`
}

func (cs *ChatService) now() time.Time {
	if cs.Now != nil {
		return cs.Now().UTC()
	}
	return time.Now().UTC()
}

// Authorize loads a match and checks that userID takes part in it.
func (cs *ChatService) Authorize(ctx context.Context, matchID, userID int64) (*models.Match, error) {
	m, err := cs.Store.GetMatch(ctx, matchID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newError(ErrNotFound, "Match not found")
	}
	if err != nil {
		return nil, err
	}
	if !m.HasUser(userID) {
		return nil, newError(ErrForbidden, "Not a participant of this match")
	}
	return m, nil
}

// Messages returns the conversation in ascending timestamp order.
func (cs *ChatService) Messages(ctx context.Context, matchID, requesterID int64) ([]models.Message, error) {
	if _, err := cs.Authorize(ctx, matchID, requesterID); err != nil {
		return nil, err
	}
	msgs, err := cs.Store.ListMessages(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("fetch messages for match %d: %w", matchID, err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// PostMessage persists a message and then broadcasts it. A clientMessageId that was
// already stored returns the stored message; created is false and nothing is broadcast.
func (cs *ChatService) PostMessage(ctx context.Context, in PostMessageInput) (msg *models.Message, created bool, err error) {
	in.Message = strings.TrimSpace(in.Message)
	if in.SenderID == 0 || in.Message == "" {
		return nil, false, newError(ErrValidation, "senderId and message are required")
	}
	sender, err := cs.Store.GetUser(ctx, in.SenderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, newError(ErrValidation, "Sender not found")
	}
	if err != nil {
		return nil, false, err
	}
	if _, err := cs.Authorize(ctx, in.MatchID, in.SenderID); err != nil {
		return nil, false, err
	}

	msgType := strings.ToUpper(in.MessageType)
	if msgType != models.MessageTypeSystem {
		msgType = models.MessageTypeText
	}

	cs.mu.Lock()
	if in.ClientMessageID != "" {
		existing, err := cs.Store.FindMessageByClientID(ctx, in.MatchID, in.ClientMessageID)
		if err == nil {
			cs.mu.Unlock()
			metrics.MessagesDeduplicatedTotal.Inc()
			cs.Log.Debug().Int64("match_id", in.MatchID).Str("client_message_id", in.ClientMessageID).Msg("Duplicate send ignored")
			return existing, false, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			cs.mu.Unlock()
			return nil, false, err
		}
	}
	msg = &models.Message{
		MatchID:         in.MatchID,
		SenderID:        sender.ID,
		SenderName:      sender.FullName(),
		Body:            in.Message,
		MessageType:     msgType,
		ClientMessageID: in.ClientMessageID,
		Timestamp:       cs.now(),
	}
	err = cs.Store.CreateMessage(ctx, msg)
	cs.mu.Unlock()
	if err != nil {
		return nil, false, fmt.Errorf("save message: %w", err)
	}
	metrics.MessagesPersistedTotal.Inc()
	cs.Log.Info().Int64("match_id", msg.MatchID).Int64("message_id", msg.ID).Int64("sender_id", msg.SenderID).Msg("📩 Message saved")

	cs.broadcast(msg)
	return msg, true, nil
}

// PostSystemMessage appends a SYSTEM message on behalf of a match participant.
func (cs *ChatService) PostSystemMessage(ctx context.Context, matchID, senderID int64, body string) (*models.Message, error) {
	msg, _, err := cs.PostMessage(ctx, PostMessageInput{
		MatchID:     matchID,
		SenderID:    senderID,
		Message:     body,
		MessageType: models.MessageTypeSystem,
	})
	return msg, err
}

// AnnounceJoin tells the topic that a participant opened the conversation.
func (cs *ChatService) AnnounceJoin(ctx context.Context, matchID, userID int64) error {
	if _, err := cs.Authorize(ctx, matchID, userID); err != nil {
		return err
	}
	if cs.Broadcaster == nil {
		return nil
	}
	return cs.Broadcaster.Broadcast(ChatTopic(matchID), EventUserJoined, map[string]interface{}{
		"matchId": matchID,
		"userId":  userID,
	})
}

func (cs *ChatService) broadcast(msg *models.Message) {
	if cs.Broadcaster == nil {
		return
	}
	if err := cs.Broadcaster.Broadcast(ChatTopic(msg.MatchID), EventChat, msg); err != nil {
		cs.Log.Error().Err(err).Int64("match_id", msg.MatchID).Msg("❌ Broadcast failed")
	}
}
