package client

import (
	"sort"
	"strconv"
	"sync"

	"studysync/models"
)

// MessageStream is the reconciled view of one conversation. REST responses, polls and
// pushed frames all feed it; each message appears at most once.
type MessageStream struct {
	mu   sync.Mutex
	byID map[string]models.Message
}

func NewMessageStream() *MessageStream {
	return &MessageStream{byID: map[string]models.Message{}}
}

// streamKey is the server id, or the clientMessageId while the message is unsaved
func streamKey(m models.Message) string {
	if m.ID != 0 {
		return "id:" + strconv.FormatInt(m.ID, 10)
	}
	return "client:" + m.ClientMessageID
}

// Merge adds messages and reports whether anything changed
func (s *MessageStream) Merge(msgs ...models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, m := range msgs {
		if m.ID == 0 && m.ClientMessageID == "" {
			continue
		}
		if m.ID == 0 && s.savedLocked(m.ClientMessageID) {
			continue
		}
		if m.ID != 0 && m.ClientMessageID != "" {
			pending := "client:" + m.ClientMessageID
			if _, ok := s.byID[pending]; ok {
				delete(s.byID, pending)
				changed = true
			}
		}
		key := streamKey(m)
		if old, ok := s.byID[key]; ok && sameMessage(old, m) {
			continue
		}
		s.byID[key] = m
		changed = true
	}
	return changed
}

// savedLocked reports whether a persisted message carries clientID
func (s *MessageStream) savedLocked(clientID string) bool {
	for _, m := range s.byID {
		if m.ID != 0 && m.ClientMessageID == clientID {
			return true
		}
	}
	return false
}

func sameMessage(a, b models.Message) bool {
	return a.ID == b.ID && a.Body == b.Body && a.Timestamp.Equal(b.Timestamp) && a.MessageType == b.MessageType
}

// ReplaceSnapshot makes a poll result authoritative for everything up to its newest
// message. Pushed or pending messages newer than the snapshot are kept.
func (s *MessageStream) ReplaceSnapshot(snapshot []models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]models.Message, len(snapshot))
	seenClient := map[string]bool{}
	var newest models.Message
	for i, m := range snapshot {
		next[streamKey(m)] = m
		if m.ClientMessageID != "" {
			seenClient[m.ClientMessageID] = true
		}
		if i == 0 || newest.Before(&m) {
			newest = m
		}
	}
	for key, m := range s.byID {
		if _, ok := next[key]; ok {
			continue
		}
		if m.ClientMessageID != "" && seenClient[m.ClientMessageID] {
			continue
		}
		if len(snapshot) == 0 || newest.Before(&m) || m.ID == 0 {
			next[key] = m
		}
	}

	changed := len(next) != len(s.byID)
	if !changed {
		for key, m := range next {
			if old, ok := s.byID[key]; !ok || !sameMessage(old, m) {
				changed = true
				break
			}
		}
	}
	s.byID = next
	return changed
}

// Messages returns the conversation ordered by (timestamp, id)
func (s *MessageStream) Messages() []models.Message {
	s.mu.Lock()
	out := make([]models.Message, 0, len(s.byID))
	for _, m := range s.byID {
		out = append(out, m)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) && out[i].ID == out[j].ID {
			return out[i].ClientMessageID < out[j].ClientMessageID
		}
		return out[i].Before(&out[j])
	})
	return out
}

// Len is the number of messages held
func (s *MessageStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
