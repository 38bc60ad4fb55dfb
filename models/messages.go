package models

import "time"

// Message is one entry of a match conversation
type Message struct {
	ID              int64     `gorm:"primaryKey" dynamodbav:"id" json:"id"`               // Sort Key
	MatchID         int64     `gorm:"index;not null" dynamodbav:"matchId" json:"matchId"` // ✅ Partition Key
	SenderID        int64     `dynamodbav:"senderId" json:"senderId"`
	SenderName      string    `dynamodbav:"senderName,omitempty" json:"senderName,omitempty"`
	Body            string    `gorm:"column:message" dynamodbav:"message" json:"message"`
	MessageType     string    `dynamodbav:"messageType" json:"messageType"`                                          // TEXT or SYSTEM
	ClientMessageID string    `gorm:"index" dynamodbav:"clientMessageId,omitempty" json:"clientMessageId,omitempty"` // Sender supplied idempotency key
	Timestamp       time.Time `gorm:"index" dynamodbav:"timestamp" json:"timestamp"`
}

// MessagesTable is the DynamoDB table name for chat messages
const MessagesTable = "Messages"

// Before orders messages by timestamp, then id
func (m *Message) Before(other *Message) bool {
	if !m.Timestamp.Equal(other.Timestamp) {
		return m.Timestamp.Before(other.Timestamp)
	}
	return m.ID < other.ID
}
