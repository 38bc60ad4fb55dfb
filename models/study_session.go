package models

import "time"

// StudySession is a scheduled meeting between matched users
type StudySession struct {
	ID             int64     `gorm:"primaryKey" dynamodbav:"id" json:"id"` // ✅ Partition Key
	MatchID        int64     `gorm:"index" dynamodbav:"matchId,omitempty" json:"matchId,omitempty"`
	OrganizerID    int64     `gorm:"index;not null" dynamodbav:"organizerId" json:"organizerId"`
	Title          string    `dynamodbav:"title" json:"title"`
	Course         string    `dynamodbav:"course,omitempty" json:"course,omitempty"`
	Description    string    `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Location       string    `dynamodbav:"location,omitempty" json:"location,omitempty"`
	StartTime      time.Time `dynamodbav:"startTime" json:"startTime"`
	EndTime        time.Time `dynamodbav:"endTime" json:"endTime"`
	ParticipantIDs []int64   `gorm:"serializer:json" dynamodbav:"participantIds" json:"participantIds"`
	CreatedAt      time.Time `dynamodbav:"createdAt" json:"createdAt"`
}

// StudySessionsTable is the DynamoDB table name for study sessions
const StudySessionsTable = "StudySessions"

// HasParticipant reports whether the user already joined the session
func (s *StudySession) HasParticipant(userID int64) bool {
	for _, id := range s.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}
