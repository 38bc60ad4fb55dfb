package models

import "time"

// Match pairs two users. User1 is the user who decided first.
type Match struct {
	ID                 int64     `gorm:"primaryKey" dynamodbav:"id" json:"id"` // ✅ Partition Key
	User1ID            int64     `gorm:"index;not null" dynamodbav:"user1Id" json:"user1Id"`
	User2ID            int64     `gorm:"index;not null" dynamodbav:"user2Id" json:"user2Id"`
	User1              *User     `gorm:"-" dynamodbav:"-" json:"user1,omitempty"`            // Hydrated for match detail
	User2              *User     `gorm:"-" dynamodbav:"-" json:"user2,omitempty"`            // Hydrated for match detail
	CompatibilityScore int       `dynamodbav:"compatibilityScore" json:"compatibilityScore"` // 0..100
	SharedClasses      []string  `gorm:"serializer:json" dynamodbav:"sharedClasses,omitempty" json:"sharedClasses"`
	Status             string    `gorm:"index" dynamodbav:"status" json:"status"` // pending, liked, viewed, rejected
	CreatedAt          time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// MatchesTable is the DynamoDB table name for matches
const MatchesTable = "Matches"

// HasUser reports whether the user is one side of the match
func (m *Match) HasUser(userID int64) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// PartnerID returns the other side of the match, or 0 if userID is not a participant
func (m *Match) PartnerID(userID int64) int64 {
	switch userID {
	case m.User1ID:
		return m.User2ID
	case m.User2ID:
		return m.User1ID
	}
	return 0
}

// IsMutual reports whether both users liked each other
func (m *Match) IsMutual() bool {
	return m.Status == MatchStatusLiked
}

// Candidate is a user presented in the match feed
type Candidate struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	FirstName          string   `json:"firstName"`
	LastName           string   `json:"lastName"`
	Major              string   `json:"major,omitempty"`
	Year               string   `json:"year,omitempty"`
	Classes            []string `json:"classes,omitempty"`
	Goals              []string `json:"goals,omitempty"`
	StudyStyle         string   `json:"studyStyle,omitempty"`
	Bio                string   `json:"bio,omitempty"`
	ProfilePictureURL  string   `json:"profilePictureUrl,omitempty"`
	CompatibilityScore int      `json:"compatibilityScore"`
	SharedClasses      []string `json:"sharedClasses"`
	SharedGoals        []string `json:"sharedGoals,omitempty"`
	MatchReason        string   `json:"matchReason,omitempty"`
	Distance           string   `json:"distance,omitempty"`
}

// MatchSummary is one row of a user's confirmed matches
type MatchSummary struct {
	MatchID            int64      `json:"matchId"`
	PartnerID          int64      `json:"partnerId"`
	PartnerName        string     `json:"partnerName"`
	PartnerMajor       string     `json:"partnerMajor,omitempty"`
	CompatibilityScore int        `json:"compatibilityScore"`
	SharedClasses      []string   `json:"sharedClasses"`
	Status             string     `json:"status"`
	LastMessage        string     `json:"lastMessage,omitempty"`
	LastMessageTime    *time.Time `json:"lastMessageTime,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}
