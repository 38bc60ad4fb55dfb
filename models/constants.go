package models

// ✅ Match Statuses
const (
	MatchStatusPending  = "pending"
	MatchStatusLiked    = "liked"
	MatchStatusViewed   = "viewed"
	MatchStatusRejected = "rejected"
)

// ✅ Match Actions (client side transitions)
const (
	MatchActionLike   = "like"
	MatchActionView   = "view"
	MatchActionReject = "reject"
)

// ✅ Message Types
const (
	MessageTypeText   = "TEXT"
	MessageTypeSystem = "SYSTEM"
)

// ✅ Event Types
const (
	EventTypeStudySession  = "STUDY_SESSION"
	EventTypeExam          = "EXAM"
	EventTypeAssignmentDue = "ASSIGNMENT_DUE"
	EventTypeClass         = "CLASS"
	EventTypeBreak         = "BREAK"
	EventTypePersonal      = "PERSONAL"
)

// EventTypes lists every calendar event type
var EventTypes = []string{
	EventTypeStudySession,
	EventTypeExam,
	EventTypeAssignmentDue,
	EventTypeClass,
	EventTypeBreak,
	EventTypePersonal,
}

// CountersTable holds the atomic id counters used by the DynamoDB store
const CountersTable = "Counters"
