package models

import (
	"strings"
	"time"
)

// User is a StudySync student profile
type User struct {
	ID                 int64               `gorm:"primaryKey" dynamodbav:"id" json:"id"`                 // ✅ Partition Key
	Email              string              `gorm:"uniqueIndex;not null" dynamodbav:"email" json:"email"` // Indexed via email-index GSI
	PasswordHash       string              `dynamodbav:"passwordHash,omitempty" json:"-"`                // bcrypt hash, never serialized
	FirstName          string              `dynamodbav:"firstName,omitempty" json:"firstName"`
	LastName           string              `dynamodbav:"lastName,omitempty" json:"lastName"`
	Major              string              `dynamodbav:"major,omitempty" json:"major"`                            // Required for a completed profile
	Year               string              `dynamodbav:"year,omitempty" json:"year,omitempty"`                    // Freshman, Sophomore, ...
	Classes            []string            `gorm:"serializer:json" dynamodbav:"classes,omitempty" json:"classes"` // Course codes, e.g. CSE110
	Goals              []string            `gorm:"serializer:json" dynamodbav:"goals,omitempty" json:"goals"`
	StudyStyle         string              `dynamodbav:"studyStyle,omitempty" json:"studyStyle,omitempty"`
	Availability       map[string][]string `gorm:"serializer:json" dynamodbav:"availability,omitempty" json:"availability,omitempty"` // weekday -> slot labels
	PreferredLocations []string            `gorm:"serializer:json" dynamodbav:"preferredLocations,omitempty" json:"preferredLocations,omitempty"`
	PrefersGroups      bool                `dynamodbav:"prefersGroups,omitempty" json:"prefersGroups"`
	Bio                string              `dynamodbav:"bio,omitempty" json:"bio,omitempty"`
	Location           string              `dynamodbav:"location,omitempty" json:"location,omitempty"` // Free-form address
	Latitude           *float64            `dynamodbav:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude          *float64            `dynamodbav:"longitude,omitempty" json:"longitude,omitempty"`
	ProfilePictureURL  string              `dynamodbav:"profilePictureUrl,omitempty" json:"profilePictureUrl,omitempty"` // S3 key or URL
	ProfileCompleted   bool                `dynamodbav:"profileCompleted" json:"profileCompleted"`
	CreatedAt          time.Time           `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `dynamodbav:"updatedAt" json:"updatedAt"`
}

// UsersTable is the DynamoDB table name for users
const UsersTable = "Users"

// FullName joins first and last name, skipping empty parts
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NeedsSetup reports whether the profile still has to go through setup
func (u *User) NeedsSetup() bool {
	return !u.ProfileCompleted || strings.TrimSpace(u.Major) == ""
}

// HasCoordinates reports whether both latitude and longitude are known
func (u *User) HasCoordinates() bool {
	return u.Latitude != nil && u.Longitude != nil
}
