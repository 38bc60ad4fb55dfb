package models

import "time"

// Event is a client-local calendar entry. Nil times mean the field was not provided.
type Event struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description" json:"description"`
	StartTime   *time.Time `yaml:"startTime" json:"startTime"`
	EndTime     *time.Time `yaml:"endTime" json:"endTime"`
	Location    string     `yaml:"location" json:"location"`
	EventType   string     `yaml:"eventType" json:"eventType"`
}
