package calendar

import (
	"strings"
	"time"

	"studysync/models"
)

// Validation messages
const (
	MsgTitleRequired  = "Title is required"
	MsgStartRequired  = "Start time is required"
	MsgEndRequired    = "End time is required"
	MsgEndBeforeStart = "End time must be after start time"
	MsgStartInPast    = "Start time cannot be in the past"
)

// ValidationError is one violated rule
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string { return e.Message }

// ValidationErrors collects every violated rule of an event
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the messages in rule order
func (v ValidationErrors) Messages() []string {
	out := make([]string, len(v))
	for i, e := range v {
		out[i] = e.Message
	}
	return out
}

// Validate checks ev against now. It returns nil when the event is valid.
func Validate(ev models.Event, now time.Time) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(ev.Title) == "" {
		errs = append(errs, ValidationError{Field: "title", Message: MsgTitleRequired})
	}
	if ev.StartTime == nil {
		errs = append(errs, ValidationError{Field: "startTime", Message: MsgStartRequired})
	}
	if ev.EndTime == nil {
		errs = append(errs, ValidationError{Field: "endTime", Message: MsgEndRequired})
	}
	if ev.StartTime != nil && ev.EndTime != nil {
		if !ev.EndTime.After(*ev.StartTime) {
			errs = append(errs, ValidationError{Field: "endTime", Message: MsgEndBeforeStart})
		}
		if ev.StartTime.Before(now) {
			errs = append(errs, ValidationError{Field: "startTime", Message: MsgStartInPast})
		}
	}
	return errs
}
