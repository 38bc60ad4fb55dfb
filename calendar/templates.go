package calendar

import (
	"fmt"
	"sort"
	"time"

	"studysync/models"

	"github.com/google/uuid"
)

// Template is a preset for quickly scheduling a common kind of session
type Template struct {
	Key         string
	Title       string
	Description string
	Duration    time.Duration
	EventType   string
}

// Templates keyed by name
var Templates = map[string]Template{
	"QUICK_REVIEW": {
		Key:         "QUICK_REVIEW",
		Title:       "Quick Review",
		Description: "Short review of recent material",
		Duration:    30 * time.Minute,
		EventType:   models.EventTypeStudySession,
	},
	"EXAM_PREP": {
		Key:         "EXAM_PREP",
		Title:       "Exam Prep",
		Description: "Focused preparation for an upcoming exam",
		Duration:    2 * time.Hour,
		EventType:   models.EventTypeExam,
	},
	"ASSIGNMENT_WORK": {
		Key:         "ASSIGNMENT_WORK",
		Title:       "Assignment Work",
		Description: "Working through an assignment together",
		Duration:    90 * time.Minute,
		EventType:   models.EventTypeAssignmentDue,
	},
	"GROUP_STUDY": {
		Key:         "GROUP_STUDY",
		Title:       "Study Group Session",
		Description: "Collaborative study session with classmates",
		Duration:    2 * time.Hour,
		EventType:   models.EventTypeStudySession,
	},
	"LECTURE_REVIEW": {
		Key:         "LECTURE_REVIEW",
		Title:       "Lecture Review",
		Description: "Going over this week's lectures",
		Duration:    time.Hour,
		EventType:   models.EventTypeClass,
	},
}

// TemplateKeys returns the template names sorted
func TemplateKeys() []string {
	keys := make([]string, 0, len(Templates))
	for k := range Templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewFromTemplate builds an event from a template starting at start
func NewFromTemplate(key string, start time.Time, location string) (models.Event, error) {
	tpl, ok := Templates[key]
	if !ok {
		return models.Event{}, fmt.Errorf("unknown template %q", key)
	}
	end := start.Add(tpl.Duration)
	return models.Event{
		ID:          uuid.NewString(),
		Title:       tpl.Title,
		Description: tpl.Description,
		StartTime:   &start,
		EndTime:     &end,
		Location:    location,
		EventType:   tpl.EventType,
	}, nil
}

// CampusLocations are common study spots offered when scheduling
var CampusLocations = []string{
	"Hayden Library - Room 203",
	"Noble Library - Study Room B",
	"Engineering Center - Room 280",
	"Memorial Union - Meeting Room C",
	"Computing Commons",
	"Business Building - Room 425",
	"Physics Building - Room 150",
	"Biodesign Institute - Study Area",
	"Student Union - Quiet Zone",
	"Tempe Campus - Outdoor Study Area",
}

// DurationLabel formats d as "30 min", "1h" or "1h 30m"
func DurationLabel(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins < 60 {
		return fmt.Sprintf("%d min", mins)
	}
	h, m := mins/60, mins%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
