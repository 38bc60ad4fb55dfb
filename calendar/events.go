package calendar

import (
	"os"
	"strconv"
	"strings"
	"time"

	"studysync/models"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// eventFile is the on-disk shape. Times are kept as text so JSON strings and YAML
// timestamps parse the same way.
type eventFile struct {
	Events []rawEvent `yaml:"events"`
}

type rawEvent struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	StartTime   string `yaml:"startTime"`
	EndTime     string `yaml:"endTime"`
	Location    string `yaml:"location"`
	EventType   string `yaml:"eventType"`
}

// localLayouts carry no zone and are read in campus time
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTime reads an event timestamp. Values without a zone are campus time.
func ParseTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, Location()); err == nil {
			return &t, nil
		}
	}
	return nil, errors.Errorf("invalid time %q", s)
}

// ParseEvents decodes a YAML or JSON document holding either a list of events or an
// object with an "events" list
func ParseEvents(data []byte) ([]models.Event, error) {
	var raws []rawEvent
	if err := yaml.Unmarshal(data, &raws); err != nil {
		var file eventFile
		if err2 := yaml.Unmarshal(data, &file); err2 != nil {
			return nil, errors.Wrap(err, "decode events")
		}
		raws = file.Events
	}

	events := make([]models.Event, 0, len(raws))
	for i, r := range raws {
		start, err := ParseTime(r.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "event %d startTime", i)
		}
		end, err := ParseTime(r.EndTime)
		if err != nil {
			return nil, errors.Wrapf(err, "event %d endTime", i)
		}
		id := r.ID
		if id == "" {
			id = Stamp(time.Now())
			if start != nil {
				id = Stamp(*start)
			}
			id = strings.ToLower(id) + "-" + strconv.Itoa(i)
		}
		events = append(events, models.Event{
			ID:          id,
			Title:       r.Title,
			Description: r.Description,
			StartTime:   start,
			EndTime:     end,
			Location:    r.Location,
			EventType:   strings.ToUpper(strings.TrimSpace(r.EventType)),
		})
	}
	return events, nil
}

// LoadEvents reads an events file from disk
func LoadEvents(path string) ([]models.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read events %s", path)
	}
	events, err := ParseEvents(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse events %s", path)
	}
	return events, nil
}

// FromStudySession converts a scheduled session into a calendar event
func FromStudySession(s models.StudySession) models.Event {
	start, end := s.StartTime, s.EndTime
	desc := s.Description
	if s.Course != "" {
		desc = strings.TrimSpace(s.Course + "\n" + desc)
	}
	return models.Event{
		ID:          "session-" + strconv.FormatInt(s.ID, 10),
		Title:       s.Title,
		Description: desc,
		StartTime:   &start,
		EndTime:     &end,
		Location:    s.Location,
		EventType:   models.EventTypeStudySession,
	}
}
