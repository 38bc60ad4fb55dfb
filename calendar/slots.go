package calendar

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"

	"studysync/models"
)

// TimeZone is the campus time zone. Arizona does not observe DST.
const TimeZone = "America/Phoenix"

const (
	studyDayStart   = 8
	studyDayEnd     = 22
	weekendDayStart = 10
	slotStep        = 2 * time.Hour
	maxSlots        = 20
)

var (
	locOnce sync.Once
	loc     *time.Location
)

// Location returns the campus time zone
func Location() *time.Location {
	locOnce.Do(func() {
		l, err := time.LoadLocation(TimeZone)
		if err != nil {
			l = time.FixedZone("MST", -7*60*60)
		}
		loc = l
	})
	return loc
}

// Slot is a free study window
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Label renders the slot like "Mon 8:00 AM - 10:00 AM" in campus time
func (s Slot) Label() string {
	start := s.Start.In(Location())
	end := s.End.In(Location())
	return fmt.Sprintf("%s %s - %s", start.Format("Mon"), start.Format("3:04 PM"), end.Format("3:04 PM"))
}

// AvailableSlots lists free windows over the next days starting on from's date.
// Windows start every two hours between 08:00 and 22:00 campus time, skip weekend
// mornings before 10:00, must not overlap an event and must start after now.
func AvailableSlots(events []models.Event, from time.Time, days int, slotDuration time.Duration, now time.Time) []Slot {
	if days <= 0 {
		days = 7
	}
	if slotDuration <= 0 {
		slotDuration = slotStep
	}

	from = from.In(Location())
	var slots []Slot
	for d := 0; d < days; d++ {
		day := time.Date(from.Year(), from.Month(), from.Day()+d, 0, 0, 0, 0, Location())
		weekend := day.Weekday() == time.Saturday || day.Weekday() == time.Sunday
		closing := day.Add(studyDayEnd * time.Hour)

		for h := studyDayStart; h < studyDayEnd; h += int(slotStep / time.Hour) {
			if weekend && h < weekendDayStart {
				continue
			}
			start := day.Add(time.Duration(h) * time.Hour)
			end := start.Add(slotDuration)
			if end.After(closing) || !start.After(now) {
				continue
			}
			if conflicts(events, start, end) {
				continue
			}
			slots = append(slots, Slot{Start: start, End: end})
			if len(slots) == maxSlots {
				return slots
			}
		}
	}
	return slots
}

func conflicts(events []models.Event, start, end time.Time) bool {
	for _, ev := range events {
		if ev.StartTime == nil || ev.EndTime == nil {
			continue
		}
		if start.Before(*ev.EndTime) && end.After(*ev.StartTime) {
			return true
		}
	}
	return false
}
