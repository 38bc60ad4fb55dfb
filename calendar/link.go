// Package calendar turns study events into calendar links and iCalendar feeds, and
// checks events before they are scheduled.
package calendar

import (
	"net/url"
	"strings"
	"time"

	"studysync/models"
)

// ExternalCalendarBase is the event-creation endpoint links point at
const ExternalCalendarBase = "https://calendar.google.com/calendar/render?"

// stampLayout is the UTC form used in links and feed documents
const stampLayout = "20060102T150405Z"

// Stamp formats t in UTC without separators or fractional seconds
func Stamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

func stampPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return Stamp(*t)
}

// BuildExternalEventLink returns a pre-filled event creation URL. Parameters keep a
// fixed order so the same event always yields the same link.
func BuildExternalEventLink(ev models.Event) string {
	dates := ""
	if ev.StartTime != nil && ev.EndTime != nil {
		dates = Stamp(*ev.StartTime) + "/" + Stamp(*ev.EndTime)
	}
	params := [][2]string{
		{"action", "TEMPLATE"},
		{"text", ev.Title},
		{"dates", dates},
		{"details", ev.Description},
		{"location", ev.Location},
	}

	var sb strings.Builder
	sb.WriteString(ExternalCalendarBase)
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p[0]))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p[1]))
	}
	return sb.String()
}
