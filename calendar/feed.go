package calendar

import (
	"bufio"
	"io"
	"strings"
	"time"

	"studysync/models"

	"github.com/pkg/errors"
)

const (
	// ProdID identifies the generator in every feed document
	ProdID = "-//StudySync//StudySync Calendar//EN"
	// UIDDomain is appended to event ids to form the UID
	UIDDomain = "studysync.app"
	// DefaultCategory is used when an event carries no type
	DefaultCategory = "STUDY"

	crlf = "\r\n"
)

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`;`, `\;`,
	`,`, `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

// EscapeText escapes an iCalendar TEXT value
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// feedLines yields the document line by line. now stamps CREATED and LAST-MODIFIED.
func feedLines(events []models.Event, now time.Time, emit func(string) error) error {
	header := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProdID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	for _, l := range header {
		if err := emit(l); err != nil {
			return err
		}
	}

	created := Stamp(now)
	for _, ev := range events {
		category := ev.EventType
		if category == "" {
			category = DefaultCategory
		}
		lines := []string{
			"BEGIN:VEVENT",
			"UID:" + ev.ID + "@" + UIDDomain,
		}
		if ev.StartTime != nil {
			lines = append(lines, "DTSTART:"+stampPtr(ev.StartTime))
		}
		if ev.EndTime != nil {
			lines = append(lines, "DTEND:"+stampPtr(ev.EndTime))
		}
		lines = append(lines,
			"SUMMARY:"+EscapeText(ev.Title),
			"DESCRIPTION:"+EscapeText(ev.Description),
			"LOCATION:"+EscapeText(ev.Location),
			"CATEGORIES:"+EscapeText(category),
			"STATUS:CONFIRMED",
			"CREATED:"+created,
			"LAST-MODIFIED:"+created,
			"END:VEVENT",
		)
		for _, l := range lines {
			if err := emit(l); err != nil {
				return err
			}
		}
	}
	return emit("END:VCALENDAR")
}

// BuildFeedDocument renders events as an iCalendar document with CRLF line endings
func BuildFeedDocument(events []models.Event, now time.Time) string {
	var lines []string
	_ = feedLines(events, now, func(l string) error {
		lines = append(lines, l)
		return nil
	})
	return strings.Join(lines, crlf)
}

// WriteFeedDocument streams the same document BuildFeedDocument returns
func WriteFeedDocument(w io.Writer, events []models.Event, now time.Time) error {
	bw := bufio.NewWriter(w)
	first := true
	err := feedLines(events, now, func(l string) error {
		if !first {
			if _, err := bw.WriteString(crlf); err != nil {
				return err
			}
		}
		first = false
		_, err := bw.WriteString(l)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "write feed document")
	}
	return errors.Wrap(bw.Flush(), "flush feed document")
}
