package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"studysync/calendar"
	"studysync/client"
	"studysync/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// eventFlags describe a single event on the command line, or a file of events
type eventFlags struct {
	file        string
	template    string
	title       string
	description string
	location    string
	eventType   string
	start       string
	end         string
	duration    time.Duration
}

func (f *eventFlags) register(cmd *cobra.Command, withFile bool) {
	fl := cmd.Flags()
	if withFile {
		fl.StringVar(&f.file, "file", "", "YAML or JSON file of events")
	}
	fl.StringVar(&f.template, "template", "", "Start from a template: "+strings.Join(calendar.TemplateKeys(), ", "))
	fl.StringVar(&f.title, "title", "", "Event title")
	fl.StringVar(&f.description, "description", "", "Event description")
	fl.StringVar(&f.location, "location", "", "Where the event takes place")
	fl.StringVar(&f.eventType, "type", "", "Event type, e.g. STUDY_SESSION or EXAM")
	fl.StringVar(&f.start, "start", "", "Start time, RFC 3339 or \"2006-01-02 15:04\" in campus time")
	fl.StringVar(&f.end, "end", "", "End time, same formats as --start")
	fl.DurationVar(&f.duration, "duration", 0, "Length of the event when --end is not given")
}

// single builds one event from the flags. Missing fields are left for Validate to report.
func (f *eventFlags) single() (models.Event, error) {
	start, err := calendar.ParseTime(f.start)
	if err != nil {
		return models.Event{}, err
	}
	end, err := calendar.ParseTime(f.end)
	if err != nil {
		return models.Event{}, err
	}

	ev := models.Event{ID: uuid.NewString()}
	if f.template != "" {
		if start == nil {
			return models.Event{}, errors.New("--template needs --start")
		}
		if ev, err = calendar.NewFromTemplate(f.template, *start, f.location); err != nil {
			return models.Event{}, err
		}
	}
	if f.title != "" {
		ev.Title = f.title
	}
	if f.description != "" {
		ev.Description = f.description
	}
	if f.location != "" {
		ev.Location = f.location
	}
	if f.eventType != "" {
		ev.EventType = strings.ToUpper(f.eventType)
	}
	if start != nil {
		ev.StartTime = start
	}
	switch {
	case end != nil:
		ev.EndTime = end
	case f.duration > 0 && start != nil:
		e := start.Add(f.duration)
		ev.EndTime = &e
	}
	return ev, nil
}

func (f *eventFlags) events() ([]models.Event, error) {
	if f.file != "" {
		return calendar.LoadEvents(f.file)
	}
	ev, err := f.single()
	if err != nil {
		return nil, err
	}
	return []models.Event{ev}, nil
}

// when renders t in campus time
func when(t time.Time) string {
	return t.In(calendar.Location()).Format("Mon, Jan 2 2006, 3:04 PM")
}

// validateAll reports every violated rule and returns false when any event is invalid
func (e *clientEnv) validateAll(events []models.Event) bool {
	ok := true
	now := time.Now()
	for _, ev := range events {
		errs := calendar.Validate(ev, now)
		if len(errs) == 0 {
			continue
		}
		ok = false
		for _, verr := range errs {
			e.notify.Error(verr.Message)
		}
	}
	return ok
}

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var f eventFlags
	var matchID int64
	var course string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a study session, optionally with a match",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()

			ev, err := f.single()
			if err != nil {
				return err
			}
			if !env.validateAll([]models.Event{ev}) {
				return errors.New("study session not scheduled")
			}
			user, err := env.gate(cmd, true)
			if err != nil {
				return err
			}

			s, err := env.api.CreateSession(cmd.Context(), client.SessionRequest{
				Title:       ev.Title,
				Course:      course,
				Description: ev.Description,
				Location:    ev.Location,
				StartTime:   *ev.StartTime,
				EndTime:     *ev.EndTime,
				OrganizerID: user.ID,
				MatchID:     matchID,
			})
			if err != nil {
				return describe(err)
			}
			env.notify.Success("Study session created successfully")
			env.printSession(*s)
			env.printf("  Add to your calendar: %s\n", calendar.BuildExternalEventLink(calendar.FromStudySession(*s)))
			return nil
		},
	}
	f.register(cmd, false)
	cmd.Flags().Int64Var(&matchID, "match", 0, "Match the session belongs to")
	cmd.Flags().StringVar(&course, "course", "", "Course code")
	return cmd
}

func (e *clientEnv) printSession(s models.StudySession) {
	e.printf("#%d %s\n", s.ID, s.Title)
	e.printf("  %s (%s)\n", when(s.StartTime), calendar.DurationLabel(s.EndTime.Sub(s.StartTime)))
	if s.Course != "" {
		e.printf("  Course: %s\n", s.Course)
	}
	if s.Location != "" {
		e.printf("  Location: %s\n", s.Location)
	}
	e.printf("  Participants: %d\n", len(s.ParticipantIDs))
}

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List your study sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()
			user, err := env.gate(cmd, true)
			if err != nil {
				return err
			}
			sessions, err := env.api.UserSessions(cmd.Context(), user.ID)
			if err != nil {
				return describe(err)
			}
			if len(sessions) == 0 {
				env.printf("No study sessions, create one with `studysync schedule`\n")
			}
			for _, s := range sessions {
				env.printSession(s)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "join <sessionId>",
		Short: "Join a study session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "session id")
			if err != nil {
				return err
			}
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()
			if _, err := env.gate(cmd, true); err != nil {
				return err
			}
			s, err := env.api.JoinSession(cmd.Context(), id)
			if err != nil {
				return describe(err)
			}
			env.notify.Success("Joined " + s.Title)
			env.printSession(*s)
			return nil
		},
	})
	return cmd
}

func newUploadURLCmd(opts *rootOptions) *cobra.Command {
	var fileType string
	cmd := &cobra.Command{
		Use:   "upload-url <fileName>",
		Short: "Get a presigned URL for uploading a profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()
			if _, err := env.gate(cmd, false); err != nil {
				return err
			}
			url, key, err := env.api.ProfilePictureUploadURL(cmd.Context(), args[0], fileType)
			if err != nil {
				return describe(err)
			}
			env.printf("PUT %s\nKey: %s\n", url, key)
			return nil
		},
	}
	cmd.Flags().StringVar(&fileType, "type", "image/jpeg", "Content type of the picture")
	return cmd
}

func newCalendarCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Calendar links, iCalendar export and free study slots",
	}
	cmd.AddCommand(newCalendarLinkCmd(opts))
	cmd.AddCommand(newCalendarICSCmd(opts))
	cmd.AddCommand(newCalendarValidateCmd(opts))
	cmd.AddCommand(newCalendarSlotsCmd(opts))
	cmd.AddCommand(newCalendarTemplatesCmd())
	return cmd
}

func newCalendarLinkCmd(opts *rootOptions) *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Print an add-to-calendar link for each event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := f.events()
			if err != nil {
				return err
			}
			for _, ev := range events {
				fmt.Fprintln(cmd.OutOrStdout(), calendar.BuildExternalEventLink(ev))
			}
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

// sessionEvents fetches the signed-in user's study sessions as events
func sessionEvents(cmd *cobra.Command, opts *rootOptions) ([]models.Event, error) {
	env, err := newClientEnv(cmd, opts)
	if err != nil {
		return nil, err
	}
	defer env.saveCookies()
	user, err := env.gate(cmd, true)
	if err != nil {
		return nil, err
	}
	sessions, err := env.api.UserSessions(cmd.Context(), user.ID)
	if err != nil {
		return nil, describe(err)
	}
	events := make([]models.Event, 0, len(sessions))
	for _, s := range sessions {
		events = append(events, calendar.FromStudySession(s))
	}
	return events, nil
}

func newCalendarICSCmd(opts *rootOptions) *cobra.Command {
	var f eventFlags
	var fromSessions bool
	var output string
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Export events as an iCalendar document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var events []models.Event
			if f.file != "" {
				loaded, err := calendar.LoadEvents(f.file)
				if err != nil {
					return err
				}
				events = append(events, loaded...)
			}
			if fromSessions {
				fetched, err := sessionEvents(cmd, opts)
				if err != nil {
					return err
				}
				events = append(events, fetched...)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if err := calendar.WriteFeedDocument(w, events, time.Now()); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events to %s\n", len(events), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "YAML or JSON file of events")
	cmd.Flags().BoolVar(&fromSessions, "sessions", false, "Include your study sessions from the server")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout, e.g. studysync-calendar.ics")
	return cmd
}

func newCalendarValidateCmd(opts *rootOptions) *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check events before scheduling them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := f.events()
			if err != nil {
				return err
			}
			n := printNotifier{out: cmd.OutOrStdout()}
			invalid := 0
			now := time.Now()
			for _, ev := range events {
				errs := calendar.Validate(ev, now)
				if len(errs) == 0 {
					n.Success(ev.Title + " is valid")
					continue
				}
				invalid++
				for _, verr := range errs {
					n.Error(verr.Message)
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d events are invalid", invalid, len(events))
			}
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func newCalendarSlotsCmd(opts *rootOptions) *cobra.Command {
	var busyFile string
	var fromSessions bool
	var days int
	var length time.Duration
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Suggest free study slots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var busy []models.Event
			if busyFile != "" {
				loaded, err := calendar.LoadEvents(busyFile)
				if err != nil {
					return err
				}
				busy = append(busy, loaded...)
			}
			if fromSessions {
				fetched, err := sessionEvents(cmd, opts)
				if err != nil {
					return err
				}
				busy = append(busy, fetched...)
			}
			now := time.Now()
			slots := calendar.AvailableSlots(busy, now, days, length, now)
			if len(slots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No free slots in that range")
			}
			for _, s := range slots {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", s.Start.In(calendar.Location()).Format("Jan 02"), s.Label())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&busyFile, "file", "", "YAML or JSON file of events you are busy with")
	cmd.Flags().BoolVar(&fromSessions, "sessions", false, "Treat your study sessions as busy")
	cmd.Flags().IntVar(&days, "days", 7, "Days to look ahead")
	cmd.Flags().DurationVar(&length, "duration", 2*time.Hour, "Slot length")
	return cmd
}

func newCalendarTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List session templates and campus study locations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Templates:")
			for _, key := range calendar.TemplateKeys() {
				t := calendar.Templates[key]
				fmt.Fprintf(out, "  %-16s %s (%s, %s)\n", key, t.Title, calendar.DurationLabel(t.Duration), t.EventType)
			}
			fmt.Fprintln(out, "Locations:")
			for _, l := range calendar.CampusLocations {
				fmt.Fprintf(out, "  %s\n", l)
			}
			fmt.Fprintf(out, "Times are shown in %s.\n", calendar.TimeZone)
			return nil
		},
	}
}
