package cli

import (
	"bytes"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"studysync/config"
	"studysync/routes"
	"studysync/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	app, err := routes.NewApp(config.NewServerForTesting(), store, routes.Options{BcryptCost: bcrypt.MinCost}, zerolog.Nop())
	require.NoError(t, err)
	srv := httptest.NewServer(app.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close()
		_ = store.Close()
	})
	return srv.URL
}

// terminal runs commands as one user with its own data directory
type terminal struct {
	t       *testing.T
	api     string
	dataDir string
}

func newTerminal(t *testing.T, api string) *terminal {
	return &terminal{t: t, api: api, dataDir: t.TempDir()}
}

func (tm *terminal) run(stdin string, args ...string) (string, error) {
	tm.t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	base := []string{
		"--api", tm.api,
		"--data-dir", tm.dataDir,
		"--config", filepath.Join(tm.dataDir, "missing.yaml"),
		"--log-level", "disabled",
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (tm *terminal) mustRun(stdin string, args ...string) string {
	tm.t.Helper()
	out, err := tm.run(stdin, args...)
	require.NoError(tm.t, err, out)
	return out
}

func (tm *terminal) onboard(name, email string) {
	tm.t.Helper()
	out := tm.mustRun("", "signup", "--name", name, "--email", email, "--password", "secret-pass")
	assert.Contains(tm.t, out, "Next: complete your profile")
	out = tm.mustRun("", "setup", "--major", "Computer Science", "--classes", "CSE110,MAT265")
	assert.Contains(tm.t, out, "Profile saved")
}

func TestCLI_AccountLifecycle(t *testing.T) {
	api := newTestServer(t)
	alice := newTerminal(t, api)

	out := alice.mustRun("", "signup", "--name", "Alice Sun", "--email", "alice@asu.edu", "--password", "secret-pass")
	assert.Contains(t, out, "Account created as Alice Sun <alice@asu.edu>")
	assert.Contains(t, out, "studysync setup")

	_, err := alice.run("", "feed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile incomplete")

	out = alice.mustRun("", "setup", "--major", "Computer Science", "--classes", "CSE110")
	assert.Contains(t, out, "Profile saved for Alice Sun")

	out = alice.mustRun("", "whoami")
	assert.Contains(t, out, "Major: Computer Science")
	assert.Contains(t, out, "Profile: complete")

	out = alice.mustRun("", "logout")
	assert.Contains(t, out, "Logged out")
	out = alice.mustRun("", "whoami")
	assert.Contains(t, out, "Not signed in")

	out = alice.mustRun("secret-pass\n", "login", "--email", "alice@asu.edu")
	assert.Contains(t, out, "Signed in as Alice Sun")
	assert.Contains(t, out, "studysync feed")
}

func TestCLI_SignupExistingAccount(t *testing.T) {
	api := newTestServer(t)
	newTerminal(t, api).mustRun("", "signup", "--name", "Al", "--email", "al@asu.edu", "--password", "secret-pass")

	_, err := newTerminal(t, api).run("", "signup", "--name", "Al", "--email", "al@asu.edu", "--password", "secret-pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "User with this email already exists")
	assert.Contains(t, err.Error(), "studysync login")
}

func TestCLI_WrongPassword(t *testing.T) {
	api := newTestServer(t)
	newTerminal(t, api).mustRun("", "signup", "--email", "al@asu.edu", "--password", "secret-pass")

	_, err := newTerminal(t, api).run("", "login", "--email", "al@asu.edu", "--password", "nope-nope")
	require.Error(t, err)
	assert.Equal(t, "invalid email or password", err.Error())
}

var (
	chatHint    = regexp.MustCompile(`studysync chat (\d+)`)
	sessionLine = regexp.MustCompile(`#(\d+) Study Group Session`)
)

func TestCLI_MatchChatAndSchedule(t *testing.T) {
	api := newTestServer(t)
	alice := newTerminal(t, api)
	alice.onboard("Alice Sun", "alice@asu.edu")
	bob := newTerminal(t, api)
	bob.onboard("Bob Jones", "bob@asu.edu")

	out := bob.mustRun("l\n", "feed")
	assert.Contains(t, out, "Alice Sun")
	assert.Contains(t, out, "Like sent!")

	out = alice.mustRun("l\n", "feed")
	assert.Contains(t, out, "Bob Jones")
	assert.Contains(t, out, "It's a match with Bob Jones!")
	assert.Contains(t, out, "No more candidates")
	m := chatHint.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	matchID := m[1]

	out = alice.mustRun("", "matches")
	assert.Contains(t, out, "Bob Jones")
	assert.Contains(t, out, "CSE110")

	out = alice.mustRun("", "chat", matchID, "-m", "hi bob")
	assert.Contains(t, out, "hi bob")

	out = bob.mustRun("", "chat", matchID, "--poll-only")
	assert.Contains(t, out, "hi bob")

	start := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	out = alice.mustRun("", "schedule", "--template", "GROUP_STUDY", "--start", start,
		"--match", matchID, "--course", "CSE110", "--location", "Computing Commons")
	assert.Contains(t, out, "Study session created successfully")
	assert.Contains(t, out, "Study Group Session")
	assert.Contains(t, out, "https://calendar.google.com/calendar/render?action=TEMPLATE")

	sm := sessionLine.FindStringSubmatch(out)
	require.Len(t, sm, 2, out)

	out = bob.mustRun("", "sessions")
	assert.Contains(t, out, "No study sessions")
	out = bob.mustRun("", "sessions", "join", sm[1])
	assert.Contains(t, out, "Joined Study Group Session")
	assert.Contains(t, out, "Participants: 2")
	out = bob.mustRun("", "sessions")
	assert.Contains(t, out, "#"+sm[1]+" Study Group Session")

	out = alice.mustRun("", "calendar", "ics", "--sessions")
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, out, "SUMMARY:Study Group Session")
	assert.Contains(t, out, "CATEGORIES:STUDY_SESSION")
}

func TestCLI_ScheduleValidatesBeforeCallingServer(t *testing.T) {
	tm := newTerminal(t, "http://127.0.0.1:1")
	out, err := tm.run("", "schedule", "--title", " ")
	require.Error(t, err)
	assert.Contains(t, out, "✗ Title is required")
	assert.Contains(t, out, "✗ Start time is required")
	assert.Contains(t, out, "✗ End time is required")
	assert.Equal(t, 3, strings.Count(out, "✗"))
}

func TestCLI_CalendarCommands(t *testing.T) {
	tm := newTerminal(t, "http://127.0.0.1:1")

	out := tm.mustRun("", "calendar", "link", "--title", "CSE 110 review",
		"--start", "2026-03-02T10:00:00-07:00", "--duration", "2h")
	assert.Equal(t, "https://calendar.google.com/calendar/render?action=TEMPLATE&text=CSE+110+review"+
		"&dates=20260302T170000Z%2F20260302T190000Z&details=&location=\n", out)

	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: exam
  title: Midterm
  startTime: 2026-03-10T09:00:00-07:00
  endTime: 2026-03-10T11:00:00-07:00
  eventType: EXAM
`), 0o600))

	out = tm.mustRun("", "calendar", "ics", "--file", path)
	assert.Contains(t, out, "UID:exam@studysync.app\r\n")
	assert.Contains(t, out, "DTSTART:20260310T160000Z\r\n")

	icsPath := filepath.Join(t.TempDir(), "out.ics")
	out = tm.mustRun("", "calendar", "ics", "--file", path, "-o", icsPath)
	assert.Contains(t, out, "Wrote 1 events")
	data, err := os.ReadFile(icsPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "END:VCALENDAR"))

	future := time.Now().Add(72 * time.Hour).Format(time.RFC3339)
	out = tm.mustRun("", "calendar", "validate", "--title", "Review", "--start", future, "--duration", "1h")
	assert.Contains(t, out, "✓ Review is valid")

	out, err = tm.run("", "calendar", "validate", "--title", "Old", "--start", "2020-01-01T10:00:00Z", "--end", "2020-01-01T09:00:00Z")
	require.Error(t, err)
	assert.Contains(t, out, "✗ End time must be after start time")
	assert.Contains(t, out, "✗ Start time cannot be in the past")

	out = tm.mustRun("", "calendar", "templates")
	assert.Contains(t, out, "QUICK_REVIEW")
	assert.Contains(t, out, "30 min")
	assert.Contains(t, out, "Hayden Library - Room 203")

	out = tm.mustRun("", "calendar", "slots", "--days", "3")
	assert.NotEmpty(t, out)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 40))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	long := "📅 Study session scheduled: CSE110 midterm review at Hayden Library"
	got := truncate(long, 40)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 40, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(got, "📅 Study session"))
}
