// Package client is the StudySync client SDK: the REST client, the session resolver,
// the profile gate, the match feed and the messaging channel.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"studysync/models"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

// DefaultTimeout bounds every REST call
const DefaultTimeout = 15 * time.Second

// Client talks to the StudySync API. Calls are credentialed through a cookie jar.
type Client struct {
	rest    *resty.Client
	baseURL string
	jar     http.CookieJar
	log     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.rest.SetTimeout(d) }
}

// WithLogger sets the logger used for request tracing
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTransport replaces the HTTP transport
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.rest.SetTransport(rt) }
}

// New builds a client for baseURL, e.g. http://localhost:8080
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(baseURL, "/")
	if _, err := url.Parse(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid API url %q", baseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	c := &Client{
		rest: resty.New().
			SetBaseURL(base).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetCookieJar(jar).
			SetTimeout(DefaultTimeout),
		baseURL: base,
		jar:     jar,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root
func (c *Client) BaseURL() string { return c.baseURL }

// Jar returns the cookie jar holding the session cookie
func (c *Client) Jar() http.CookieJar { return c.jar }

type errorBody struct {
	Success    *bool  `json:"success"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	UserExists bool   `json:"userExists"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.rest.R().SetContext(ctx).SetError(&errorBody{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode()).Dur("duration", time.Since(start)).Msg("api call")
	if resp.IsSuccess() {
		return nil
	}

	eb, _ := resp.Error().(*errorBody)
	msg := strings.TrimSpace(resp.String())
	if eb != nil && eb.Message != "" {
		msg = eb.Message
	}
	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, msg)
	case status < 500 && eb != nil && eb.Success != nil && !*eb.Success && eb.Message != "":
		return &AppError{Status: status, Message: eb.Message, UserExists: eb.UserExists}
	default:
		return &StatusError{Status: status, Body: msg}
	}
}

// AuthResult is the body of login, signup and profile completion
type AuthResult struct {
	Success    bool         `json:"success"`
	User       *models.User `json:"user"`
	Message    string       `json:"message"`
	Redirect   string       `json:"redirect"`
	UserExists bool         `json:"userExists"`
}

// Profile is the setup form
type Profile struct {
	FirstName          string              `json:"firstName,omitempty"`
	LastName           string              `json:"lastName,omitempty"`
	Major              string              `json:"major,omitempty"`
	Year               string              `json:"year,omitempty"`
	Classes            []string            `json:"classes,omitempty"`
	Goals              []string            `json:"goals,omitempty"`
	StudyStyle         string              `json:"studyStyle,omitempty"`
	Availability       map[string][]string `json:"availability,omitempty"`
	PreferredLocations []string            `json:"preferredLocations,omitempty"`
	PrefersGroups      *bool               `json:"prefersGroups,omitempty"`
	Bio                string              `json:"bio,omitempty"`
	Location           string              `json:"location,omitempty"`
	Latitude           *float64            `json:"latitude,omitempty"`
	Longitude          *float64            `json:"longitude,omitempty"`
}

// User fetches the session user
func (c *Client) User(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailLogin starts a session with an email and password
func (c *Client) EmailLogin(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/email-login", map[string]string{"email": email, "password": password}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// EmailSignup registers an account and starts a session
func (c *Client) EmailSignup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/email-signup", map[string]string{"name": name, "email": email, "password": password}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CompleteProfile submits the setup form
func (c *Client) CompleteProfile(ctx context.Context, p Profile) (*AuthResult, error) {
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/complete-profile", p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout ends the server session
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// OAuthURL is the browser entry point of an OAuth provider
func (c *Client) OAuthURL(provider string) string {
	return c.baseURL + "/oauth2/authorization/" + url.PathEscape(provider)
}

func pathID(v int64) string { return strconv.FormatInt(v, 10) }

// PotentialMatches fetches the candidate feed
func (c *Client) PotentialMatches(ctx context.Context, userID int64) ([]models.Candidate, error) {
	var out []models.Candidate
	err := c.do(ctx, http.MethodGet, "/api/matching/potential-matches/"+pathID(userID), nil, &out)
	return out, err
}

// Matches fetches the confirmed matches
func (c *Client) Matches(ctx context.Context, userID int64) ([]models.MatchSummary, error) {
	var out []models.MatchSummary
	err := c.do(ctx, http.MethodGet, "/api/matching/matches/"+pathID(userID), nil, &out)
	return out, err
}

// SwipeResult is the response of a swipe decision
type SwipeResult struct {
	Success bool   `json:"success"`
	IsMatch bool   `json:"isMatch"`
	MatchID int64  `json:"matchId"`
	Message string `json:"message"`
}

// Swipe posts a like or pass
func (c *Client) Swipe(ctx context.Context, userID, targetUserID int64, liked bool) (*SwipeResult, error) {
	var res SwipeResult
	body := map[string]interface{}{"userId": userID, "targetUserId": targetUserID, "liked": liked}
	if err := c.do(ctx, http.MethodPost, "/api/matching/swipe", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MatchDetail fetches a match with both users
func (c *Client) MatchDetail(ctx context.Context, matchID int64) (*models.Match, error) {
	var m models.Match
	if err := c.do(ctx, http.MethodGet, "/api/matching/match/"+pathID(matchID), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MatchAction applies like, view or reject to a match
func (c *Client) MatchAction(ctx context.Context, matchID int64, action string) (*models.Match, error) {
	var res struct {
		Match *models.Match `json:"match"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/matching/match/"+pathID(matchID)+"/action", map[string]string{"action": action}, &res); err != nil {
		return nil, err
	}
	return res.Match, nil
}

// OutgoingMessage is a message submitted by the client
type OutgoingMessage struct {
	SenderID        int64  `json:"senderId"`
	Message         string `json:"message"`
	MessageType     string `json:"messageType"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}

// Messages fetches the conversation of a match
func (c *Client) Messages(ctx context.Context, matchID int64) ([]models.Message, error) {
	var out []models.Message
	err := c.do(ctx, http.MethodGet, "/api/chat/"+pathID(matchID)+"/messages", nil, &out)
	return out, err
}

// PostMessage persists a message and returns the stored copy
func (c *Client) PostMessage(ctx context.Context, matchID int64, m OutgoingMessage) (*models.Message, error) {
	var res struct {
		Message *models.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat/"+pathID(matchID)+"/messages", m, &res); err != nil {
		return nil, err
	}
	if res.Message == nil {
		return nil, &StatusError{Status: http.StatusOK, Body: "response carried no message"}
	}
	return res.Message, nil
}

// SessionRequest is the body of a study session creation
type SessionRequest struct {
	Title       string    `json:"title"`
	Course      string    `json:"course,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	OrganizerID int64     `json:"organizerId"`
	MatchID     int64     `json:"matchId,omitempty"`
}

type sessionResult struct {
	Success bool                 `json:"success"`
	Session *models.StudySession `json:"session"`
	Message string               `json:"message"`
}

// CreateSession schedules a study session
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*models.StudySession, error) {
	var res sessionResult
	if err := c.do(ctx, http.MethodPost, "/api/sessions/create", req, &res); err != nil {
		return nil, err
	}
	return res.Session, nil
}

// UserSessions lists the user's study sessions
func (c *Client) UserSessions(ctx context.Context, userID int64) ([]models.StudySession, error) {
	var out []models.StudySession
	err := c.do(ctx, http.MethodGet, "/api/sessions/user/"+pathID(userID), nil, &out)
	return out, err
}

// JoinSession adds the session user to a study session
func (c *Client) JoinSession(ctx context.Context, sessionID int64) (*models.StudySession, error) {
	var res sessionResult
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+pathID(sessionID)+"/join", nil, &res); err != nil {
		return nil, err
	}
	return res.Session, nil
}

// ProfilePictureUploadURL returns a presigned PUT URL and the object key
func (c *Client) ProfilePictureUploadURL(ctx context.Context, fileName, fileType string) (string, string, error) {
	var res struct {
		URL      string `json:"url"`
		FileName string `json:"fileName"`
	}
	err := c.do(ctx, http.MethodPost, "/api/uploads/profile-picture", map[string]string{"fileName": fileName, "fileType": fileType}, &res)
	return res.URL, res.FileName, err
}
