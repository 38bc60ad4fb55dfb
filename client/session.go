package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"studysync/models"

	"github.com/rs/zerolog"
)

// SessionAPI is the part of *Client the session resolver needs
type SessionAPI interface {
	User(ctx context.Context) (*models.User, error)
	EmailLogin(ctx context.Context, email, password string) (*AuthResult, error)
	EmailSignup(ctx context.Context, name, email, password string) (*AuthResult, error)
	CompleteProfile(ctx context.Context, p Profile) (*AuthResult, error)
	Logout(ctx context.Context) error
}

// State is a snapshot of the resolved identity
type State struct {
	Loading         bool
	IsAuthenticated bool
	User            *models.User
	// Local is set when the identity was created offline and never confirmed by the server
	Local bool
}

// Session owns the process-wide identity. Pass it to the components that need it.
type Session struct {
	api   SessionAPI
	cache IdentityCache
	log   zerolog.Logger
	now   func() time.Time

	once  sync.Once
	mu    sync.RWMutex
	state State
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithSessionLogger sets the session logger
func WithSessionLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithClock replaces time.Now, used for local identity ids
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession returns an unresolved session. cache may be nil.
func NewSession(api SessionAPI, cache IdentityCache, opts ...SessionOption) *Session {
	s := &Session{
		api:   api,
		cache: cache,
		log:   zerolog.Nop(),
		now:   time.Now,
		state: State{Loading: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current identity
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) set(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Resolve asks the server for the session user once. Failures fall back to the
// cached identity and are never returned.
func (s *Session) Resolve(ctx context.Context) State {
	s.once.Do(func() {
		user, err := s.api.User(ctx)
		if err == nil {
			s.set(State{IsAuthenticated: true, User: user})
			s.persist(user, false)
			return
		}
		s.log.Debug().Err(err).Msg("Session check failed, trying cached identity")

		cached := s.loadCache()
		if cached == nil {
			s.set(State{})
			return
		}
		s.set(State{IsAuthenticated: true, User: cached.User, Local: cached.Local})
	})
	return s.State()
}

func (s *Session) loadCache() *CachedIdentity {
	if s.cache == nil {
		return nil
	}
	id, err := s.cache.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read cached identity")
		return nil
	}
	return id
}

func (s *Session) persist(u *models.User, local bool) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(&CachedIdentity{User: u, Local: local}); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache identity")
	}
}

// localUser builds the offline pseudo-identity
func (s *Session) localUser(email, first, last string) *models.User {
	return &models.User{
		ID:        s.now().UnixMilli(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		FirstName: first,
		LastName:  last,
		CreatedAt: s.now().UTC(),
	}
}

func (s *Session) finish(user *models.User, local bool) *models.User {
	s.once.Do(func() {})
	s.set(State{IsAuthenticated: true, User: user, Local: local})
	s.persist(user, local)
	return user
}

// Login signs in with email and password. When the server is unreachable the user is
// signed in locally and State().Local is set.
func (s *Session) Login(ctx context.Context, email, password string) (*models.User, error) {
	res, err := s.api.EmailLogin(ctx, email, password)
	switch {
	case err == nil && res.User != nil:
		return s.finish(res.User, false), nil
	case err == nil:
		return nil, &AppError{Message: res.Message}
	case IsTransport(err):
		s.log.Warn().Err(err).Msg("Server unreachable, signing in locally")
		first, _, _ := strings.Cut(strings.TrimSpace(email), "@")
		return s.finish(s.localUser(email, first, ""), true), nil
	}
	return nil, err
}

// Signup registers an account. Offline behavior matches Login.
func (s *Session) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	res, err := s.api.EmailSignup(ctx, name, email, password)
	switch {
	case err == nil && res.User != nil:
		return s.finish(res.User, false), nil
	case err == nil:
		return nil, &AppError{Message: res.Message, UserExists: res.UserExists}
	case IsTransport(err):
		s.log.Warn().Err(err).Msg("Server unreachable, signing up locally")
		first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
		if first == "" {
			first, _, _ = strings.Cut(strings.TrimSpace(email), "@")
		}
		return s.finish(s.localUser(email, first, strings.TrimSpace(last)), true), nil
	}
	return nil, err
}

// CompleteProfile submits the setup form. Offline, the profile is merged into the
// cached identity and marked completed.
func (s *Session) CompleteProfile(ctx context.Context, p Profile) (*models.User, error) {
	st := s.State()
	if !st.IsAuthenticated || st.User == nil {
		return nil, ErrNotAuthenticated
	}
	res, err := s.api.CompleteProfile(ctx, p)
	switch {
	case err == nil && res.User != nil:
		return s.finish(res.User, false), nil
	case err == nil:
		return nil, &AppError{Message: res.Message}
	case !IsTransport(err):
		return nil, err
	}

	s.log.Warn().Err(err).Msg("Server unreachable, saving profile locally")
	u := *st.User
	mergeProfile(&u, p)
	u.ProfileCompleted = true
	return s.finish(&u, st.Local), nil
}

func mergeProfile(u *models.User, p Profile) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&u.FirstName, p.FirstName)
	set(&u.LastName, p.LastName)
	set(&u.Major, p.Major)
	set(&u.Year, p.Year)
	set(&u.StudyStyle, p.StudyStyle)
	set(&u.Bio, p.Bio)
	set(&u.Location, p.Location)
	if len(p.Classes) > 0 {
		u.Classes = p.Classes
	}
	if len(p.Goals) > 0 {
		u.Goals = p.Goals
	}
	if len(p.PreferredLocations) > 0 {
		u.PreferredLocations = p.PreferredLocations
	}
	if p.Availability != nil {
		u.Availability = p.Availability
	}
	if p.PrefersGroups != nil {
		u.PrefersGroups = *p.PrefersGroups
	}
	if p.Latitude != nil && p.Longitude != nil {
		u.Latitude, u.Longitude = p.Latitude, p.Longitude
	}
}

// Logout ends the server session best-effort and always forgets the identity.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.log.Debug().Err(err).Msg("Server logout failed")
	}
	s.once.Do(func() {})
	s.set(State{})
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear()
}
