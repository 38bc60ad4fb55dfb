package client

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"studysync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOffline = &TransportError{Op: "GET /api/auth/user", Err: &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}}

type fakeSessionAPI struct {
	userCalls int32
	user      *models.User
	userErr   error
	loginRes  *AuthResult
	loginErr  error
	signupErr error
	profile   *AuthResult
	profErr   error
	loggedOut bool
}

func (f *fakeSessionAPI) User(context.Context) (*models.User, error) {
	atomic.AddInt32(&f.userCalls, 1)
	return f.user, f.userErr
}

func (f *fakeSessionAPI) EmailLogin(context.Context, string, string) (*AuthResult, error) {
	return f.loginRes, f.loginErr
}

func (f *fakeSessionAPI) EmailSignup(context.Context, string, string, string) (*AuthResult, error) {
	return nil, f.signupErr
}

func (f *fakeSessionAPI) CompleteProfile(context.Context, Profile) (*AuthResult, error) {
	return f.profile, f.profErr
}

func (f *fakeSessionAPI) Logout(context.Context) error {
	f.loggedOut = true
	return errOffline
}

func newCache(t *testing.T) *BoltCache {
	t.Helper()
	c, err := NewBoltCache(t.TempDir())
	require.NoError(t, err)
	return c
}

func TestSession_ResolveUsesServerOnce(t *testing.T) {
	t.Parallel()
	api := &fakeSessionAPI{user: &models.User{ID: 3, Email: "alice@asu.edu", Major: "CS", ProfileCompleted: true}}
	cache := newCache(t)
	s := NewSession(api, cache)

	assert.True(t, s.State().Loading)
	st := s.Resolve(context.Background())
	assert.False(t, st.Loading)
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, int64(3), st.User.ID)

	s.Resolve(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.userCalls))

	cached, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "alice@asu.edu", cached.User.Email)
}

func TestSession_FallsBackToCachedIdentity(t *testing.T) {
	t.Parallel()
	cache := newCache(t)
	require.NoError(t, cache.Save(&CachedIdentity{User: &models.User{ID: 9, Email: "bob@asu.edu"}}))

	s := NewSession(&fakeSessionAPI{userErr: errOffline}, cache)
	st := s.Resolve(context.Background())
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, int64(9), st.User.ID)

	unauthorized := NewSession(&fakeSessionAPI{userErr: ErrUnauthorized}, cache)
	assert.True(t, unauthorized.Resolve(context.Background()).IsAuthenticated)
}

func TestSession_NoCacheStaysAnonymous(t *testing.T) {
	t.Parallel()
	s := NewSession(&fakeSessionAPI{userErr: errOffline}, newCache(t))
	st := s.Resolve(context.Background())
	assert.False(t, st.Loading)
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
}

func TestSession_LoginOfflineCreatesLocalIdentity(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := newCache(t)
	s := NewSession(&fakeSessionAPI{loginErr: errOffline}, cache, WithClock(func() time.Time { return now }))

	u, err := s.Login(context.Background(), "Alice@ASU.edu", "pw")
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), u.ID)
	assert.Equal(t, "alice@asu.edu", u.Email)
	assert.Equal(t, "Alice", u.FirstName)
	assert.True(t, s.State().Local)

	cached, err := cache.Load()
	require.NoError(t, err)
	assert.True(t, cached.Local)
}

func TestSession_LoginAppErrorIsReturned(t *testing.T) {
	t.Parallel()
	cache := newCache(t)
	s := NewSession(&fakeSessionAPI{loginErr: &AppError{Status: 401, Message: "Invalid email or password"}}, cache)
	_, err := s.Login(context.Background(), "a@asu.edu", "bad")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())

	cached, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestSession_CompleteProfileOffline(t *testing.T) {
	t.Parallel()
	api := &fakeSessionAPI{loginRes: &AuthResult{Success: true, User: &models.User{ID: 4, FirstName: "Al"}}, profErr: errOffline}
	s := NewSession(api, newCache(t))
	_, err := s.Login(context.Background(), "al@asu.edu", "pw")
	require.NoError(t, err)
	assert.Equal(t, Setup, DecideFor(s.State(), true))

	u, err := s.CompleteProfile(context.Background(), Profile{Major: "Computer Science", Classes: []string{"CSE110"}})
	require.NoError(t, err)
	assert.True(t, u.ProfileCompleted)
	assert.Equal(t, "Computer Science", u.Major)
	assert.Equal(t, Requested, DecideFor(s.State(), true))
}

func TestSession_LogoutAlwaysClears(t *testing.T) {
	t.Parallel()
	cache := newCache(t)
	api := &fakeSessionAPI{user: &models.User{ID: 1}}
	s := NewSession(api, cache)
	s.Resolve(context.Background())

	require.NoError(t, s.Logout(context.Background()))
	assert.True(t, api.loggedOut)
	assert.False(t, s.State().IsAuthenticated)
	cached, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestSession_CompleteProfileRequiresUser(t *testing.T) {
	t.Parallel()
	s := NewSession(&fakeSessionAPI{userErr: errOffline}, nil)
	s.Resolve(context.Background())
	_, err := s.CompleteProfile(context.Background(), Profile{Major: "x"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
