package helpers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// SessionName is the cookie that carries the login session
const SessionName = "studysync-session"

const (
	sessionUserID    = "userId"
	sessionUserEmail = "userEmail"
)

type ctxKey struct{}

// NewSessionStore builds the cookie store. An empty secret gets a random per-process key,
// so sessions do not survive a restart.
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionUserID returns the user stored in the request's session cookie
func SessionUserID(store sessions.Store, r *http.Request) (int64, bool) {
	sess, err := store.Get(r, SessionName)
	if err != nil {
		return 0, false
	}
	id, ok := sess.Values[sessionUserID].(int64)
	return id, ok && id != 0
}

// SaveLogin records the user in the session cookie
func SaveLogin(store sessions.Store, w http.ResponseWriter, r *http.Request, userID int64, email string) error {
	sess, _ := store.Get(r, SessionName)
	sess.Values[sessionUserID] = userID
	sess.Values[sessionUserEmail] = email
	return sess.Save(r, w)
}

// ClearLogin expires the session cookie
func ClearLogin(store sessions.Store, w http.ResponseWriter, r *http.Request) error {
	sess, _ := store.Get(r, SessionName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// WithUserID stores the authenticated user id in ctx
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// UserIDFrom returns the id stored by WithUserID
func UserIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}
