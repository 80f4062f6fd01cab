package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultName is the session cookie name used when none is configured.
const DefaultName = "bulwark_session"

// ErrSessionMissing indicates a nil session passed to a store.
var ErrSessionMissing = errors.New("session missing")

// Store loads and persists server-side sessions identified by a cookie.
type Store interface {
	Get(r *http.Request) (*Session, error)
	Save(w http.ResponseWriter, session *Session) error
	Clear(w http.ResponseWriter, session *Session)
}

// Session is the per-client server-side state handle. A Session is owned by
// one request; stores copy values on load and save.
type Session struct {
	ID     string
	Values map[string]string
	isNew  bool
}

// New returns an unsaved session with a fresh ID.
func New() *Session {
	return &Session{ID: newSessionID(), Values: map[string]string{}, isNew: true}
}

// IsNew reports whether the session has not been persisted yet.
func (s *Session) IsNew() bool {
	return s.isNew
}

// Get returns a value.
func (s *Session) Get(key string) string {
	return s.Values[key]
}

// Lookup returns a value and whether it is set.
func (s *Session) Lookup(key string) (string, bool) {
	value, ok := s.Values[key]
	return value, ok
}

// Set sets a key value.
func (s *Session) Set(key, value string) {
	if s.Values == nil {
		s.Values = map[string]string{}
	}
	s.Values[key] = value
}

// Delete removes a key.
func (s *Session) Delete(key string) {
	delete(s.Values, key)
}

// CookieOptions describes the session ID cookie.
type CookieOptions struct {
	Name     string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

func defaultCookie(name string) CookieOptions {
	if name == "" {
		name = DefaultName
	}
	return CookieOptions{Name: name, Path: "/", HTTPOnly: true, SameSite: http.SameSiteLaxMode}
}

func (o CookieOptions) write(w http.ResponseWriter, id string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     o.Name,
		Value:    id,
		Path:     o.Path,
		Secure:   o.Secure,
		HttpOnly: o.HTTPOnly,
		SameSite: o.SameSite,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, cookie)
}

func (o CookieOptions) expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     o.Path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   o.Secure,
		HttpOnly: o.HTTPOnly,
		SameSite: o.SameSite,
	})
}

// sessionID reads the cookie value; malformed IDs are treated as absent.
func (o CookieOptions) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(o.Name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

func newSessionID() string {
	return uuid.NewString()
}

func reset(session *Session) {
	session.Values = map[string]string{}
	session.isNew = true
	session.ID = ""
}

func copyValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}
