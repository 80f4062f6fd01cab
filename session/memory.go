package session

import (
	"container/heap"
	"net/http"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

type expirationEntry struct {
	id        string
	expiresAt time.Time
}

type expirationHeap []expirationEntry

func (h expirationHeap) Len() int {
	return len(h)
}

func (h expirationHeap) Less(i, j int) bool {
	return h[i].expiresAt.Before(h[j].expiresAt)
}

func (h expirationHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *expirationHeap) Push(x any) {
	*h = append(*h, x.(expirationEntry))
}

func (h *expirationHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MemoryStore stores sessions in memory and uses a session ID cookie.
type MemoryStore struct {
	Cookie CookieOptions
	TTL    time.Duration
	Now    func() time.Time

	mu          sync.RWMutex
	sessions    map[string]memoryEntry
	expirations expirationHeap
}

// Option configures the session cookie of a store.
type Option func(*CookieOptions)

// WithPath sets the session cookie path.
func WithPath(path string) Option {
	return func(cookie *CookieOptions) {
		cookie.Path = path
	}
}

// WithSecure sets the session cookie Secure flag.
func WithSecure(enabled bool) Option {
	return func(cookie *CookieOptions) {
		cookie.Secure = enabled
	}
}

// WithSameSite sets the session cookie SameSite flag.
func WithSameSite(mode http.SameSite) Option {
	return func(cookie *CookieOptions) {
		cookie.SameSite = mode
	}
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(name string, ttl time.Duration, options ...Option) *MemoryStore {
	store := &MemoryStore{
		Cookie:   defaultCookie(name),
		TTL:      ttl,
		sessions: map[string]memoryEntry{},
	}
	for _, opt := range options {
		opt(&store.Cookie)
	}
	return store
}

// Get loads a session from the request, or returns a new unsaved one.
func (s *MemoryStore) Get(r *http.Request) (*Session, error) {
	now := s.now()
	s.maybeCleanup(now)

	id := s.Cookie.sessionID(r)
	if id == "" {
		return New(), nil
	}

	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.isExpired(entry, now) {
		if ok {
			s.mu.Lock()
			entry, ok = s.sessions[id]
			if ok && s.isExpired(entry, now) {
				delete(s.sessions, id)
			}
			s.mu.Unlock()
		}
		return New(), nil
	}

	return &Session{ID: id, Values: copyValues(entry.values)}, nil
}

// Save persists a session and refreshes its TTL.
func (s *MemoryStore) Save(w http.ResponseWriter, session *Session) error {
	if session == nil {
		return ErrSessionMissing
	}
	if session.ID == "" {
		session.ID = newSessionID()
	}

	now := s.now()
	entry := memoryEntry{values: copyValues(session.Values)}
	s.mu.Lock()
	s.cleanupExpiredLocked(now)
	if s.TTL > 0 {
		entry.expiresAt = now.Add(s.TTL)
		heap.Push(&s.expirations, expirationEntry{id: session.ID, expiresAt: entry.expiresAt})
	}
	s.sessions[session.ID] = entry
	s.mu.Unlock()

	s.Cookie.write(w, session.ID, s.TTL)
	session.isNew = false
	return nil
}

// Clear removes a session.
func (s *MemoryStore) Clear(w http.ResponseWriter, session *Session) {
	if session != nil && session.ID != "" {
		s.mu.Lock()
		delete(s.sessions, session.ID)
		s.mu.Unlock()
	}

	s.Cookie.expire(w)
	if session != nil {
		reset(session)
	}
}

// Len returns the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MemoryStore) maybeCleanup(now time.Time) {
	if s.TTL <= 0 {
		return
	}
	s.mu.RLock()
	needsCleanup := len(s.expirations) > 0 && !s.expirations[0].expiresAt.After(now)
	s.mu.RUnlock()
	if !needsCleanup {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupExpiredLocked(now)
}

func (s *MemoryStore) cleanupExpiredLocked(now time.Time) {
	if s.TTL <= 0 {
		return
	}
	for len(s.expirations) > 0 {
		entry := s.expirations[0]
		if entry.expiresAt.After(now) {
			break
		}
		heap.Pop(&s.expirations)
		stored, ok := s.sessions[entry.id]
		if !ok || !stored.expiresAt.Equal(entry.expiresAt) {
			continue
		}
		if s.isExpired(stored, now) {
			delete(s.sessions, entry.id)
		}
	}
}

func (s *MemoryStore) isExpired(entry memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}
