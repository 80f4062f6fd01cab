package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "bulwark:sessions:"

// RedisOptions configures a Redis store.
type RedisOptions struct {
	Client goredis.Cmdable
	Name   string
	TTL    time.Duration
	Prefix string
	Cookie []Option
}

// RedisStore stores JSON-encoded session values in Redis under prefix+id.
// Concurrent saves of one session are last-writer-wins.
type RedisStore struct {
	client goredis.Cmdable
	cookie CookieOptions
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(options RedisOptions) (*RedisStore, error) {
	if options.Client == nil {
		return nil, errors.New("session: redis client is required")
	}
	prefix := options.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	store := &RedisStore{
		client: options.Client,
		cookie: defaultCookie(options.Name),
		ttl:    options.TTL,
		prefix: prefix,
	}
	for _, opt := range options.Cookie {
		opt(&store.cookie)
	}
	return store, nil
}

// Get loads a session from the request, or returns a new unsaved one.
func (s *RedisStore) Get(r *http.Request) (*Session, error) {
	id := s.cookie.sessionID(r)
	if id == "" {
		return New(), nil
	}

	payload, err := s.client.Get(r.Context(), s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}

	values := map[string]string{}
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return &Session{ID: id, Values: values}, nil
}

// Save persists a session and refreshes its TTL.
func (s *RedisStore) Save(w http.ResponseWriter, session *Session) error {
	if session == nil {
		return ErrSessionMissing
	}
	if session.ID == "" {
		session.ID = newSessionID()
	}

	payload, err := json.Marshal(session.Values)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	if err := s.client.Set(context.Background(), s.key(session.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}

	s.cookie.write(w, session.ID, s.ttl)
	session.isNew = false
	return nil
}

// Clear removes a session.
func (s *RedisStore) Clear(w http.ResponseWriter, session *Session) {
	if session != nil && session.ID != "" {
		_ = s.client.Del(context.Background(), s.key(session.ID)).Err()
	}
	s.cookie.expire(w)
	if session != nil {
		reset(session)
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}
