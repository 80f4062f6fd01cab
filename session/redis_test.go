package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmarvs/bulwark/internal/redistest"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	server, client := redistest.Start(t)
	store, err := NewRedisStore(RedisOptions{Client: client, TTL: time.Minute})
	require.NoError(t, err)

	sess, err := store.Get(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, sess.IsNew())

	sess.Set("user_id", "123")
	req := roundTrip(t, store, sess)

	key := DefaultRedisPrefix + sess.ID
	assert.True(t, server.Exists(key))
	assert.Equal(t, time.Minute, server.TTL(key))

	loaded, err := store.Get(req)
	require.NoError(t, err)
	assert.Equal(t, "123", loaded.Get("user_id"))
	assert.False(t, loaded.IsNew())

	store.Clear(httptest.NewRecorder(), loaded)
	assert.False(t, server.Exists(key))

	fresh, err := store.Get(req)
	require.NoError(t, err)
	assert.True(t, fresh.IsNew())
}

func TestRedisStoreExpiry(t *testing.T) {
	server, client := redistest.Start(t)
	store, err := NewRedisStore(RedisOptions{Client: client, TTL: time.Minute, Prefix: "test:"})
	require.NoError(t, err)

	sess := New()
	sess.Set("k", "v")
	req := roundTrip(t, store, sess)

	server.FastForward(2 * time.Minute)
	loaded, err := store.Get(req)
	require.NoError(t, err)
	assert.True(t, loaded.IsNew())
	assert.Empty(t, loaded.Get("k"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	server, client := redistest.Start(t)
	store, err := NewRedisStore(RedisOptions{Client: client})
	require.NoError(t, err)

	sess := New()
	req := roundTrip(t, store, sess)
	server.Close()

	_, err = store.Get(req)
	require.Error(t, err)
}

func TestRedisStoreRequiresClient(t *testing.T) {
	_, err := NewRedisStore(RedisOptions{})
	require.Error(t, err)
}
