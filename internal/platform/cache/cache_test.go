package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

func newTestBadger(t *testing.T) Cache {
	t.Helper()
	c, err := NewBadger("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBadgerGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestBadger(t)

	_, ok, err := c.Get(ctx, "session:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "session:1", []byte("v1"), time.Minute))
	got, ok, err := c.Get(ctx, "session:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", string(got))

	require.NoError(t, c.Delete(ctx, "session:1", "session:missing"))
	_, ok, err = c.Get(ctx, "session:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBadgerExpiresEntries(t *testing.T) {
	ctx := context.Background()
	c := newTestBadger(t)

	// Badger TTLs have one-second resolution.
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	time.Sleep(2100 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry should have expired")
}

func TestBadgerDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := newTestBadger(t)

	for _, k := range []string{"sessions:u1:20:0", "sessions:u1:20:20", "sessions:u2:20:0", "session:x"} {
		require.NoError(t, c.Set(ctx, k, []byte("v"), 0))
	}
	require.NoError(t, c.DeletePrefix(ctx, "sessions:u1:"))

	for k, want := range map[string]bool{
		"sessions:u1:20:0":  false,
		"sessions:u1:20:20": false,
		"sessions:u2:20:0":  true,
		"session:x":         true,
	} {
		_, ok, err := c.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, want, ok, k)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := newTestBadger(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, SetJSON(ctx, c, "session:abc", payload{Name: "n", Count: 3}, time.Minute))

	var out payload
	ok, err := GetJSON(ctx, c, "session:abc", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload{Name: "n", Count: 3}, out)

	require.NoError(t, c.Set(ctx, "session:bad", []byte("{not json"), time.Minute))
	ok, err = GetJSON(ctx, c, "session:bad", &out)
	require.NoError(t, err)
	assert.False(t, ok)
	_, present, err := c.Get(ctx, "session:bad")
	require.NoError(t, err)
	assert.False(t, present, "corrupt entry should be dropped")

	ok, err = GetJSON(ctx, nil, "session:abc", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyspace(t *testing.T) {
	assert.Equal(t, "session", Keyspace("session:123"))
	assert.Equal(t, "sessions", Keyspace("sessions:u:20:0"))
	assert.Equal(t, "plain", Keyspace("plain"))
	assert.Equal(t, ":lead", Keyspace(":lead"))
}

func TestNewFromEnvSelectsBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "none")
	c, err := NewFromEnv(logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)

	t.Setenv("CACHE_BACKEND", "memcached")
	_, err = NewFromEnv(logger.Nop())
	assert.Error(t, err)

	t.Setenv("CACHE_BACKEND", "badger")
	t.Setenv("CACHE_BADGER_PATH", "")
	c, err = NewFromEnv(logger.Nop())
	require.NoError(t, err)
	_ = c.Close()
}
