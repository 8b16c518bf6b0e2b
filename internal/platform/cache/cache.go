// Package cache is the read-through cache behind session reads.
//
// Entries expire lazily: Badger drops expired keys on read and compaction,
// Redis uses native TTLs. Nothing runs in the background.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/syncraft-backend/internal/observability"
	"github.com/yungbote/syncraft-backend/internal/pkg/envutil"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

type Cache interface {
	// Get returns (nil, false, nil) on a miss or an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores val; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// NewFromEnv picks the backend from CACHE_BACKEND (badger by default).
//
//	badger: CACHE_BADGER_PATH ("" keeps everything in memory)
//	redis:  REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//	none:   every read misses
func NewFromEnv(log *logger.Logger) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("cache: logger required")
	}
	backend := strings.ToLower(strings.TrimSpace(envutil.GetEnv("CACHE_BACKEND", BackendBadger, log)))
	switch backend {
	case BackendBadger, "":
		return NewBadger(envutil.GetEnv("CACHE_BADGER_PATH", "", log), log)
	case BackendRedis:
		return NewRedisFromEnv(log)
	case BackendNone, "noop", "off":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("cache: unknown CACHE_BACKEND %q", backend)
	}
}

// GetJSON decodes a cached value into dst. A corrupt entry is dropped and
// reported as a miss.
func GetJSON(ctx context.Context, c Cache, key string, dst any) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, ok, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if ok {
		if err := json.Unmarshal(raw, dst); err != nil {
			_ = c.Delete(ctx, key)
			ok = false
		}
	}
	observability.Current().ObserveCacheLookup(Keyspace(key), ok)
	return ok, nil
}

func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// Keyspace is the key's leading segment ("session" for "session:123").
func Keyspace(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error                  { return nil }
func (Noop) DeletePrefix(context.Context, string) error               { return nil }
func (Noop) Close() error                                             { return nil }
