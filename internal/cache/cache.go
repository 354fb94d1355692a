// Package cache provides a JSON-backed Redis cache for hot read
// paths such as trust profiles and rating stats. A nil *View[T] is a
// valid no-op cache, so callers never branch on whether Redis is
// configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect dials Redis and verifies the connection with a ping.
func Connect(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return rdb, nil
}

// View is a typed cache over one kind of value. TTL of 0 means no
// expiry.
type View[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewView binds a cache view to the given key prefix and TTL. A nil
// client yields a nil view, which every method treats as a no-op.
func NewView[T any](client *redis.Client, prefix string, ttl time.Duration) *View[T] {
	if client == nil {
		return nil
	}
	return &View[T]{client: client, prefix: prefix, ttl: ttl}
}

// Get retrieves and unmarshals a value. Returns (zero, false) on a
// miss, a decode error, or a nil view.
func (v *View[T]) Get(ctx context.Context, key string) (T, bool) {
	var out T
	if v == nil {
		return out, false
	}
	data, err := v.client.Get(ctx, v.prefix+key).Result()
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return out, false
	}
	return out, true
}

// Set stores a value. Cache write failures are logged, not returned.
func (v *View[T]) Set(ctx context.Context, key string, value T) {
	if v == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		slog.WarnContext(ctx, "cache_marshal_failed", "key", v.prefix+key, "error", err)
		return
	}
	if err := v.client.Set(ctx, v.prefix+key, data, v.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "cache_write_failed", "key", v.prefix+key, "error", err)
	}
}

// Invalidate removes a key.
func (v *View[T]) Invalidate(ctx context.Context, key string) {
	if v == nil {
		return
	}
	if err := v.client.Del(ctx, v.prefix+key).Err(); err != nil {
		slog.WarnContext(ctx, "cache_delete_failed", "key", v.prefix+key, "error", err)
	}
}
