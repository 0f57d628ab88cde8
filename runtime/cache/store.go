// Package cache implements the per-request cache policy enforcement law
// (§4.5): after a step yields a unary item, the enforcer inspects the
// in-flight cache policy and status carried in pipelinectx and decides
// whether the item passes through, is substituted with a cached value, is
// dropped, or fails the item outright.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheRequired is returned for REQUIRE_CACHE items that reach the
// enforcer without a recorded cache hit for the current hop.
var ErrCacheRequired = errors.New("cache: REQUIRE_CACHE policy but no cache hit recorded for this hop")

// Store is the cache backing store consulted for SKIP_IF_PRESENT
// substitution and populated on cache misses.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
}

// RedisStore is a Redis-backed Store, serializing values as JSON.
type RedisStore[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption[T any] func(*RedisStore[T])

// WithPrefix sets the key prefix for Redis keys. Default is "flowforge:cache".
func WithPrefix[T any](prefix string) RedisOption[T] {
	return func(s *RedisStore[T]) {
		s.prefix = prefix
	}
}

// WithTTL sets the time-to-live applied to entries written via Set.
// Default is 1 hour; zero disables expiration.
func WithTTL[T any](ttl time.Duration) RedisOption[T] {
	return func(s *RedisStore[T]) {
		s.ttl = ttl
	}
}

// NewRedisStore creates a Redis-backed cache store.
func NewRedisStore[T any](client *redis.Client, opts ...RedisOption[T]) *RedisStore[T] {
	s := &RedisStore[T]{
		client: client,
		prefix: "flowforge:cache",
		ttl:    time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore[T]) fullKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Get retrieves and unmarshals a cached value. ok is false on a cache miss.
func (s *RedisStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	data, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("cache: redis get failed: %w", err)
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("cache: unmarshal failed: %w", err)
	}
	return value, true, nil
}

// Set marshals and stores a value under key with the store's configured TTL.
func (s *RedisStore[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal failed: %w", err)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, s.fullKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set failed: %w", err)
	}
	return nil
}
