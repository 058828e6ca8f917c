package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const markerKeyPrefix = "rewind:done:"

// redisCmdable is the slice of the go-redis API the marker store uses, kept
// narrow so tests can fake it.
type redisCmdable interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisMarkerStore keeps completion markers in Redis, so the reuse window
// holds across replicas and restarts. Redis expiry does the TTL work.
type RedisMarkerStore struct {
	client redisCmdable
}

// Compile-time interface check.
var _ MarkerStore = (*RedisMarkerStore)(nil)

// NewRedisMarkerStore connects a marker store to the Redis at addr.
func NewRedisMarkerStore(addr string) *RedisMarkerStore {
	return &RedisMarkerStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func markerKey(key Key) string {
	return markerKeyPrefix + key.String()
}

// MarkComplete records a completion that Redis expires after ttl.
func (s *RedisMarkerStore) MarkComplete(ctx context.Context, key Key, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, markerKey(key), 1, ttl).Err(); err != nil {
		return fmt.Errorf("mark %s complete: %w", key, err)
	}

	return nil
}

// IsComplete reports whether the key has an unexpired completion marker.
func (s *RedisMarkerStore) IsComplete(ctx context.Context, key Key) (bool, error) {
	n, err := s.client.Exists(ctx, markerKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("check %s completion: %w", key, err)
	}

	return n > 0, nil
}

// Close releases the Redis connection pool.
func (s *RedisMarkerStore) Close() error {
	return s.client.Close()
}
