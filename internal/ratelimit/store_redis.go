package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gatepass:scanrate:"

// RedisStore shares fixed-window counters across instances. INCR plus a
// first-write EXPIRE keeps the whole operation to one round trip.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Increment adds one to the key's counter. The TTL is set only when the key
// is created, so the window is anchored to the first request in it.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, keyPrefix+key)
	pipe.ExpireNX(ctx, keyPrefix+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment scan counter: %w", err)
	}
	return incr.Val(), nil
}
