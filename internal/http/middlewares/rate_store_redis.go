package middlewares

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateStore shares fixed-window counters between replicas.
type RedisRateStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRateStore(client *redis.Client, prefix string) *RedisRateStore {
	if prefix == "" {
		prefix = "authhub:ratelimit:"
	}

	return &RedisRateStore{client: client, prefix: prefix}
}

func (s *RedisRateStore) Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	k := s.prefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	resetIn := ttl.Val()

	// first hit of a window, or a key that somehow lost its expiry
	if incr.Val() == 1 || resetIn < 0 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, err
		}
		resetIn = window
	}

	return int(incr.Val()), resetIn, nil
}
