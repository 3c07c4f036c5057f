package middlewares

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore backs the rate limiter with redis INCR so the window
// is shared by every replica behind the balancer.
type RedisCounterStore struct {
	rdb *redis.Client
}

func NewRedisCounterStore(rdb *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{rdb: rdb}
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	key = "ratelimit:" + key

	count, err := s.rdb.Incr(ctx, key).Result()

	if err != nil {
		return 0, time.Time{}, err
	}

	// first hit in the window owns the expiry
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, time.Time{}, err
		}

		return int(count), time.Now().Add(window), nil
	}

	ttl, err := s.rdb.TTL(ctx, key).Result()

	if err != nil || ttl < 0 {
		ttl = window
	}

	return int(count), time.Now().Add(ttl), nil
}
