package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redisMaxRetries     = 3
	redisInitialBackoff = 100 * time.Millisecond
	redisPingTimeout    = 5 * time.Second
)

// RedisStore delegates expiry to Redis itself.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Connect returns a Redis backed store for redisURL, or the in-process fallback when the URL is
// empty, unparsable or the server does not answer. Degrading is logged, never fatal.
func Connect(ctx context.Context, redisURL string) Store {
	if redisURL == "" {
		log.Warn().Msg("REDIS_URL not set, using in-process store (not shared, not persistent)")
		return NewMemoryStore()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid REDIS_URL, using in-process store")
		return NewMemoryStore()
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("redis unreachable, using in-process store")
		_ = client.Close()
		return NewMemoryStore()
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")
	return NewRedisStore(client)
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := retryRedisOperation(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.Set(ctx, key, value, ttl).Err()
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := retryRedisOperation(ctx, func() ([]byte, error) {
		return s.client.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *RedisStore) Replace(ctx context.Context, key string, value []byte) error {
	// XX refuses to resurrect an expired key, KEEPTTL leaves the deadline untouched.
	_, err := retryRedisOperation(ctx, func() (string, error) {
		return s.client.SetArgs(ctx, key, value, redis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	})
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	_, err := retryRedisOperation(ctx, func() (int64, error) {
		return s.client.Del(ctx, key).Result()
	})
	return err
}

func (s *RedisStore) TTL(ctx context.Context, key string) (int64, error) {
	d, err := retryRedisOperation(ctx, func() (time.Duration, error) {
		return s.client.TTL(ctx, key).Result()
	})
	if err != nil {
		return Absent, err
	}
	// go-redis reports the -1/-2 sentinels as raw durations.
	switch d {
	case -2:
		return Absent, nil
	case -1:
		return NoExpiry, nil
	}
	return int64(math.Ceil(d.Seconds())), nil
}

func (s *RedisStore) Kind() string {
	return KindRedis
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// retryRedisOperation executes a Redis operation with retry logic and exponential backoff.
// redis.Nil is an answer, not a failure, and is returned immediately.
func retryRedisOperation[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt < redisMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := redisInitialBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := operation()
		if err == nil || errors.Is(err, redis.Nil) {
			return result, err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("redis operation failed after %d retries: %w", redisMaxRetries, lastErr)
}
