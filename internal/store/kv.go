package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atlasgrowth23/atlashvac/internal/config"

	"github.com/go-redis/redis/v8"
)

// ErrMiss no entry for the key; callers fall through to the tenant store.
var ErrMiss = errors.New("cache miss")

// DefaultOpTimeout bounds a single shared-cache call when none is configured.
const DefaultOpTimeout = 250 * time.Millisecond

// KV shared key/value tier between replicas (Redis in production).
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKV implements KV. Every call carries its own deadline so a slow Redis costs a
// request at most opTimeout before the caller falls back to the tenant store.
type RedisKV struct {
	c         *redis.Client
	opTimeout time.Duration
}

func NewRedisKV(c *redis.Client, opTimeout time.Duration) *RedisKV {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &RedisKV{c: c, opTimeout: opTimeout}
}

// NewRedisClient builds the client for the shared host cache. Dial, read and write use the
// same timeout as individual cache operations.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   1,
	})
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.c.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping checks reachability at startup; an unreachable Redis disables the shared tier.
func (r *RedisKV) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	return r.c.Ping(ctx).Err()
}
