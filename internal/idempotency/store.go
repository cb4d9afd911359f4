// Package idempotency guards notification delivery so that a reminder or
// digest is dispatched at most once, even when the polling scan and a
// precise one-shot trigger both decide it is due.
package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store marks delivery keys. A successful Acquire means the caller owns the
// only delivery attempt for that key until the TTL expires. There is no
// release: at-most-once delivery keeps the claim even when the send fails.
type Store interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisStore implements Store with SETNX; the TTL doubles as cleanup, so no
// separate sweeper is needed.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log,
	}
}

func (s *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		s.log.Error("failed to acquire delivery key", slog.String("key", key), slog.Any("error", err))
		return false, err
	}

	return acquired, nil
}
