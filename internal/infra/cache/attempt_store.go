package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodcart/internal/payment"

	"github.com/redis/go-redis/v9"
)

// RedisAttemptStore records the first settlement verdict with SET NX.
type RedisAttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAttemptStore(client *redis.Client, ttl time.Duration) *RedisAttemptStore {
	return &RedisAttemptStore{client: client, ttl: ttl}
}

var _ payment.AttemptStore = (*RedisAttemptStore)(nil)

func (s *RedisAttemptStore) Get(ctx context.Context, key string) (payment.AttemptState, error) {
	v, err := s.client.Get(ctx, attemptKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return payment.AttemptNone, nil
	}
	if err != nil {
		return payment.AttemptNone, fmt.Errorf("redis get failed: %w", err)
	}
	return payment.AttemptState(v), nil
}

func (s *RedisAttemptStore) Record(ctx context.Context, key string, state payment.AttemptState) (payment.AttemptState, error) {
	ok, err := s.client.SetNX(ctx, attemptKey(key), string(state), s.ttl).Result()
	if err != nil {
		return payment.AttemptNone, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return state, nil
	}
	return s.Get(ctx, key)
}

func attemptKey(key string) string {
	return "settlement:" + key
}
