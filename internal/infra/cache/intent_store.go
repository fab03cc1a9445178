package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"foodcart/internal/payment"

	"github.com/redis/go-redis/v9"
)

// RedisIntentStore keeps intent records as JSON under intent:{id}.
type RedisIntentStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIntentStore(client *redis.Client, ttl time.Duration) *RedisIntentStore {
	return &RedisIntentStore{client: client, ttl: ttl}
}

var _ payment.IntentStore = (*RedisIntentStore)(nil)

func (s *RedisIntentStore) Put(ctx context.Context, rec payment.IntentRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, intentKey(rec.IntentID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisIntentStore) Get(ctx context.Context, intentID string) (payment.IntentRecord, error) {
	b, err := s.client.Get(ctx, intentKey(intentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return payment.IntentRecord{}, payment.ErrUnknownIntent
	}
	if err != nil {
		return payment.IntentRecord{}, fmt.Errorf("redis get failed: %w", err)
	}

	var rec payment.IntentRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return payment.IntentRecord{}, fmt.Errorf("decode intent %s: %w", intentID, err)
	}
	return rec, nil
}

func intentKey(id string) string {
	return "intent:" + id
}
