package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyStore реализует domain.IdempotencyStore поверх Redis:
// короткоживущие ключи с ответом первой успешной операции
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore создает новое хранилище ключей идемпотентности
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		ttl:    ttl,
	}
}

// Get возвращает сохраненный ответ или (nil, nil), если ключа нет
func (s *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.Get(ctx, storageKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redisstore: failed to get idempotency key %q: %w", key, err)
	}

	return payload, nil
}

// Set сохраняет ответ операции с TTL
func (s *IdempotencyStore) Set(ctx context.Context, key string, payload []byte) error {
	if err := s.client.Set(ctx, storageKey(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: failed to set idempotency key %q: %w", key, err)
	}

	return nil
}

func storageKey(key string) string {
	return "idempotency:" + key
}
