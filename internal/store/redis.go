package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/analytics-eventqueue/internal/analytics"
)

// RedisStore is a Redis implementation of analytics.PropertyStore.
type RedisStore struct {
	client *redis.Client
	prefix string // "pref:" for key->value (string keys)
	owned  bool
}

// NewRedisStore creates a new Redis-backed property store. The client is managed by the caller.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "pref:",
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, analytics.ErrNotFound
		}

		return nil, err
	}

	return value, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := r.client.Del(ctx, r.prefix+key).Result()
	if err != nil {
		return err
	}

	if n == 0 {
		return analytics.ErrNotFound
	}

	return nil
}

// Ping checks Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client only when the store opened it itself.
func (r *RedisStore) Close() error {
	if !r.owned {
		return nil
	}

	return r.client.Close()
}

// Compile-time check.
var _ Backend = (*RedisStore)(nil)
