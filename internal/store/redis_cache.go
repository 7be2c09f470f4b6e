package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/analytics-eventqueue/internal/analytics"
)

// RedisCacheStore wraps a Backend with Redis caching for reads.
type RedisCacheStore struct {
	store  Backend
	client *redis.Client
	prefix string
	ttl    time.Duration
	owned  bool
}

// NewRedisCacheStore creates a new Redis-cached backend decorator.
func NewRedisCacheStore(store Backend, client *redis.Client, ttl time.Duration) *RedisCacheStore {
	return &RedisCacheStore{
		store:  store,
		client: client,
		prefix: "pref-cache:",
		ttl:    ttl,
	}
}

// Get returns the cached value, falling back to the underlying store on a miss.
func (r *RedisCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	if value, err := r.client.Get(ctx, r.prefix+key).Bytes(); err == nil {
		return value, nil
	}

	value, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	_ = r.cache(ctx, key, value)

	return value, nil
}

// Set evicts the cached value, writes to the underlying store and then caches the new value.
// Values change on every put, so a write is refused when the old value cannot be evicted.
func (r *RedisCacheStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.evict(ctx, key); err != nil {
		return err
	}

	if err := r.store.Set(ctx, key, value); err != nil {
		return err
	}

	if err := r.cache(ctx, key, value); err != nil {
		_ = r.evict(ctx, key)
	}

	return nil
}

// Delete removes the key from the cache and the underlying store.
func (r *RedisCacheStore) Delete(ctx context.Context, key string) error {
	if err := r.evict(ctx, key); err != nil {
		return err
	}

	return r.store.Delete(ctx, key)
}

// Ping checks both the cache and the underlying store.
func (r *RedisCacheStore) Ping(ctx context.Context) error {
	return errors.Join(r.client.Ping(ctx).Err(), r.store.Ping(ctx))
}

// Close closes the underlying store, and the Redis client when the decorator opened it.
func (r *RedisCacheStore) Close() error {
	err := r.store.Close()

	if r.owned {
		err = errors.Join(err, r.client.Close())
	}

	return err
}

func (r *RedisCacheStore) cache(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *RedisCacheStore) evict(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("evict cached %s: %w", key, err)
	}

	return nil
}

// Compile-time checks.
var (
	_ Backend                 = (*RedisCacheStore)(nil)
	_ analytics.PropertyStore = (*RedisCacheStore)(nil)
)
