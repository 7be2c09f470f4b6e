package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduplicator records seen batch ids as expiring Redis keys shared by all collectors.
type RedisDeduplicator struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduplicator creates a deduplicator remembering batches for ttl. The client is managed by the caller.
func NewRedisDeduplicator(client *redis.Client, ttl time.Duration) *RedisDeduplicator {
	return &RedisDeduplicator{
		client: client,
		prefix: "batch-seen:",
		ttl:    ttl,
	}
}

func (d *RedisDeduplicator) Seen(ctx context.Context, batchID string) (bool, error) {
	err := d.client.Get(ctx, d.prefix+batchID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func (d *RedisDeduplicator) Mark(ctx context.Context, batchID string) error {
	return d.client.Set(ctx, d.prefix+batchID, time.Now().UTC().Unix(), d.ttl).Err()
}

// MemoryDeduplicator remembers seen batch ids in process.
type MemoryDeduplicator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDeduplicator creates an in-process deduplicator.
func NewMemoryDeduplicator() *MemoryDeduplicator {
	return &MemoryDeduplicator{seen: make(map[string]struct{})}
}

func (d *MemoryDeduplicator) Seen(_ context.Context, batchID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.seen[batchID]

	return ok, nil
}

func (d *MemoryDeduplicator) Mark(_ context.Context, batchID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen[batchID] = struct{}{}

	return nil
}

// Compile-time checks.
var (
	_ Deduplicator = (*RedisDeduplicator)(nil)
	_ Deduplicator = (*MemoryDeduplicator)(nil)
)
