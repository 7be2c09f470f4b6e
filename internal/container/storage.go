package container

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/analytics-eventqueue/internal/store"
)

// Redis holds the optional shared Redis client. Client is nil when no address is configured.
type Redis struct {
	Client *redis.Client
}

// Shutdown closes the client.
func (r *Redis) Shutdown() error {
	if r.Client == nil {
		return nil
	}

	return r.Client.Close()
}

// Storage holds the opened PropertyStore backend.
type Storage struct {
	store.Backend
}

// Shutdown closes the backend.
func (s *Storage) Shutdown() error {
	return s.Close()
}

// RedisPackage provides the shared Redis client.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Redis, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.RedisAddr == "" {
			return &Redis{}, nil
		}

		return &Redis{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// StoragePackage provides the configured backend.
func StoragePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Storage, error) {
		opts := do.MustInvoke[*Options](i)

		backend, err := store.Open(context.Background(), store.Config{
			Backend:     store.Kind(opts.Backend),
			DataPath:    opts.DataPath,
			RedisAddr:   opts.RedisAddr,
			DatabaseURL: opts.DatabaseURL,
			CacheTTL:    time.Duration(opts.CacheTTLSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}

		return &Storage{Backend: backend}, nil
	})
}
