package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Kind names a PropertyStore backend.
type Kind string

const (
	KindMemory   Kind = "memory"
	KindFile     Kind = "file"
	KindSQLite   Kind = "sqlite"
	KindRedis    Kind = "redis"
	KindPostgres Kind = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Backend     Kind
	DataPath    string
	RedisAddr   string
	DatabaseURL string

	// CacheTTL enables a Redis read cache in front of non-Redis backends when positive.
	CacheTTL time.Duration
}

// Open creates the configured backend. The returned backend owns its connections.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	backend, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.CacheTTL <= 0 || cfg.RedisAddr == "" || cfg.Backend == KindRedis || cfg.Backend == KindMemory {
		return backend, nil
	}

	cached := NewRedisCacheStore(backend, redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.CacheTTL)
	cached.owned = true

	return cached, nil
}

func open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case KindMemory, "":
		return NewMemoryStore(), nil
	case KindFile:
		return NewFileStore(cfg.DataPath)
	case KindSQLite:
		if err := os.MkdirAll(cfg.DataPath, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", cfg.DataPath, err)
		}

		return NewSQLiteStore(filepath.Join(cfg.DataPath, "preferences.db"))
	case KindRedis:
		s := NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		s.owned = true

		return s, nil
	case KindPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		s := NewPostgresStore(pool)
		s.owned = true

		if err := s.Migrate(ctx); err != nil {
			pool.Close()

			return nil, err
		}

		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
