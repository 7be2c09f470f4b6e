// Package store provides PropertyStore backends for the event queue.
package store

import (
	"context"

	"github.com/serroba/analytics-eventqueue/internal/analytics"
)

// Backend is a PropertyStore that owns a connection or file handle.
type Backend interface {
	analytics.PropertyStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}
