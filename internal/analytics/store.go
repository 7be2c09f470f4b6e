package analytics

import "context"

// EventStore appends events and hands out iterators over what is stored.
type EventStore interface {
	Put(ctx context.Context, event Event) error
	Iterator(ctx context.Context) (EventIterator, error)
}

// EventIterator walks a snapshot of an EventStore. It is single use: once RemoveReadEvents
// commits, a new iterator must be requested from the store.
type EventIterator interface {
	HasNext() bool
	Peek() (Event, error)
	Next() (Event, error)

	// RemoveReadEvents deletes every event returned by Next from the backing store.
	RemoveReadEvents(ctx context.Context) error
}

// PropertyStore is a preferences-style key-value store.
type PropertyStore interface {
	// Get returns ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
