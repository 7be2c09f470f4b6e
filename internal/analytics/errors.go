package analytics

import "errors"

var (
	// ErrStorageWrite is returned when an event could not be persisted.
	ErrStorageWrite = errors.New("event storage write failed")

	// ErrStorageRead is returned when stored events could not be loaded.
	ErrStorageRead = errors.New("event storage read failed")

	// ErrInvalidIteratorState is returned by Peek and Next once the iterator is exhausted.
	ErrInvalidIteratorState = errors.New("iterator has no next event")

	// ErrStaleIterator is returned when an iterator's snapshot no longer matches the store,
	// either because it already committed a removal or another iterator did.
	ErrStaleIterator = errors.New("iterator is stale")

	// ErrStoreFull is returned when a put would exceed the configured storage capacity.
	ErrStoreFull = errors.New("event store is full")

	// ErrNotFound is returned by property stores when a key does not exist.
	ErrNotFound = errors.New("property not found")

	// ErrInvalidContext is returned when a client context cannot name a namespace.
	ErrInvalidContext = errors.New("invalid client context")
)
