package analytics

import "context"

// snapshotIterator walks the events a PropertyEventStore held when the iterator was created.
type snapshotIterator struct {
	store      *PropertyEventStore
	events     []Event
	cursor     int
	generation uint64
	committed  bool
}

func (it *snapshotIterator) HasNext() bool {
	return !it.committed && it.cursor < len(it.events)
}

func (it *snapshotIterator) Peek() (Event, error) {
	if !it.HasNext() {
		return "", ErrInvalidIteratorState
	}

	return it.events[it.cursor], nil
}

func (it *snapshotIterator) Next() (Event, error) {
	if !it.HasNext() {
		return "", ErrInvalidIteratorState
	}

	event := it.events[it.cursor]
	it.cursor++

	return event, nil
}

// RemoveReadEvents commits the removal of every event returned by Next. The iterator is
// stale afterwards.
func (it *snapshotIterator) RemoveReadEvents(ctx context.Context) error {
	if it.committed {
		return ErrStaleIterator
	}

	if err := it.store.removeRead(ctx, it.events[:it.cursor], it.generation); err != nil {
		return err
	}

	it.committed = true

	return nil
}
