package analytics

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/serroba/analytics-eventqueue/internal/metrics"
	"go.uber.org/zap"
)

// DefaultMaxStorageBytes matches the storage cap of the mobile SDKs.
const DefaultMaxStorageBytes int64 = 5 * 1024 * 1024

// StoreOptions tunes a PropertyEventStore.
type StoreOptions struct {
	// MaxStorageBytes caps the combined size of stored events. Zero or negative disables the cap.
	MaxStorageBytes int64
	Recorder        metrics.Recorder
}

// DefaultStoreOptions returns options with the SDK storage cap.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{MaxStorageBytes: DefaultMaxStorageBytes}
}

// PropertyEventStore keeps a client's events as one ordered list inside a PropertyStore.
// All reads and writes of the list are serialized by mu.
type PropertyEventStore struct {
	mu         sync.Mutex
	props      PropertyStore
	key        string
	maxBytes   int64
	generation uint64
	recorder   metrics.Recorder
	logger     *zap.Logger
}

// NewPropertyEventStore creates an event store namespaced by the client context.
func NewPropertyEventStore(
	props PropertyStore, client ClientContext, opts StoreOptions, logger *zap.Logger,
) *PropertyEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	key := Namespace(client)

	return &PropertyEventStore{
		props:    props,
		key:      key,
		maxBytes: opts.MaxStorageBytes,
		recorder: recorder,
		logger:   logger.With(zap.String("namespace", key)),
	}
}

// Namespace returns the property key this store persists to.
func (s *PropertyEventStore) Namespace() string {
	return s.key
}

// Put appends event to the persisted sequence.
func (s *PropertyEventStore) Put(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		s.recorder.IncPut(metrics.ResultFailed)

		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	if s.maxBytes > 0 && TotalSize(events)+event.Size() > s.maxBytes {
		s.recorder.IncPut(metrics.ResultRejected)
		s.logger.Warn("event store full, dropping event",
			zap.Int("stored", len(events)),
			zap.Int64("maxBytes", s.maxBytes),
		)

		return fmt.Errorf("%w: %w", ErrStorageWrite, ErrStoreFull)
	}

	events = append(events, event)

	if err := s.save(ctx, events); err != nil {
		s.recorder.IncPut(metrics.ResultFailed)
		s.logger.Error("failed to persist event", zap.Error(err))

		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	s.recorder.IncPut(metrics.ResultSuccess)
	s.recorder.SetStored(len(events))

	return nil
}

// Iterator returns an iterator over the events stored right now. Events put afterwards
// are not visible to it.
func (s *PropertyEventStore) Iterator(ctx context.Context) (EventIterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}

	return &snapshotIterator{
		store:      s,
		events:     events,
		generation: s.generation,
	}, nil
}

// Len returns the number of stored events.
func (s *PropertyEventStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}

	return len(events), nil
}

// Size returns the combined byte size of stored events.
func (s *PropertyEventStore) Size(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}

	return TotalSize(events), nil
}

// Clear deletes every stored event. Outstanding iterators become stale.
func (s *PropertyEventStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.props.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	s.generation++
	s.recorder.SetStored(0)
	s.logger.Info("event store cleared")

	return nil
}

// removeRead drops the leading events read by an iterator. read must still be the prefix of
// the persisted sequence and no other removal may have been committed since the snapshot.
func (s *PropertyEventStore) removeRead(ctx context.Context, read []Event, generation uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return ErrStaleIterator
	}

	if len(read) == 0 {
		return nil
	}

	events, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageRead, err)
	}

	if len(events) < len(read) || !slices.Equal(events[:len(read)], read) {
		return ErrStaleIterator
	}

	remaining := events[len(read):]

	if err := s.save(ctx, remaining); err != nil {
		s.logger.Error("failed to remove read events", zap.Error(err))

		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	s.generation++
	s.recorder.AddRemoved(len(read))
	s.recorder.SetStored(len(remaining))

	s.logger.Debug("removed read events",
		zap.Int("removed", len(read)),
		zap.Int("remaining", len(remaining)),
	)

	return nil
}

func (s *PropertyEventStore) load(ctx context.Context) ([]Event, error) {
	data, err := s.props.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return decodeEvents(data)
}

func (s *PropertyEventStore) save(ctx context.Context, events []Event) error {
	data, err := encodeEvents(events)
	if err != nil {
		return err
	}

	return s.props.Set(ctx, s.key, data)
}

// Compile-time check.
var _ EventStore = (*PropertyEventStore)(nil)
