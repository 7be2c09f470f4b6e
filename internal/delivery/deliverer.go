package delivery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/serroba/analytics-eventqueue/internal/analytics"
	"github.com/serroba/analytics-eventqueue/internal/messaging"
	"github.com/serroba/analytics-eventqueue/internal/metrics"
	"go.uber.org/zap"
)

// DefaultBatchSize is used when Config.BatchSize is not positive.
const DefaultBatchSize = 100

// ErrPublish marks a batch that could not be handed to the message bus. Its events stay stored.
var ErrPublish = errors.New("publish batch")

// Config tunes a Deliverer.
type Config struct {
	// BatchSize is the maximum number of events per published batch.
	BatchSize int
	// MaxBatches bounds one pass. Zero keeps the pass going for as long as batches come back
	// full, so a steady producer can extend it.
	MaxBatches int
}

// Deliverer moves events from an EventStore onto the message bus. Events are removed only after
// their batch has been published, so delivery is at least once.
type Deliverer struct {
	store    analytics.EventStore
	client   analytics.ClientContext
	publish  messaging.Publish[Batch]
	cfg      Config
	newID    func() string
	now      func() time.Time
	recorder metrics.Recorder
	logger   *zap.Logger

	// pending is the last batch that may have reached the bus but was not removed from the
	// store. It is published again under the same id while the store still starts with it.
	pending *Batch

	// one pass at a time
	mu sync.Mutex
}

// NewDeliverer creates a deliverer for the events of client stored in store.
func NewDeliverer(
	store analytics.EventStore,
	client analytics.ClientContext,
	publish messaging.Publish[Batch],
	cfg Config,
	recorder metrics.Recorder,
	logger *zap.Logger,
) (*Deliverer, error) {
	newID, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("create batch id generator: %w", err)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Deliverer{
		store:    store,
		client:   client,
		publish:  publish,
		cfg:      cfg,
		newID:    newID,
		now:      time.Now,
		recorder: recorder,
		logger:   logger.With(zap.String("namespace", analytics.Namespace(client))),
	}, nil
}

// Deliver publishes stored events batch by batch. Each batch is read through a fresh iterator and
// committed with RemoveReadEvents once published. The pass stops at the first failure and
// reports what was delivered before it.
func (d *Deliverer) Deliver(ctx context.Context) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res Result

	for d.cfg.MaxBatches <= 0 || res.Batches < d.cfg.MaxBatches {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		n, err := d.deliverBatch(ctx)
		if err != nil {
			return res, err
		}

		if n == 0 {
			break
		}

		res.Batches++
		res.Delivered += n

		if n < d.cfg.BatchSize {
			break
		}
	}

	if res.Batches > 0 {
		d.logger.Info("delivered events", zap.Int("count", res.Delivered), zap.Int("batches", res.Batches))
	}

	return res, nil
}

// deliverBatch publishes and commits at most one batch and returns its size.
func (d *Deliverer) deliverBatch(ctx context.Context) (int, error) {
	it, err := d.store.Iterator(ctx)
	if err != nil {
		return 0, err
	}

	batch, err := d.nextBatch(it)
	if err != nil || batch == nil {
		return 0, err
	}

	d.pending = batch
	logger := d.logger.With(zap.String("batchId", batch.ID), zap.Int("count", len(batch.Events)))

	if err := d.publish(ctx, batch); err != nil {
		d.recorder.IncBatch(metrics.ResultFailed)
		logger.Error("failed to publish batch", zap.Error(err))

		return 0, fmt.Errorf("%w %s: %w", ErrPublish, batch.ID, err)
	}

	if err := it.RemoveReadEvents(ctx); err != nil {
		// The batch is out; its events stay stored and go out again next pass with the same id.
		d.recorder.IncBatch(metrics.ResultFailed)
		logger.Error("failed to remove delivered events", zap.Error(err))

		return 0, fmt.Errorf("commit batch %s: %w", batch.ID, err)
	}

	d.pending = nil
	d.recorder.IncBatch(metrics.ResultSuccess)
	d.recorder.AddDelivered(len(batch.Events))
	logger.Debug("batch delivered")

	return len(batch.Events), nil
}

// nextBatch reads the next batch from it. When the store still starts with the pending batch,
// exactly those events are read and the pending id is kept so collectors can drop the repeat.
func (d *Deliverer) nextBatch(it analytics.EventIterator) (*Batch, error) {
	limit := d.cfg.BatchSize
	if d.pending != nil {
		limit = min(limit, len(d.pending.Events))
	}

	events, err := readEvents(it, make([]analytics.Event, 0, d.cfg.BatchSize), limit)
	if err != nil {
		return nil, err
	}

	id := ""

	if d.pending != nil && slices.Equal(events, d.pending.Events) {
		id = d.pending.ID
	} else {
		d.pending = nil

		if events, err = readEvents(it, events, d.cfg.BatchSize); err != nil {
			return nil, err
		}
	}

	if len(events) == 0 {
		return nil, nil
	}

	if id == "" {
		id = d.newID()
	}

	return &Batch{
		ID:       id,
		AppID:    d.client.AppID(),
		UniqueID: d.client.UniqueID(),
		Events:   events,
		SentAt:   d.now().UTC(),
	}, nil
}

func readEvents(it analytics.EventIterator, events []analytics.Event, limit int) ([]analytics.Event, error) {
	for len(events) < limit && it.HasNext() {
		event, err := it.Next()
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}
