// Package collector is the consuming end of delivered batches.
package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/serroba/analytics-eventqueue/internal/delivery"
	"go.uber.org/zap"
)

// ErrInvalidBatch is returned for batches missing their id or client identity.
var ErrInvalidBatch = errors.New("invalid batch")

// Sink receives every accepted batch.
type Sink interface {
	Write(ctx context.Context, batch *delivery.Batch) error
}

// Deduplicator remembers batches that were already written. Delivery is at least once, so the
// same batch id can arrive more than once.
type Deduplicator interface {
	Seen(ctx context.Context, batchID string) (bool, error)
	Mark(ctx context.Context, batchID string) error
}

// Collector validates, deduplicates and forwards delivered batches to a Sink.
type Collector struct {
	sink   Sink
	dedup  Deduplicator
	logger *zap.Logger
}

// New creates a collector. dedup may be nil to forward every copy of a batch.
func New(sink Sink, dedup Deduplicator, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Collector{
		sink:   sink,
		dedup:  dedup,
		logger: logger,
	}
}

// Handle is a messaging.Handler for delivery.Batch. An error nacks the message.
func (c *Collector) Handle(ctx context.Context, batch *delivery.Batch) error {
	if batch.ID == "" || batch.AppID == "" {
		// Redelivering an invalid batch cannot fix it.
		c.logger.Warn("dropping invalid batch", zap.String("batchId", batch.ID), zap.String("appId", batch.AppID))

		return nil
	}

	logger := c.logger.With(zap.String("batchId", batch.ID))

	if c.dedup != nil {
		seen, err := c.dedup.Seen(ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("check batch %s: %w", batch.ID, err)
		}

		if seen {
			logger.Debug("skipping duplicate batch")

			return nil
		}
	}

	if err := c.sink.Write(ctx, batch); err != nil {
		return fmt.Errorf("write batch %s: %w", batch.ID, err)
	}

	if c.dedup != nil {
		if err := c.dedup.Mark(ctx, batch.ID); err != nil {
			// Written already; a redelivery would only duplicate it.
			logger.Warn("failed to mark batch as seen", zap.Error(err))
		}
	}

	return nil
}
