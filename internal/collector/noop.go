package collector

import (
	"context"

	"github.com/serroba/analytics-eventqueue/internal/delivery"
	"go.uber.org/zap"
)

// Noop is a Sink that only logs batches.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new logging sink.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) Write(_ context.Context, batch *delivery.Batch) error {
	n.logger.Info("batch received",
		zap.String("batchId", batch.ID),
		zap.String("appId", batch.AppID),
		zap.String("uniqueId", batch.UniqueID),
		zap.Int("count", len(batch.Events)),
		zap.Time("sentAt", batch.SentAt),
	)

	return nil
}
