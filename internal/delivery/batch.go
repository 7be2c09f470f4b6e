// Package delivery drains stored events to the message bus in batches.
package delivery

import (
	"time"

	"github.com/serroba/analytics-eventqueue/internal/analytics"
)

// TopicBatches is the topic delivered batches are published to.
const TopicBatches = "analytics.batches"

// Batch is one published group of events from a single client namespace.
type Batch struct {
	ID       string            `json:"id"`
	AppID    string            `json:"appId"`
	UniqueID string            `json:"uniqueId"`
	Events   []analytics.Event `json:"events"`
	SentAt   time.Time         `json:"sentAt"`
}

// MessageID makes redeliveries of the same batch share a message id.
func (b *Batch) MessageID() string {
	return b.ID
}

// Result summarizes one delivery pass.
type Result struct {
	Delivered int `json:"delivered"`
	Batches   int `json:"batches"`
}
