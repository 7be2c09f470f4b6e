package container

import (
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/samber/do"
	"github.com/serroba/analytics-eventqueue/internal/analytics"
	"github.com/serroba/analytics-eventqueue/internal/collector"
	"github.com/serroba/analytics-eventqueue/internal/delivery"
	"github.com/serroba/analytics-eventqueue/internal/messaging"
	"github.com/serroba/analytics-eventqueue/internal/metrics"
	"go.uber.org/zap"
)

// CollectorGroup is the Redis streams consumer group shared by collectors.
const CollectorGroup = "collector"

var errRedisRequired = errors.New("a Redis address is required to consume batches from other processes")

// dedupTTL is how long collectors remember delivered batch ids.
const dedupTTL = 24 * time.Hour

// Bus is the message transport. Without Redis, an in-process channel connects the deliverer
// to a collector running in the same process and Subscriber is that channel. With Redis,
// Subscriber is nil; collectors open their own stream subscriber.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	InProcess  bool
}

// BusPackage provides the publishing side of the transport: Redis streams when Redis is
// configured, Go channels otherwise.
func BusPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Bus, error) {
		rdb := do.MustInvoke[*Redis](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if rdb.Client == nil {
			ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, messaging.NewZapLoggerAdapter(logger))

			return &Bus{Publisher: ch, Subscriber: ch, InProcess: true}, nil
		}

		publisher, err := messaging.NewRedisPublisher(rdb.Client, logger)
		if err != nil {
			return nil, err
		}

		return &Bus{Publisher: publisher}, nil
	})
}

// PublisherGroupPackage provides the publisher lifecycle and the typed batch publish function.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		return messaging.NewPublisherGroup(do.MustInvoke[*Bus](i).Publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[delivery.Batch], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[delivery.Batch](group.Publisher(), delivery.TopicBatches), nil
	})
}

// DeliveryPackage provides the deliverer and its scheduler.
func DeliveryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*delivery.Deliverer, error) {
		opts := do.MustInvoke[*Options](i)

		return delivery.NewDeliverer(
			do.MustInvoke[*analytics.PropertyEventStore](i),
			do.MustInvoke[analytics.ClientContext](i),
			do.MustInvoke[messaging.Publish[delivery.Batch]](i),
			delivery.Config{BatchSize: opts.BatchSize},
			do.MustInvoke[metrics.Recorder](i),
			do.MustInvoke[*zap.Logger](i),
		)
	})

	do.Provide(i, func(i *do.Injector) (*delivery.Scheduler, error) {
		return delivery.NewScheduler(do.MustInvoke[*delivery.Deliverer](i), do.MustInvoke[*zap.Logger](i))
	})
}

// ConsumerGroupPackage provides the collector consumers. The group owns its subscriber and
// closes it on shutdown.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		rdb := do.MustInvoke[*Redis](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var (
			subscriber message.Subscriber
			dedup      collector.Deduplicator = collector.NewMemoryDeduplicator()
		)

		if rdb.Client == nil {
			subscriber = do.MustInvoke[*Bus](i).Subscriber
		} else {
			sub, err := messaging.NewRedisSubscriber(rdb.Client, CollectorGroup, logger)
			if err != nil {
				return nil, err
			}

			subscriber = sub
			dedup = collector.NewRedisDeduplicator(rdb.Client, dedupTTL)
		}

		c := collector.New(collector.NewNoop(logger), dedup, logger)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, delivery.TopicBatches, c.Handle, logger))

		return group, nil
	})
}

// RequireRedis fails when the transport is not shared between processes.
func RequireRedis(i *do.Injector) error {
	if do.MustInvoke[*Redis](i).Client == nil {
		return errRedisRequired
	}

	return nil
}
