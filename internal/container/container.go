// Package container wires the service together with samber/do.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/serroba/analytics-eventqueue/internal/analytics"
	"github.com/serroba/analytics-eventqueue/internal/metrics"
	"go.uber.org/zap"
)

// Options configures the server. humacli maps every field to a flag and a SERVICE_ env var.
type Options struct {
	Port                 int    `default:"8888"       help:"Port to listen on"                                              short:"p"`
	AppID                string `default:"eventqueue" help:"Application id the stored events belong to"                     short:"a"`
	ClientID             string `default:"local"      help:"Unique id of this installation"                                 short:"u"`
	Backend              string `default:"file"       help:"Storage backend: memory, file, sqlite, redis or postgres"       short:"b"`
	DataPath             string `default:"./data"     help:"Directory for the file and sqlite backends"                     short:"d"`
	RedisAddr            string `default:""           help:"Redis address for the message bus, read cache and rate limits"  short:"r"`
	DatabaseURL          string `default:""           help:"PostgreSQL connection URL for the postgres backend"`
	CacheTTLSeconds      int    `default:"0"          help:"Redis read cache TTL in seconds, 0 disables the cache"`
	MaxStorageBytes      int    `default:"5242880"    help:"Maximum stored event bytes, 0 or less is unlimited"`
	BatchSize            int    `default:"100"        help:"Maximum events per delivered batch"`
	FlushIntervalSeconds int    `default:"30"         help:"Seconds between scheduled deliveries, 0 disables scheduling"`
	RateLimit            int    `default:"100"        help:"Ingestion requests allowed per client and window, 0 disables"`
	RateWindowSeconds    int    `default:"60"         help:"Rate limit window in seconds"`
	LogFormat            string `default:"console"    help:"Log format: console or json"`
}

// FlushInterval returns the delivery schedule interval, zero when scheduling is disabled.
func (o *Options) FlushInterval() time.Duration {
	return time.Duration(max(o.FlushIntervalSeconds, 0)) * time.Second
}

// LoggerPackage provides the service logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.LogFormat {
		case "json":
			return zap.NewProduction()
		case "console", "":
			return zap.NewDevelopment()
		default:
			return nil, fmt.Errorf("unknown log format %q", opts.LogFormat)
		}
	})
}

// EventStorePackage provides the event store of the configured client.
func EventStorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (analytics.ClientContext, error) {
		opts := do.MustInvoke[*Options](i)

		return analytics.NewClientContext(opts.AppID, opts.ClientID)
	})

	do.Provide(i, func(i *do.Injector) (*analytics.PropertyEventStore, error) {
		opts := do.MustInvoke[*Options](i)
		storage := do.MustInvoke[*Storage](i)
		client := do.MustInvoke[analytics.ClientContext](i)
		recorder := do.MustInvoke[metrics.Recorder](i)
		logger := do.MustInvoke[*zap.Logger](i)

		s := analytics.NewPropertyEventStore(storage.Backend, client, analytics.StoreOptions{
			MaxStorageBytes: int64(opts.MaxStorageBytes),
			Recorder:        recorder,
		}, logger)

		// Start the gauge from what survived the last run.
		if n, err := s.Len(context.Background()); err == nil {
			recorder.SetStored(n)
		}

		return s, nil
	})
}
