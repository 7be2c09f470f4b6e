package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/analytics-eventqueue/internal/container"
	"github.com/serroba/analytics-eventqueue/internal/delivery"
	"github.com/serroba/analytics-eventqueue/internal/messaging"
	"go.uber.org/zap"
)

func registerPackages(injector *do.Injector, options *container.Options) {
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector)
	container.MetricsPackage(injector)
	container.RedisPackage(injector)
	container.StoragePackage(injector)
	container.EventStorePackage(injector)
	container.BusPackage(injector)
	container.PublisherGroupPackage(injector)
	container.DeliveryPackage(injector)
	container.ConsumerGroupPackage(injector)
	container.RateLimitPackage(injector)
	container.HTTPPackage(injector)
}

// startDelivery runs the in-process collector, when there is one, before the first scheduled
// delivery so that no batch is published without a subscriber.
func startDelivery(injector *do.Injector, options *container.Options, logger *zap.Logger) error {
	if do.MustInvoke[*container.Bus](injector).InProcess {
		group := do.MustInvoke[*messaging.ConsumerGroup](injector)
		if err := group.Start(context.Background()); err != nil {
			return fmt.Errorf("start collector: %w", err)
		}

		logger.Info("in-process collector started")
	}

	interval := options.FlushInterval()
	if interval == 0 {
		logger.Info("scheduled delivery disabled")

		return nil
	}

	scheduler := do.MustInvoke[*delivery.Scheduler](injector)
	if _, err := scheduler.SchedulePeriodicDelivery(interval); err != nil {
		return err
	}

	scheduler.Start()
	logger.Info("scheduled delivery started", zap.Duration("interval", interval))

	return nil
}

func main() {
	// A missing .env file is fine, flags and the environment still apply.
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		registerPackages(injector, options)

		logger := do.MustInvoke[*zap.Logger](injector)

		var server *http.Server

		hooks.OnStart(func() {
			router := do.MustInvoke[*chi.Mux](injector)

			// Invoke API to trigger route registration
			_ = do.MustInvoke[huma.API](injector)

			if err := startDelivery(injector, options, logger); err != nil {
				logger.Fatal("delivery failed to start", zap.Error(err))
			}

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting",
				zap.Int("port", options.Port),
				zap.String("backend", options.Backend),
				zap.String("appId", options.AppID),
			)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
		})
	})

	cli.Run()
}
