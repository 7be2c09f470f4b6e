package container

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/serroba/analytics-eventqueue/internal/analytics"
	"github.com/serroba/analytics-eventqueue/internal/delivery"
	"github.com/serroba/analytics-eventqueue/internal/handlers"
	"github.com/serroba/analytics-eventqueue/internal/health"
	"github.com/serroba/analytics-eventqueue/internal/middleware"
	"github.com/serroba/analytics-eventqueue/internal/ratelimit"
	"github.com/serroba/analytics-eventqueue/internal/store"
	"go.uber.org/zap"
)

// RateLimitPackage provides the ingestion limiter. Counters live in Redis when it is configured
// so that every instance shares them.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		opts := do.MustInvoke[*Options](i)
		rdb := do.MustInvoke[*Redis](i)

		var rs ratelimit.Store = store.NewRateLimitMemoryStore()
		if rdb.Client != nil {
			rs = store.NewRateLimitRedisStore(rdb.Client)
		}

		policy := ratelimit.IngestPolicy(int64(opts.RateLimit), time.Duration(opts.RateWindowSeconds)*time.Second)

		return ratelimit.NewPolicyLimiter(rs, policy), nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		reg := do.MustInvoke[*prometheus.Registry](i)

		api := humachi.New(router, huma.DefaultConfig("Analytics Event Queue", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.PolicyRateLimiter(
				api,
				do.MustInvoke[*ratelimit.PolicyLimiter](i),
				ratelimit.NewOperationScopeResolver(),
				logger,
			),
		)

		handlers.RegisterRoutes(api, handlers.NewEventHandler(
			do.MustInvoke[*analytics.PropertyEventStore](i),
			do.MustInvoke[*delivery.Deliverer](i),
			logger,
		))
		health.RegisterRoutes(api, newHealthHandler(i))

		router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

		return api, nil
	})
}

func newHealthHandler(i *do.Injector) *health.Handler {
	storage := do.MustInvoke[*Storage](i)

	if rdb := do.MustInvoke[*Redis](i); rdb.Client != nil {
		return health.NewHandler(storage, health.NewRedisChecker(rdb.Client))
	}

	return health.NewHandler(storage, nil)
}
