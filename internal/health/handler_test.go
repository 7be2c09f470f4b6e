package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/analytics-eventqueue/internal/health"
	"github.com/serroba/analytics-eventqueue/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	err error
}

func (m *mockChecker) Ping(_ context.Context) error {
	return m.err
}

func TestHandler_Check(t *testing.T) {
	errDown := errors.New("connection refused")

	tests := []struct {
		name        string
		storage     health.Checker
		bus         health.Checker
		wantStatus  string
		wantStorage string
		wantBus     string
	}{
		{
			name:        "ok when storage is healthy",
			storage:     &mockChecker{},
			wantStatus:  "ok",
			wantStorage: "healthy",
		},
		{
			name:        "degraded when storage is unhealthy",
			storage:     &mockChecker{err: errDown},
			wantStatus:  "degraded",
			wantStorage: "unhealthy",
		},
		{
			name:        "reports the bus when configured",
			storage:     &mockChecker{},
			bus:         &mockChecker{},
			wantStatus:  "ok",
			wantStorage: "healthy",
			wantBus:     "healthy",
		},
		{
			name:        "degraded when the bus is unhealthy",
			storage:     &mockChecker{},
			bus:         &mockChecker{err: errDown},
			wantStatus:  "degraded",
			wantStorage: "healthy",
			wantBus:     "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := health.NewHandler(tt.storage, tt.bus)

			resp, err := handler.Check(context.Background(), nil)

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.Body.Status)
			assert.Equal(t, tt.wantStorage, resp.Body.Storage)
			assert.Equal(t, tt.wantBus, resp.Body.Bus)
		})
	}

	t.Run("checks a real backend", func(t *testing.T) {
		handler := health.NewHandler(store.NewMemoryStore(), nil)

		resp, err := handler.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "healthy", resp.Body.Storage)
	})
}

func TestRegisterRoutes(t *testing.T) {
	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	health.RegisterRoutes(api, health.NewHandler(&mockChecker{}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"storage":"healthy"`)
	assert.NotContains(t, rec.Body.String(), `"bus"`)
}

func TestRedisChecker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	t.Run("Ping returns nil when redis is available", func(t *testing.T) {
		checker := health.NewRedisChecker(client)

		assert.NoError(t, checker.Ping(context.Background()))
	})
}
