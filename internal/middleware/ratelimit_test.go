package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/analytics-eventqueue/internal/middleware"
	"github.com/serroba/analytics-eventqueue/internal/ratelimit"
	"github.com/serroba/analytics-eventqueue/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUserAgent = "TestAgent/1.0"

// capturingStore records the keys it was asked to count.
type capturingStore struct {
	mu    sync.Mutex
	inner ratelimit.Store
	keys  []string
	err   error
}

func newCapturingStore() *capturingStore {
	return &capturingStore{inner: store.NewRateLimitMemoryStore()}
}

func (s *capturingStore) Record(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()

	if s.err != nil {
		return 0, s.err
	}

	return s.inner.Record(ctx, key, window)
}

func (s *capturingStore) lastKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.keys) == 0 {
		return ""
	}

	return s.keys[len(s.keys)-1]
}

func setupLimitedAPI(t *testing.T, rs ratelimit.Store, policy *ratelimit.Policy) *chi.Mux {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	limiter := ratelimit.NewPolicyLimiter(rs, policy)
	api.UseMiddleware(middleware.PolicyRateLimiter(api, limiter, ratelimit.NewOperationScopeResolver(), zap.NewNop()))

	ok := func(_ context.Context, _ *struct{}) (*testOutput, error) {
		return &testOutput{Body: "ok"}, nil
	}

	huma.Register(api, huma.Operation{Method: http.MethodPost, Path: "/events"}, ok)
	huma.Register(api, huma.Operation{Method: http.MethodGet, Path: "/events"}, ok)
	huma.Register(api, huma.Operation{
		Method: http.MethodPost,
		Path:   "/events/flush",
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeAdmin},
		},
	}, ok)
	huma.Register(api, huma.Operation{
		Method: http.MethodGet,
		Path:   "/health",
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, ok)

	return router
}

func send(router http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", testUserAgent)

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestPolicyRateLimiter(t *testing.T) {
	t.Run("allows ingestion under the limit", func(t *testing.T) {
		router := setupLimitedAPI(t, newCapturingStore(), ratelimit.IngestPolicy(3, time.Minute))

		for range 3 {
			assert.Equal(t, http.StatusOK, send(router, http.MethodPost, "/events", nil).Code)
		}
	})

	t.Run("returns 429 with retry hint over the limit", func(t *testing.T) {
		router := setupLimitedAPI(t, newCapturingStore(), ratelimit.IngestPolicy(2, time.Minute))

		send(router, http.MethodPost, "/events", nil)
		send(router, http.MethodPost, "/events", nil)

		w := send(router, http.MethodPost, "/events", nil)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "ingest scope, 3/2 requests")
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
	})

	t.Run("reads are not limited by the ingest policy", func(t *testing.T) {
		router := setupLimitedAPI(t, newCapturingStore(), ratelimit.IngestPolicy(1, time.Minute))

		for range 3 {
			assert.Equal(t, http.StatusOK, send(router, http.MethodGet, "/events", nil).Code)
		}
	})

	t.Run("flush uses the admin scope", func(t *testing.T) {
		rs := newCapturingStore()
		router := setupLimitedAPI(t, rs, ratelimit.IngestPolicy(10, time.Minute))

		assert.Equal(t, http.StatusOK, send(router, http.MethodPost, "/events/flush", nil).Code)
		assert.Contains(t, rs.lastKey(), ":admin:")
		assert.Equal(t, http.StatusTooManyRequests, send(router, http.MethodPost, "/events/flush", nil).Code)
	})

	t.Run("disabled endpoints skip the limiter", func(t *testing.T) {
		rs := newCapturingStore()
		rs.err = errors.New("must not be called")
		router := setupLimitedAPI(t, rs, ratelimit.IngestPolicy(1, time.Minute))

		assert.Equal(t, http.StatusOK, send(router, http.MethodGet, "/health", nil).Code)
		assert.Empty(t, rs.keys)
	})

	t.Run("limiter errors return 500", func(t *testing.T) {
		rs := newCapturingStore()
		rs.err = errors.New("redis down")
		router := setupLimitedAPI(t, rs, ratelimit.IngestPolicy(1, time.Minute))

		assert.Equal(t, http.StatusInternalServerError, send(router, http.MethodPost, "/events", nil).Code)
	})

	t.Run("clients are keyed by IP and user agent", func(t *testing.T) {
		rs := newCapturingStore()
		router := setupLimitedAPI(t, rs, ratelimit.IngestPolicy(10, time.Minute))

		send(router, http.MethodPost, "/events", nil)
		key1 := rs.lastKey()

		send(router, http.MethodPost, "/events", nil)
		key2 := rs.lastKey()

		send(router, http.MethodPost, "/events", map[string]string{"User-Agent": "Other/2.0"})
		key3 := rs.lastKey()

		require.NotEmpty(t, key1)
		assert.Equal(t, key1, key2, "same IP and User-Agent should produce same key")
		assert.NotEqual(t, key1, key3, "different User-Agent should produce different key")
	})

	t.Run("first X-Forwarded-For entry identifies the client", func(t *testing.T) {
		rs := newCapturingStore()
		router := setupLimitedAPI(t, rs, ratelimit.IngestPolicy(10, time.Minute))

		send(router, http.MethodPost, "/events", map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18"})
		viaProxy := rs.lastKey()

		send(router, http.MethodPost, "/events", map[string]string{"X-Forwarded-For": "203.0.113.195"})
		direct := rs.lastKey()

		send(router, http.MethodPost, "/events", map[string]string{"X-Real-IP": "203.0.113.195"})
		realIP := rs.lastKey()

		assert.Equal(t, viaProxy, direct)
		assert.Equal(t, viaProxy, realIP)
	})
}
