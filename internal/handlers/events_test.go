package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/analytics-eventqueue/internal/analytics"
	"github.com/serroba/analytics-eventqueue/internal/delivery"
	"github.com/serroba/analytics-eventqueue/internal/handlers"
	"github.com/serroba/analytics-eventqueue/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockFlusher struct {
	res   delivery.Result
	err   error
	calls int
}

func (m *mockFlusher) Deliver(context.Context) (delivery.Result, error) {
	m.calls++

	return m.res, m.err
}

func newQueue(t *testing.T, opts analytics.StoreOptions) *analytics.PropertyEventStore {
	t.Helper()

	client, err := analytics.NewClientContext("app-1", "install-1")
	require.NoError(t, err)

	return analytics.NewPropertyEventStore(store.NewMemoryStore(), client, opts, zap.NewNop())
}

func putRequest(events ...string) *handlers.PutEventsRequest {
	req := &handlers.PutEventsRequest{}
	req.Body.Events = events

	return req
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var se huma.StatusError
	require.ErrorAs(t, err, &se)

	return se.GetStatus()
}

func TestEventHandler_PutEvents(t *testing.T) {
	t.Run("stores events in order", func(t *testing.T) {
		queue := newQueue(t, analytics.StoreOptions{})
		h := handlers.NewEventHandler(queue, &mockFlusher{}, zap.NewNop())

		resp, err := h.PutEvents(context.Background(), putRequest("A", "B", "C"))

		require.NoError(t, err)
		assert.Equal(t, 3, resp.Body.Accepted)

		list, err := h.ListEvents(context.Background(), &handlers.ListEventsRequest{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, list.Body.Events)
	})

	t.Run("returns 507 when the store is full", func(t *testing.T) {
		queue := newQueue(t, analytics.StoreOptions{MaxStorageBytes: 4})
		h := handlers.NewEventHandler(queue, &mockFlusher{}, zap.NewNop())

		_, err := h.PutEvents(context.Background(), putRequest("ab", "cd", "ef"))

		assert.Equal(t, http.StatusInsufficientStorage, statusOf(t, err))
		assert.Contains(t, err.Error(), "stored 2 of 3 events")

		n, err := queue.Len(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("returns 500 on other write failures", func(t *testing.T) {
		h := handlers.NewEventHandler(&failingQueue{err: analytics.ErrStorageWrite}, &mockFlusher{}, zap.NewNop())

		_, err := h.PutEvents(context.Background(), putRequest("A"))

		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})
}

func TestEventHandler_ListEvents(t *testing.T) {
	t.Run("limits the listing and reports the total", func(t *testing.T) {
		queue := newQueue(t, analytics.StoreOptions{})
		h := handlers.NewEventHandler(queue, &mockFlusher{}, zap.NewNop())
		_, err := h.PutEvents(context.Background(), putRequest("A", "B", "C"))
		require.NoError(t, err)

		resp, err := h.ListEvents(context.Background(), &handlers.ListEventsRequest{Limit: 2})

		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, resp.Body.Events)
		assert.Equal(t, 3, resp.Body.Total)
	})

	t.Run("listing never removes events", func(t *testing.T) {
		queue := newQueue(t, analytics.StoreOptions{})
		h := handlers.NewEventHandler(queue, &mockFlusher{}, zap.NewNop())
		_, err := h.PutEvents(context.Background(), putRequest("A"))
		require.NoError(t, err)

		for range 2 {
			resp, err := h.ListEvents(context.Background(), &handlers.ListEventsRequest{Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, []string{"A"}, resp.Body.Events)
		}
	})

	t.Run("empty queue lists nothing", func(t *testing.T) {
		h := handlers.NewEventHandler(newQueue(t, analytics.StoreOptions{}), &mockFlusher{}, zap.NewNop())

		resp, err := h.ListEvents(context.Background(), &handlers.ListEventsRequest{Limit: 10})

		require.NoError(t, err)
		assert.Empty(t, resp.Body.Events)
		assert.NotNil(t, resp.Body.Events)
		assert.Zero(t, resp.Body.Total)
	})

	t.Run("returns 500 when the store cannot be read", func(t *testing.T) {
		h := handlers.NewEventHandler(&failingQueue{err: analytics.ErrStorageRead}, &mockFlusher{}, zap.NewNop())

		_, err := h.ListEvents(context.Background(), &handlers.ListEventsRequest{Limit: 10})

		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})
}

func TestEventHandler_Flush(t *testing.T) {
	t.Run("returns the delivery result", func(t *testing.T) {
		flusher := &mockFlusher{res: delivery.Result{Delivered: 5, Batches: 2}}
		h := handlers.NewEventHandler(newQueue(t, analytics.StoreOptions{}), flusher, zap.NewNop())

		resp, err := h.Flush(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 5, resp.Body.Delivered)
		assert.Equal(t, 2, resp.Body.Batches)
		assert.Equal(t, 1, flusher.calls)
	})

	t.Run("returns 502 when publishing fails", func(t *testing.T) {
		flusher := &mockFlusher{
			res: delivery.Result{Delivered: 2, Batches: 1},
			err: errors.Join(delivery.ErrPublish, errors.New("bus down")),
		}
		h := handlers.NewEventHandler(newQueue(t, analytics.StoreOptions{}), flusher, zap.NewNop())

		_, err := h.Flush(context.Background(), nil)

		assert.Equal(t, http.StatusBadGateway, statusOf(t, err))
		assert.Contains(t, err.Error(), "after 2 events in 1 batches")
	})

	t.Run("returns 500 on storage failures", func(t *testing.T) {
		flusher := &mockFlusher{err: analytics.ErrStorageRead}
		h := handlers.NewEventHandler(newQueue(t, analytics.StoreOptions{}), flusher, zap.NewNop())

		_, err := h.Flush(context.Background(), nil)

		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})
}

func TestRegisterRoutes(t *testing.T) {
	newRouter := func(t *testing.T) *chi.Mux {
		t.Helper()

		router := chi.NewMux()
		api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
		handlers.RegisterRoutes(api, handlers.NewEventHandler(newQueue(t, analytics.StoreOptions{}), &mockFlusher{}, zap.NewNop()))

		return router
	}

	t.Run("post events answers 202", func(t *testing.T) {
		router := newRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"events":["A","B"]}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"accepted":2`)
	})

	t.Run("empty event list is rejected", func(t *testing.T) {
		router := newRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"events":[]}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("list limit above maximum is rejected", func(t *testing.T) {
		router := newRouter(t)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?limit=5000", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("flush is routed", func(t *testing.T) {
		router := newRouter(t)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/flush", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"delivered":0`)
	})
}

type failingQueue struct {
	err error
}

func (f *failingQueue) Put(context.Context, analytics.Event) error { return f.err }

func (f *failingQueue) Iterator(context.Context) (analytics.EventIterator, error) {
	return nil, f.err
}

func (f *failingQueue) Len(context.Context) (int, error) { return 0, f.err }
