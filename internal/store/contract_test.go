package store_test

import (
	"context"
	"testing"

	"github.com/serroba/analytics-eventqueue/internal/analytics"
	"github.com/serroba/analytics-eventqueue/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// runBackendContract exercises the behavior every backend must share. keyPrefix keeps
// integration runs against shared servers from colliding.
func runBackendContract(t *testing.T, backend store.Backend, keyPrefix string) {
	t.Helper()

	ctx := context.Background()

	t.Run("get missing key returns ErrNotFound", func(t *testing.T) {
		value, err := backend.Get(ctx, keyPrefix+"missing")

		assert.Nil(t, value)
		assert.ErrorIs(t, err, analytics.ErrNotFound)
	})

	t.Run("set then get returns the value", func(t *testing.T) {
		key := keyPrefix + "roundtrip"

		require.NoError(t, backend.Set(ctx, key, []byte(`["A","B"]`)))

		value, err := backend.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(`["A","B"]`), value)

		_ = backend.Delete(ctx, key)
	})

	t.Run("set overwrites existing value", func(t *testing.T) {
		key := keyPrefix + "overwrite"

		require.NoError(t, backend.Set(ctx, key, []byte("old")))
		require.NoError(t, backend.Set(ctx, key, []byte("new")))

		value, err := backend.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), value)

		_ = backend.Delete(ctx, key)
	})

	t.Run("delete removes the key", func(t *testing.T) {
		key := keyPrefix + "delete"

		require.NoError(t, backend.Set(ctx, key, []byte("v")))
		require.NoError(t, backend.Delete(ctx, key))

		_, err := backend.Get(ctx, key)
		assert.ErrorIs(t, err, analytics.ErrNotFound)
	})

	t.Run("delete missing key returns ErrNotFound", func(t *testing.T) {
		assert.ErrorIs(t, backend.Delete(ctx, keyPrefix+"never-set"), analytics.ErrNotFound)
	})

	t.Run("ping succeeds", func(t *testing.T) {
		assert.NoError(t, backend.Ping(ctx))
	})

	t.Run("backs an event store", func(t *testing.T) {
		client, err := analytics.NewClientContext(keyPrefix+"app", "install")
		require.NoError(t, err)

		s := analytics.NewPropertyEventStore(backend, client, analytics.StoreOptions{}, zap.NewNop())

		for _, e := range []analytics.Event{"A", "B", "C"} {
			require.NoError(t, s.Put(ctx, e))
		}

		it, err := s.Iterator(ctx)
		require.NoError(t, err)

		first, err := it.Next()
		require.NoError(t, err)
		assert.Equal(t, analytics.Event("A"), first)
		require.NoError(t, it.RemoveReadEvents(ctx))

		n, err := s.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, s.Clear(ctx))
	})
}
