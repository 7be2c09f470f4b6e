package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/serroba/analytics-eventqueue/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	runBackendContract(t, s, "sqlite:")
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.db")
	ctx := context.Background()

	first, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", []byte(`["A","B"]`)))
	require.NoError(t, first.Close())

	second, err := store.NewSQLiteStore(path)
	require.NoError(t, err)

	defer func() { _ = second.Close() }()

	value, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`["A","B"]`), value)
}
