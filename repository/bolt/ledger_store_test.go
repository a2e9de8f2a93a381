package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "purchases.db"), "purchases")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetAll(ctx, "storekit.purchases", []string{"a", "b"}))

	values, err := store.GetAll(ctx, "storekit.purchases")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, values)
}

func TestStoreMissingKey(t *testing.T) {
	store := openTestStore(t)

	values, err := store.GetAll(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestStoreSetAllEmptyDeletesKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetAll(ctx, "storekit.purchases", []string{"a"}))
	require.NoError(t, store.SetAll(ctx, "storekit.purchases", nil))

	values, err := store.GetAll(ctx, "storekit.purchases")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purchases.db")
	ctx := context.Background()

	store, err := Open(path, "purchases")
	require.NoError(t, err)
	require.NoError(t, store.SetAll(ctx, "storekit.purchases", []string{"a"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path, "purchases")
	require.NoError(t, err)
	defer reopened.Close()

	values, err := reopened.GetAll(ctx, "storekit.purchases")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, values)
}
