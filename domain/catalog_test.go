package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogAddDeduplicatesByID(t *testing.T) {
	catalog := NewCatalog()
	controller := &stubController{}

	first, err := catalog.Add(ManifestEntry{ID: "foo"}, controller)
	require.NoError(t, err)

	second, err := catalog.Add(ManifestEntry{ID: "foo", Metadata: map[string]string{"name": "bar"}}, controller)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, catalog.Len())
}

func TestCatalogRejectsMissingID(t *testing.T) {
	catalog := NewCatalog()
	_, err := catalog.Add(ManifestEntry{}, &stubController{})
	assert.ErrorIs(t, err, ErrMissingProductID)
}

func TestCatalogPreservesManifestOrder(t *testing.T) {
	catalog := NewCatalog()
	controller := &stubController{}

	for _, id := range []string{"c", "a", "b"} {
		_, err := catalog.Add(ManifestEntry{ID: id}, controller)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"c", "a", "b"}, catalog.IDs())

	products := catalog.Products()
	require.Len(t, products, 3)
	assert.Equal(t, "c", products[0].ID())
	assert.Equal(t, "a", products[1].ID())
	assert.Equal(t, "b", products[2].ID())
}

func TestCatalogGetUnknownID(t *testing.T) {
	catalog := NewCatalog()
	assert.Nil(t, catalog.Get("missing"))
}
