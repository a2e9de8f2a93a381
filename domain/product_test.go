package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubController struct {
	purchasedID string
	purchased   bool
	lookupID    string
}

func (s *stubController) Purchase(productID string) error {
	s.purchasedID = productID
	return nil
}

func (s *stubController) Purchased(productID string) bool {
	s.lookupID = productID
	return s.purchased
}

func TestNewProductRequiresID(t *testing.T) {
	_, err := NewProduct(ManifestEntry{}, &stubController{})
	assert.ErrorIs(t, err, ErrMissingProductID)
}

func TestNewProductRequiresController(t *testing.T) {
	_, err := NewProduct(ManifestEntry{ID: "foo"}, nil)
	assert.ErrorIs(t, err, ErrNilController)
}

func TestApplyAttributesMergesKnownFields(t *testing.T) {
	product, err := NewProduct(ManifestEntry{ID: "foo"}, &stubController{})
	require.NoError(t, err)

	product.ApplyAttributes(&Attributes{
		Title:          "some title",
		Description:    "some description",
		Price:          0.99,
		Currency:       "USD",
		FormattedPrice: "$0.99",
	})

	assert.Equal(t, "some title", product.Title())
	assert.Equal(t, "some description", product.Description())
	assert.Equal(t, 0.99, product.Price())
	assert.Equal(t, "USD", product.Currency())
	assert.Equal(t, "$0.99", product.FormattedPrice())
}

func TestApplyAttributesDoesNotClearWithZeroValues(t *testing.T) {
	product, err := NewProduct(ManifestEntry{ID: "foo"}, &stubController{})
	require.NoError(t, err)

	product.ApplyAttributes(&Attributes{Title: "keep me", Price: 1.99})
	product.ApplyAttributes(&Attributes{Description: "added later"})

	assert.Equal(t, "keep me", product.Title())
	assert.Equal(t, 1.99, product.Price())
	assert.Equal(t, "added later", product.Description())
}

func TestProductPurchaseDelegatesToController(t *testing.T) {
	controller := &stubController{}
	product, err := NewProduct(ManifestEntry{ID: "foo"}, controller)
	require.NoError(t, err)

	require.NoError(t, product.Purchase())
	assert.Equal(t, "foo", controller.purchasedID)
}

func TestProductPurchasedDelegatesToController(t *testing.T) {
	controller := &stubController{purchased: true}
	product, err := NewProduct(ManifestEntry{ID: "foo"}, controller)
	require.NoError(t, err)

	assert.True(t, product.Purchased())
	assert.Equal(t, "foo", controller.lookupID)
}
