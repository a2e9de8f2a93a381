package repository

import (
	"context"

	"github.com/storekit/mediator/domain"
)

// purchasesKey is the single namespaced key the ledger persists under.
const purchasesKey = "storekit.purchases"

// KeyValueStore is the durable storage port backing the ledger. Writes are
// assumed synchronous and durable; the ledger layer adds no caching above it.
type KeyValueStore interface {
	GetAll(ctx context.Context, key string) ([]string, error)
	SetAll(ctx context.Context, key string, values []string) error
}

// Ledger is the durable set of product ids the user owns. Adds are
// idempotent; there is no remove operation at this layer.
type Ledger struct {
	store KeyValueStore
}

// NewLedger creates a ledger over the given store.
func NewLedger(store KeyValueStore) *Ledger {
	return &Ledger{store: store}
}

// Add records the product id as owned. Adding an id already present leaves
// the ledger unchanged.
func (l *Ledger) Add(ctx context.Context, productID string) error {
	if productID == "" {
		return domain.ErrMissingProductID
	}

	all, err := l.store.GetAll(ctx, purchasesKey)
	if err != nil {
		return domain.WrapError(domain.ErrCodeLedger, "ledger read failed", err)
	}
	for _, id := range all {
		if id == productID {
			return nil
		}
	}

	updated := append(all, productID)
	if err := l.store.SetAll(ctx, purchasesKey, updated); err != nil {
		return domain.WrapError(domain.ErrCodeLedger, "ledger write failed", err)
	}
	return nil
}

// Contains reports whether the product id is owned.
func (l *Ledger) Contains(ctx context.Context, productID string) (bool, error) {
	all, err := l.store.GetAll(ctx, purchasesKey)
	if err != nil {
		return false, domain.WrapError(domain.ErrCodeLedger, "ledger read failed", err)
	}
	for _, id := range all {
		if id == productID {
			return true, nil
		}
	}
	return false, nil
}

// All returns every owned product id in first-add order.
func (l *Ledger) All(ctx context.Context) ([]string, error) {
	all, err := l.store.GetAll(ctx, purchasesKey)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeLedger, "ledger read failed", err)
	}
	return all, nil
}

// Clear removes every entry.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.store.SetAll(ctx, purchasesKey, nil); err != nil {
		return domain.WrapError(domain.ErrCodeLedger, "ledger clear failed", err)
	}
	return nil
}
