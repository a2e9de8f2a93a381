package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/storekit/mediator/domain"
	"github.com/storekit/mediator/internal/services"
	"github.com/storekit/mediator/repository"
	"github.com/storekit/mediator/usecase"
	"github.com/storekit/mediator/usecase/catalog"
)

// FetchCallback receives the ordered product list once a fetch resolves.
// The error is non-nil when the catalog service could not be reached, in
// which case product attributes are left untouched.
type FetchCallback func(products []*domain.Product, err error)

// Options configures controller construction.
type Options struct {
	// Manifest seeds the catalog. Entries without an id are rejected.
	Manifest []domain.ManifestEntry

	// OnFetch, when set, triggers an initial product info fetch and is
	// invoked once it resolves.
	OnFetch FetchCallback
}

// Controller is the composition root: it owns the catalog, the product
// info cache, the ledger, and the transaction processor, and is the sole
// observer of the payment service's notification stream.
type Controller struct {
	payments  usecase.PaymentService
	cache     *catalog.Cache
	ledger    *repository.Ledger
	processor *services.Processor
	products  *domain.Catalog
	logger    *zap.Logger
}

var (
	_ domain.Controller           = (*Controller)(nil)
	_ usecase.TransactionObserver = (*Controller)(nil)
)

// New builds a controller, seeds its catalog from the manifest, and
// registers it as the payment service's transaction observer, replacing
// any prior registration.
func New(
	payments usecase.PaymentService,
	catalogSvc usecase.CatalogService,
	ledger *repository.Ledger,
	relocator usecase.ContentRelocator,
	logger *zap.Logger,
	opts Options,
) (*Controller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		payments: payments,
		cache:    catalog.NewCache(catalogSvc, logger),
		ledger:   ledger,
		products: domain.NewCatalog(),
		logger:   logger,
	}
	c.processor = services.NewProcessor(payments, ledger, relocator, c.routeEvent, logger)

	for _, entry := range opts.Manifest {
		if _, err := c.products.Add(entry, c); err != nil {
			return nil, err
		}
	}

	payments.SetObserver(c)

	if opts.OnFetch != nil {
		c.Fetch(context.Background(), opts.OnFetch)
	}
	return c, nil
}

// AddProduct registers a product for the manifest entry. A known id is a
// no-op returning the existing product.
func (c *Controller) AddProduct(entry domain.ManifestEntry) (*domain.Product, error) {
	return c.products.Add(entry, c)
}

// AddProductAndFetch registers the product and then resolves the whole
// catalog's info, invoking cb when done.
func (c *Controller) AddProductAndFetch(ctx context.Context, entry domain.ManifestEntry, cb FetchCallback) (*domain.Product, error) {
	product, err := c.products.Add(entry, c)
	if err != nil {
		return nil, err
	}
	c.Fetch(ctx, cb)
	return product, nil
}

// AddProducts registers each entry, skipping ids already in the catalog.
func (c *Controller) AddProducts(entries []domain.ManifestEntry) error {
	for _, entry := range entries {
		if _, err := c.products.Add(entry, c); err != nil {
			return err
		}
	}
	return nil
}

// Purchase submits a payment for the product id. The id is not validated
// against the catalog.
func (c *Controller) Purchase(productID string) error {
	return c.payments.SubmitPayment(productID)
}

// Purchased reports ledger membership for the product id.
func (c *Controller) Purchased(productID string) bool {
	owned, err := c.ledger.Contains(context.Background(), productID)
	if err != nil {
		c.logger.Error("ledger lookup failed",
			zap.String("product_id", productID),
			zap.Error(err))
		return false
	}
	return owned
}

// RestorePurchases asks the payment service to replay completed
// transactions.
func (c *Controller) RestorePurchases() error {
	return c.payments.RestoreCompletedTransactions()
}

// CanMakePayments reports whether the payment service accepts payments.
func (c *Controller) CanMakePayments() bool {
	return c.payments.CanMakePayments()
}

// Fetch resolves the catalog's ids through the product info cache, merges
// the attributes into matching products, and invokes cb with the ordered
// product list. It does not block.
func (c *Controller) Fetch(ctx context.Context, cb FetchCallback) {
	ids := c.products.IDs()
	go func() {
		info, err := c.cache.Fetch(ctx, ids)
		if err == nil {
			c.applyAttributes(info)
		}
		if cb != nil {
			cb(c.Products(), err)
		}
	}()
}

// Products returns the catalog's products in manifest order.
func (c *Controller) Products() []*domain.Product {
	return c.products.Products()
}

// Product returns the product for the id, or nil.
func (c *Controller) Product(productID string) *domain.Product {
	return c.products.Get(productID)
}

// ClearCache empties the product info cache.
func (c *Controller) ClearCache() {
	c.cache.Clear()
}

// Close unregisters the controller from the payment service.
func (c *Controller) Close() {
	c.payments.SetObserver(nil)
}

// UpdatedTransactions implements usecase.TransactionObserver.
func (c *Controller) UpdatedTransactions(transactions []domain.TransactionRecord) {
	c.processor.ProcessTransactions(transactions)
}

// UpdatedDownloads implements usecase.TransactionObserver.
func (c *Controller) UpdatedDownloads(downloads []domain.DownloadRecord) {
	c.processor.ProcessDownloads(downloads)
}

// RestoreCompleted implements usecase.TransactionObserver. The signal has
// no ledger effect; it only reports which ids were replayed.
func (c *Controller) RestoreCompleted() {
	for _, tx := range c.payments.Transactions() {
		if tx.State == domain.TransactionRestored {
			c.logger.Info("restored", zap.String("product_id", tx.ProductID))
		}
	}
}

func (c *Controller) routeEvent(event domain.Event) {
	if product := c.products.Get(event.ProductID); product != nil {
		product.Trigger(event)
	}
}

func (c *Controller) applyAttributes(info domain.ProductInfo) {
	for id, attrs := range info {
		if product := c.products.Get(id); product != nil {
			product.ApplyAttributes(attrs)
		}
	}
}
