package usecase

import (
	"context"

	"github.com/storekit/mediator/domain"
)

// TransactionObserver receives asynchronous lifecycle notifications from the
// payment service. Notifications for independent transactions arrive in no
// particular order; per-transaction ordering is preserved by the service.
type TransactionObserver interface {
	UpdatedTransactions(transactions []domain.TransactionRecord)
	UpdatedDownloads(downloads []domain.DownloadRecord)
	RestoreCompleted()
}

// PaymentService is the external payment queue. Transactions and downloads
// are owned by the service; FinishTransaction is the one-time signal that a
// transaction has been fully processed and may leave the pending queue.
type PaymentService interface {
	CanMakePayments() bool
	SubmitPayment(productID string) error
	RestoreCompletedTransactions() error
	StartDownloads(downloads []domain.DownloadRecord) error
	FinishTransaction(transaction domain.TransactionRecord) error

	// SetObserver registers the sole observer, replacing any prior one.
	// A nil observer unregisters.
	SetObserver(observer TransactionObserver)

	// Transactions returns the service's current pending transactions.
	Transactions() []domain.TransactionRecord
}

// CatalogService resolves product ids to their descriptive attributes.
type CatalogService interface {
	RequestProductInfo(ctx context.Context, productIDs []string) (domain.ProductInfo, error)
}

// ContentRelocator moves a finished download's content into its final
// per-product location and returns the resulting path.
type ContentRelocator interface {
	FinalizeDownload(download domain.DownloadRecord) (string, error)
}
