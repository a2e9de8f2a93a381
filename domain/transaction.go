package domain

// TransactionState is the lifecycle state reported by the payment service.
type TransactionState string

const (
	TransactionPurchasing TransactionState = "purchasing"
	TransactionPurchased  TransactionState = "purchased"
	TransactionFailed     TransactionState = "failed"
	TransactionRestored   TransactionState = "restored"
)

// PaymentErrorCode classifies a failed transaction.
type PaymentErrorCode string

const (
	PaymentErrorCancelled PaymentErrorCode = "payment_cancelled"
	PaymentErrorService   PaymentErrorCode = "service_error"
)

// PaymentError is the error attached to a failed transaction by the
// payment service.
type PaymentError struct {
	Code    PaymentErrorCode `json:"code"`
	Message string           `json:"message,omitempty"`
}

func (e *PaymentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Cancelled reports whether the error is a user cancellation.
func (e *PaymentError) Cancelled() bool {
	return e != nil && e.Code == PaymentErrorCancelled
}

// TransactionRecord is the payment service's record of a single payment
// attempt. It is owned by the service; this module only observes and
// acknowledges it.
type TransactionRecord struct {
	ID        string             `json:"id"`
	ProductID string             `json:"product_id"`
	State     TransactionState   `json:"state"`
	Err       *PaymentError      `json:"error,omitempty"`
	Original  *TransactionRecord `json:"original,omitempty"`
	Downloads []DownloadRecord   `json:"downloads,omitempty"`
}

// HasDownloads reports whether content downloads are attached.
func (t *TransactionRecord) HasDownloads() bool {
	return t != nil && len(t.Downloads) > 0
}

// DownloadState is the delivery state of a content download.
type DownloadState string

const (
	DownloadWaiting   DownloadState = "waiting"
	DownloadActive    DownloadState = "active"
	DownloadPaused    DownloadState = "paused"
	DownloadCancelled DownloadState = "cancelled"
	DownloadFailed    DownloadState = "failed"
	DownloadFinished  DownloadState = "finished"
)

// Terminal reports whether the download will receive no further updates.
func (s DownloadState) Terminal() bool {
	switch s {
	case DownloadCancelled, DownloadFailed, DownloadFinished:
		return true
	}
	return false
}

// DownloadRecord is the payment service's record of delivering purchased
// content to local storage. ContentPath is only valid once the download
// has finished.
type DownloadRecord struct {
	ID          string             `json:"id"`
	ProductID   string             `json:"product_id"`
	State       DownloadState      `json:"state"`
	ContentPath string             `json:"content_path,omitempty"`
	Transaction *TransactionRecord `json:"-"`
}
