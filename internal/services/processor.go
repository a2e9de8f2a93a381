package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/storekit/mediator/domain"
	"github.com/storekit/mediator/repository"
	"github.com/storekit/mediator/usecase"
)

// EmitFunc delivers a lifecycle event to the product it belongs to.
type EmitFunc func(event domain.Event)

// pendingDownloads tracks how many of a transaction's attached downloads
// are still in flight.
type pendingDownloads struct {
	remaining int
	finished  int
}

// Processor classifies inbound transaction and download notifications,
// drives the download sub-flow, and finalizes each transaction exactly
// once. A transaction with attached downloads stays open until its last
// download reaches a terminal state.
type Processor struct {
	payments  usecase.PaymentService
	ledger    *repository.Ledger
	relocator usecase.ContentRelocator
	emit      EmitFunc
	logger    *zap.Logger

	mu      sync.Mutex
	acked   map[string]struct{}
	pending map[string]*pendingDownloads
}

// NewProcessor builds a transaction processor. The emit function routes
// events to the owning product and must be non-blocking.
func NewProcessor(
	payments usecase.PaymentService,
	ledger *repository.Ledger,
	relocator usecase.ContentRelocator,
	emit EmitFunc,
	logger *zap.Logger,
) *Processor {
	if emit == nil {
		emit = func(domain.Event) {}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		payments:  payments,
		ledger:    ledger,
		relocator: relocator,
		emit:      emit,
		logger:    logger,
		acked:     make(map[string]struct{}),
		pending:   make(map[string]*pendingDownloads),
	}
}

// ProcessTransactions classifies each updated transaction by state.
func (p *Processor) ProcessTransactions(transactions []domain.TransactionRecord) {
	for _, tx := range transactions {
		switch tx.State {
		case domain.TransactionPurchasing:
			p.transactionPurchasing(tx)
		case domain.TransactionPurchased:
			p.transactionPurchased(tx)
		case domain.TransactionFailed:
			p.transactionFailed(tx)
		case domain.TransactionRestored:
			p.transactionRestored(tx)
		default:
			p.logger.Warn("ignoring transaction in unknown state",
				zap.String("transaction_id", tx.ID),
				zap.String("state", string(tx.State)))
		}
	}
}

// ProcessDownloads routes each updated download through the download
// sub-flow.
func (p *Processor) ProcessDownloads(downloads []domain.DownloadRecord) {
	for _, dl := range downloads {
		p.processDownload(dl)
	}
}

func (p *Processor) transactionPurchasing(tx domain.TransactionRecord) {
	p.emit(domain.Event{
		Kind:        domain.EventPurchasePurchasing,
		ProductID:   tx.ProductID,
		Transaction: &tx,
	})
}

func (p *Processor) transactionPurchased(tx domain.TransactionRecord) {
	p.emit(domain.Event{
		Kind:        domain.EventPurchaseSucceeded,
		ProductID:   tx.ProductID,
		Transaction: &tx,
	})
	p.logger.Info("purchased", zap.String("product_id", tx.ProductID))

	if !tx.HasDownloads() {
		if p.finalize(tx, true) {
			p.emit(domain.Event{
				Kind:        domain.EventPurchaseFinished,
				ProductID:   tx.ProductID,
				Transaction: &tx,
			})
		}
		return
	}

	p.registerPending(tx)
	p.logger.Info("downloads starting",
		zap.String("product_id", tx.ProductID),
		zap.Int("downloads", len(tx.Downloads)))
	if err := p.payments.StartDownloads(tx.Downloads); err != nil {
		p.logger.Error("failed to start downloads",
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
	}
	p.emit(domain.Event{
		Kind:        domain.EventPurchaseDownloading,
		ProductID:   tx.ProductID,
		Transaction: &tx,
	})
}

// transactionFailed distinguishes user cancellation from other failures.
// A failed transaction with no error object at all is anomalous but still
// acknowledged through the failure path: it must leave the queue without
// ever touching the ledger.
func (p *Processor) transactionFailed(tx domain.TransactionRecord) {
	if tx.Err != nil && tx.Err.Cancelled() {
		p.emit(domain.Event{
			Kind:        domain.EventPurchaseCancelled,
			ProductID:   tx.ProductID,
			Transaction: &tx,
		})
		p.finalize(tx, false)
		return
	}

	if tx.Err == nil {
		p.logger.Warn("transaction failed without an error object",
			zap.String("transaction_id", tx.ID))
	}
	p.finalize(tx, false)
	p.emit(domain.Event{
		Kind:        domain.EventPurchaseFailed,
		ProductID:   tx.ProductID,
		Transaction: &tx,
	})
}

func (p *Processor) transactionRestored(tx domain.TransactionRecord) {
	if tx.HasDownloads() {
		if err := p.payments.StartDownloads(tx.Downloads); err != nil {
			p.logger.Error("failed to start restored downloads",
				zap.String("transaction_id", tx.ID),
				zap.Error(err))
		}
		p.emit(domain.Event{
			Kind:        domain.EventPurchaseDownloading,
			ProductID:   tx.ProductID,
			Transaction: &tx,
		})
	}

	p.finalize(tx, true)

	// The restored event carries the original transaction, not the
	// restoration wrapper.
	original := tx.Original
	if original == nil {
		original = &tx
	}
	p.emit(domain.Event{
		Kind:        domain.EventPurchaseRestored,
		ProductID:   tx.ProductID,
		Transaction: original,
	})
}

func (p *Processor) processDownload(dl domain.DownloadRecord) {
	switch dl.State {
	case domain.DownloadWaiting:
		p.emitDownload(domain.EventDownloadWaiting, dl)
	case domain.DownloadActive:
		p.emitDownload(domain.EventDownloadActive, dl)
	case domain.DownloadPaused:
		p.emitDownload(domain.EventDownloadPaused, dl)
	case domain.DownloadCancelled:
		p.emitDownload(domain.EventDownloadCancelled, dl)
		p.downloadTerminal(dl, false)
	case domain.DownloadFailed:
		p.emitDownload(domain.EventDownloadFailed, dl)
		p.downloadTerminal(dl, false)
	case domain.DownloadFinished:
		p.downloadFinished(dl)
	default:
		p.logger.Warn("ignoring download in unknown state",
			zap.String("download_id", dl.ID),
			zap.String("state", string(dl.State)))
	}
}

func (p *Processor) downloadFinished(dl domain.DownloadRecord) {
	path := dl.ContentPath
	if p.relocator != nil {
		finalPath, err := p.relocator.FinalizeDownload(dl)
		if err != nil {
			// A filesystem hiccup must not strand a paid transaction
			// unacknowledged; keep the best-effort path and carry on.
			p.logger.Error("content relocation failed",
				zap.String("product_id", dl.ProductID),
				zap.Error(err))
		}
		if finalPath != "" {
			path = finalPath
		}
	}

	p.emit(domain.Event{
		Kind:        domain.EventDownloadFinished,
		ProductID:   dl.ProductID,
		Download:    &dl,
		ContentPath: path,
	})

	p.downloadTerminal(dl, true)
}

// downloadTerminal settles one of a transaction's attached downloads. The
// parent is finalized as successful once all attached downloads are
// settled and at least one of them finished; a transaction whose downloads
// all cancel or fail stays open and will be redelivered by the service.
func (p *Processor) downloadTerminal(dl domain.DownloadRecord, finished bool) {
	parent := dl.Transaction
	if parent == nil {
		p.logger.Warn("download without a parent transaction",
			zap.String("download_id", dl.ID))
		return
	}

	p.mu.Lock()
	entry, tracked := p.pending[parent.ID]
	if tracked {
		entry.remaining--
		if finished {
			entry.finished++
		}
		if entry.remaining > 0 {
			p.mu.Unlock()
			return
		}
		delete(p.pending, parent.ID)
		if entry.finished == 0 {
			p.mu.Unlock()
			p.logger.Warn("all downloads cancelled or failed, leaving transaction open",
				zap.String("transaction_id", parent.ID))
			return
		}
	}
	p.mu.Unlock()

	if !tracked && !finished {
		return
	}

	if p.finalize(*parent, true) {
		p.emit(domain.Event{
			Kind:        domain.EventPurchaseFinished,
			ProductID:   parent.ProductID,
			Transaction: parent,
		})
	}
}

func (p *Processor) registerPending(tx domain.TransactionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.acked[tx.ID]; ok {
		return
	}
	if _, ok := p.pending[tx.ID]; ok {
		return
	}
	p.pending[tx.ID] = &pendingDownloads{remaining: len(tx.Downloads)}
}

// finalize acknowledges the transaction to the payment service exactly
// once and, on the successful path, records the product id in the ledger
// first. It reports whether this call performed the acknowledgment.
func (p *Processor) finalize(tx domain.TransactionRecord, successful bool) bool {
	p.mu.Lock()
	if _, ok := p.acked[tx.ID]; ok {
		p.mu.Unlock()
		return false
	}
	p.acked[tx.ID] = struct{}{}
	p.mu.Unlock()

	if successful {
		// Ledger write happens before the acknowledgment so a crash in
		// between redelivers the transaction instead of losing the record.
		if err := p.ledger.Add(context.Background(), tx.ProductID); err != nil {
			p.logger.Error("ledger write failed",
				zap.String("product_id", tx.ProductID),
				zap.Error(err))
		}
	}

	if err := p.payments.FinishTransaction(tx); err != nil {
		p.logger.Error("failed to finish transaction",
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
	}
	return true
}

func (p *Processor) emitDownload(kind domain.EventKind, dl domain.DownloadRecord) {
	p.emit(domain.Event{
		Kind:      kind,
		ProductID: dl.ProductID,
		Download:  &dl,
	})
}
