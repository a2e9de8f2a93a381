package payment

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/storekit/mediator/domain"
	"github.com/storekit/mediator/usecase"
)

// SimulatorConfig controls the simulated store's behavior.
type SimulatorConfig struct {
	// TickInterval is how often queued transactions and downloads advance.
	// Zero disables the scheduler; drive the simulator with Tick instead.
	TickInterval time.Duration

	// DownloadsPerProduct maps product ids to a number of hosted-content
	// downloads attached to their transactions.
	DownloadsPerProduct map[string]int

	// ContentRoot is where simulated download content is materialized.
	ContentRoot string

	// PaymentsDisabled makes CanMakePayments report false.
	PaymentsDisabled bool
}

// Simulator is an in-process payment service used by the demo binary and
// integration-style tests. It advances transactions purchasing→purchased
// and downloads waiting→active→finished on each tick, keeps transactions
// queued until they are finished, and replays finished purchases on
// restore.
type Simulator struct {
	cfg    SimulatorConfig
	logger *zap.Logger
	cron   *cron.Cron

	mu        sync.Mutex
	observer  usecase.TransactionObserver
	queue     []*domain.TransactionRecord
	delivered map[string]domain.TransactionState
	downloads []*domain.DownloadRecord
	purchased []string
	restoring bool
}

var _ usecase.PaymentService = (*Simulator)(nil)

// NewSimulator creates a simulator. Call Start to run it on a scheduler,
// or Tick to advance it manually.
func NewSimulator(cfg SimulatorConfig, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		cfg:       cfg,
		logger:    logger,
		delivered: make(map[string]domain.TransactionState),
	}
}

// Start launches the tick scheduler. A zero TickInterval is a no-op.
func (s *Simulator) Start() {
	if s.cfg.TickInterval <= 0 {
		return
	}
	s.cron = cron.New(cron.WithSeconds())
	schedule := fmt.Sprintf("@every %ds", max(1, int(s.cfg.TickInterval.Seconds())))
	_, _ = s.cron.AddFunc(schedule, s.Tick)
	s.cron.Start()
	s.logger.Info("payment simulator started")
}

// Stop halts the scheduler.
func (s *Simulator) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("payment simulator stopped")
}

// SetObserver registers the sole observer, replacing any prior one.
func (s *Simulator) SetObserver(observer usecase.TransactionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = observer
}

// CanMakePayments reports whether payments are enabled.
func (s *Simulator) CanMakePayments() bool {
	return !s.cfg.PaymentsDisabled
}

// SubmitPayment queues a new transaction for the product.
func (s *Simulator) SubmitPayment(productID string) error {
	if s.cfg.PaymentsDisabled {
		return domain.NewError(domain.ErrCodeInvalid, "payments are disabled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, &domain.TransactionRecord{
		ID:        uuid.NewString(),
		ProductID: productID,
	})
	s.logger.Debug("payment submitted", zap.String("product_id", productID))
	return nil
}

// StartDownloads registers downloads for delivery simulation.
func (s *Simulator) StartDownloads(downloads []domain.DownloadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range downloads {
		dl := downloads[i]
		s.downloads = append(s.downloads, &dl)
	}
	return nil
}

// FinishTransaction removes the transaction from the pending queue. A
// purchased or restored transaction is recorded for later restores.
func (s *Simulator) FinishTransaction(transaction domain.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, tx := range s.queue {
		if tx.ID == transaction.ID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	delete(s.delivered, transaction.ID)

	if transaction.State == domain.TransactionPurchased || transaction.State == domain.TransactionRestored {
		for _, id := range s.purchased {
			if id == transaction.ProductID {
				return nil
			}
		}
		s.purchased = append(s.purchased, transaction.ProductID)
	}
	return nil
}

// RestoreCompletedTransactions queues a restored transaction for every
// previously finished purchase, followed by the restore-completed signal.
func (s *Simulator) RestoreCompletedTransactions() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, productID := range s.purchased {
		original := &domain.TransactionRecord{
			ID:        uuid.NewString(),
			ProductID: productID,
			State:     domain.TransactionPurchased,
		}
		s.queue = append(s.queue, &domain.TransactionRecord{
			ID:        uuid.NewString(),
			ProductID: productID,
			State:     domain.TransactionRestored,
			Original:  original,
		})
	}
	s.restoring = true
	return nil
}

// Transactions returns a snapshot of the pending queue.
func (s *Simulator) Transactions() []domain.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TransactionRecord, 0, len(s.queue))
	for _, tx := range s.queue {
		out = append(out, *tx)
	}
	return out
}

// Tick advances every queued transaction and download one step and
// delivers the resulting notifications.
func (s *Simulator) Tick() {
	s.mu.Lock()
	observer := s.observer

	var updatedTx []domain.TransactionRecord
	for _, tx := range s.queue {
		switch tx.State {
		case "":
			tx.State = domain.TransactionPurchasing
		case domain.TransactionPurchasing:
			tx.State = domain.TransactionPurchased
			s.attachDownloads(tx)
		default:
			// Terminal states stay queued until FinishTransaction.
		}
		if s.delivered[tx.ID] != tx.State {
			s.delivered[tx.ID] = tx.State
			updatedTx = append(updatedTx, *tx)
		}
	}

	var updatedDl []domain.DownloadRecord
	remaining := s.downloads[:0]
	for _, dl := range s.downloads {
		switch dl.State {
		case domain.DownloadWaiting:
			dl.State = domain.DownloadActive
		case domain.DownloadActive:
			dl.State = domain.DownloadFinished
			dl.ContentPath = s.materializeContent(dl)
		}
		updatedDl = append(updatedDl, *dl)
		if !dl.State.Terminal() {
			remaining = append(remaining, dl)
		}
	}
	s.downloads = remaining

	restoreDone := s.restoring && len(updatedTx) == 0 && s.allRestoredDelivered()
	if restoreDone {
		s.restoring = false
	}
	s.mu.Unlock()

	if observer == nil {
		return
	}
	if len(updatedTx) > 0 {
		observer.UpdatedTransactions(updatedTx)
	}
	if len(updatedDl) > 0 {
		observer.UpdatedDownloads(updatedDl)
	}
	if restoreDone {
		observer.RestoreCompleted()
	}
}

func (s *Simulator) attachDownloads(tx *domain.TransactionRecord) {
	count := s.cfg.DownloadsPerProduct[tx.ProductID]
	for i := 0; i < count; i++ {
		tx.Downloads = append(tx.Downloads, domain.DownloadRecord{
			ID:          uuid.NewString(),
			ProductID:   tx.ProductID,
			State:       domain.DownloadWaiting,
			Transaction: tx,
		})
	}
}

func (s *Simulator) allRestoredDelivered() bool {
	for _, tx := range s.queue {
		if tx.State == domain.TransactionRestored && s.delivered[tx.ID] != tx.State {
			return false
		}
	}
	return true
}

// materializeContent lays down a dummy content bundle so the relocator
// has something to move.
func (s *Simulator) materializeContent(dl *domain.DownloadRecord) string {
	root := s.cfg.ContentRoot
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "downloads", dl.ID)
	contents := filepath.Join(dir, "Contents")
	if err := os.MkdirAll(contents, 0o755); err != nil {
		s.logger.Warn("unable to materialize download content", zap.Error(err))
		return dir
	}
	payload := []byte(fmt.Sprintf("simulated content for %s\n", dl.ProductID))
	if err := os.WriteFile(filepath.Join(contents, "content.bin"), payload, 0o644); err != nil {
		s.logger.Warn("unable to write download content", zap.Error(err))
	}
	return dir
}
