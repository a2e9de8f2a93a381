package payment

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/mediator/domain"
	"github.com/storekit/mediator/internal/infrastructure/content"
	"github.com/storekit/mediator/repository"
	"github.com/storekit/mediator/repository/memory"
	"github.com/storekit/mediator/usecase/store"
)

type notificationLog struct {
	mu           sync.Mutex
	transactions [][]domain.TransactionRecord
	downloads    [][]domain.DownloadRecord
	restoreDone  int
}

func (n *notificationLog) UpdatedTransactions(txs []domain.TransactionRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transactions = append(n.transactions, txs)
}

func (n *notificationLog) UpdatedDownloads(dls []domain.DownloadRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.downloads = append(n.downloads, dls)
}

func (n *notificationLog) RestoreCompleted() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.restoreDone++
}

func (n *notificationLog) lastStates() []domain.TransactionState {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.transactions) == 0 {
		return nil
	}
	batch := n.transactions[len(n.transactions)-1]
	states := make([]domain.TransactionState, len(batch))
	for i, tx := range batch {
		states[i] = tx.State
	}
	return states
}

func TestSimulatorAdvancesPurchaseOnTicks(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{}, nil)
	log := &notificationLog{}
	sim.SetObserver(log)

	require.NoError(t, sim.SubmitPayment("com.example.starter"))

	sim.Tick()
	assert.Equal(t, []domain.TransactionState{domain.TransactionPurchasing}, log.lastStates())

	sim.Tick()
	assert.Equal(t, []domain.TransactionState{domain.TransactionPurchased}, log.lastStates())

	// Without an acknowledgment the transaction stays queued but is not
	// redelivered.
	before := len(log.transactions)
	sim.Tick()
	assert.Len(t, log.transactions, before)
	assert.Len(t, sim.Transactions(), 1)
}

func TestSimulatorFinishTransactionDrainsQueue(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{}, nil)
	log := &notificationLog{}
	sim.SetObserver(log)

	require.NoError(t, sim.SubmitPayment("com.example.starter"))
	sim.Tick()
	sim.Tick()

	pending := sim.Transactions()
	require.Len(t, pending, 1)
	require.NoError(t, sim.FinishTransaction(pending[0]))
	assert.Empty(t, sim.Transactions())
}

func TestSimulatorRestoreReplaysFinishedPurchases(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{}, nil)
	log := &notificationLog{}
	sim.SetObserver(log)

	require.NoError(t, sim.SubmitPayment("com.example.starter"))
	sim.Tick()
	sim.Tick()
	pending := sim.Transactions()
	require.Len(t, pending, 1)
	require.NoError(t, sim.FinishTransaction(pending[0]))

	require.NoError(t, sim.RestoreCompletedTransactions())
	sim.Tick()

	states := log.lastStates()
	require.Equal(t, []domain.TransactionState{domain.TransactionRestored}, states)

	sim.Tick()
	log.mu.Lock()
	defer log.mu.Unlock()
	assert.Equal(t, 1, log.restoreDone)
}

func TestSimulatorAttachesConfiguredDownloads(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{
		DownloadsPerProduct: map[string]int{"com.example.artpack": 2},
		ContentRoot:         t.TempDir(),
	}, nil)
	log := &notificationLog{}
	sim.SetObserver(log)

	require.NoError(t, sim.SubmitPayment("com.example.artpack"))
	sim.Tick()
	sim.Tick()

	pending := sim.Transactions()
	require.Len(t, pending, 1)
	assert.Len(t, pending[0].Downloads, 2)
}

func TestSimulatorDisabledPayments(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{PaymentsDisabled: true}, nil)

	assert.False(t, sim.CanMakePayments())
	assert.Error(t, sim.SubmitPayment("com.example.starter"))
}

// TestFullPurchaseFlow drives the real controller, processor, ledger and
// relocator with the simulator in manual-tick mode.
func TestFullPurchaseFlow(t *testing.T) {
	contentRoot := t.TempDir()
	purchasesDir := t.TempDir()

	sim := NewSimulator(SimulatorConfig{
		DownloadsPerProduct: map[string]int{"com.example.artpack": 1},
		ContentRoot:         contentRoot,
	}, nil)

	ledger := repository.NewLedger(memory.NewStore())
	relocator := content.NewRelocator(purchasesDir, nil)

	controller, err := store.New(sim, &noopCatalogService{}, ledger, relocator, nil, store.Options{
		Manifest: []domain.ManifestEntry{
			{ID: "com.example.starter"},
			{ID: "com.example.artpack"},
		},
	})
	require.NoError(t, err)
	defer controller.Close()

	var mu sync.Mutex
	var kinds []domain.EventKind
	var contentPath string
	product := controller.Product("com.example.artpack")
	record := func(e domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, e.Kind)
		if e.Kind == domain.EventDownloadFinished {
			contentPath = e.ContentPath
		}
	}
	for _, kind := range []domain.EventKind{
		domain.EventPurchasePurchasing,
		domain.EventPurchaseSucceeded,
		domain.EventPurchaseDownloading,
		domain.EventDownloadFinished,
		domain.EventPurchaseFinished,
	} {
		require.NoError(t, product.On(kind, record))
	}

	require.NoError(t, product.Purchase())

	// purchasing -> purchased -> download active -> download finished
	for i := 0; i < 4; i++ {
		sim.Tick()
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.EventKind{
		domain.EventPurchasePurchasing,
		domain.EventPurchaseSucceeded,
		domain.EventPurchaseDownloading,
		domain.EventDownloadFinished,
		domain.EventPurchaseFinished,
	}, kinds)

	assert.True(t, product.Purchased())
	assert.Empty(t, sim.Transactions(), "transaction acknowledged and drained")

	require.NotEmpty(t, contentPath)
	entries, err := os.ReadDir(contentPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "content.bin", entries[0].Name())
	assert.Equal(t, filepath.Join(purchasesDir, "com.example.artpack"), contentPath)
}

type noopCatalogService struct{}

func (noopCatalogService) RequestProductInfo(ctx context.Context, ids []string) (domain.ProductInfo, error) {
	return domain.ProductInfo{}, nil
}
