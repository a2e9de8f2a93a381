package domain

import "sync"

// EventKind names a purchase or download lifecycle event raised on a product.
type EventKind string

const (
	EventPurchasePurchasing  EventKind = "purchase_purchasing"
	EventPurchaseSucceeded   EventKind = "purchase_succeeded"
	EventPurchaseDownloading EventKind = "purchase_downloading"
	EventPurchaseFinished    EventKind = "purchase_finished"
	EventPurchaseFailed      EventKind = "purchase_failed"
	EventPurchaseCancelled   EventKind = "purchase_cancelled"
	EventPurchaseRestored    EventKind = "purchase_restored"

	EventDownloadWaiting   EventKind = "download_waiting"
	EventDownloadActive    EventKind = "download_active"
	EventDownloadPaused    EventKind = "download_paused"
	EventDownloadCancelled EventKind = "download_cancelled"
	EventDownloadFailed    EventKind = "download_failed"
	EventDownloadFinished  EventKind = "download_finished"
)

// Event is the payload delivered to product event handlers. Transaction
// carries the original transaction on purchase_restored. ContentPath is
// set only on download_finished.
type Event struct {
	Kind        EventKind
	ProductID   string
	Transaction *TransactionRecord
	Download    *DownloadRecord
	ContentPath string
}

// Handler consumes a product event.
type Handler func(Event)

// Bus dispatches events to handlers registered per event kind. Handlers
// for a kind run in registration order; a panicking handler does not stop
// the ones registered after it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventKind][]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventKind][]Handler)}
}

// On registers the given handlers for the event kind, appended in argument
// order. At least one non-nil handler is required.
func (b *Bus) On(kind EventKind, handlers ...Handler) error {
	var valid []Handler
	for _, h := range handlers {
		if h != nil {
			valid = append(valid, h)
		}
	}
	if len(valid) == 0 {
		return ErrNoHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], valid...)
	return nil
}

// Off removes every handler registered for the event kind.
func (b *Bus) Off(kind EventKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, kind)
}

// Trigger invokes the handlers registered for the event's kind.
func (b *Bus) Trigger(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Kind]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		invoke(h, event)
	}
}

func invoke(h Handler, event Event) {
	defer func() {
		_ = recover()
	}()
	h(event)
}
