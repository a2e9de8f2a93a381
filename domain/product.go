package domain

import "sync"

// Attributes holds the descriptive fields fetched from the catalog
// service. All fields are absent until the first successful fetch.
type Attributes struct {
	Title          string  `json:"title,omitempty"`
	Description    string  `json:"description,omitempty"`
	Price          float64 `json:"price,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	FormattedPrice string  `json:"formatted_price,omitempty"`
}

// ProductInfo maps product ids to their fetched attributes.
type ProductInfo map[string]*Attributes

// ManifestEntry is one application-supplied catalog entry. Only ID is
// required; Metadata is an opaque seed for the application's own use.
type ManifestEntry struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Controller is the non-owning handle a product keeps back to its store
// controller. The controller owns the product, never the reverse.
type Controller interface {
	Purchase(productID string) error
	Purchased(productID string) bool
}

// Product is a purchasable item. Its id is immutable; descriptive fields
// are populated only through ApplyAttributes, which can run on a fetch
// goroutine concurrently with readers.
type Product struct {
	id         string
	bus        *Bus
	controller Controller

	mu    sync.RWMutex
	attrs Attributes
}

// NewProduct creates a product from a manifest entry. The entry must carry
// an id and the controller handle must be non-nil.
func NewProduct(entry ManifestEntry, controller Controller) (*Product, error) {
	if entry.ID == "" {
		return nil, ErrMissingProductID
	}
	if controller == nil {
		return nil, ErrNilController
	}
	return &Product{
		id:         entry.ID,
		bus:        NewBus(),
		controller: controller,
	}, nil
}

func (p *Product) ID() string { return p.id }

// Attributes returns a copy of the currently known descriptive fields.
func (p *Product) Attributes() Attributes {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.attrs
}

func (p *Product) Title() string          { return p.Attributes().Title }
func (p *Product) Description() string    { return p.Attributes().Description }
func (p *Product) Price() float64         { return p.Attributes().Price }
func (p *Product) Currency() string       { return p.Attributes().Currency }
func (p *Product) FormattedPrice() string { return p.Attributes().FormattedPrice }

// ApplyAttributes merges fetched attributes into the product. Only the
// known descriptive fields are set; zero values do not clear existing ones.
func (p *Product) ApplyAttributes(attrs *Attributes) {
	if attrs == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if attrs.Title != "" {
		p.attrs.Title = attrs.Title
	}
	if attrs.Description != "" {
		p.attrs.Description = attrs.Description
	}
	if attrs.Price != 0 {
		p.attrs.Price = attrs.Price
	}
	if attrs.Currency != "" {
		p.attrs.Currency = attrs.Currency
	}
	if attrs.FormattedPrice != "" {
		p.attrs.FormattedPrice = attrs.FormattedPrice
	}
}

// Purchase submits a payment for this product through the controller.
func (p *Product) Purchase() error {
	return p.controller.Purchase(p.id)
}

// Purchased reports whether this product is in the purchase ledger.
func (p *Product) Purchased() bool {
	return p.controller.Purchased(p.id)
}

// On registers event handlers for this product.
func (p *Product) On(kind EventKind, handlers ...Handler) error {
	return p.bus.On(kind, handlers...)
}

// Off removes all handlers for the event kind.
func (p *Product) Off(kind EventKind) {
	p.bus.Off(kind)
}

// Trigger dispatches an event to this product's handlers.
func (p *Product) Trigger(event Event) {
	p.bus.Trigger(event)
}
