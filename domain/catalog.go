package domain

import "sync"

// Catalog is an ordered registry of products keyed by id. Insertion order
// follows the manifest; adding an id twice is a no-op that returns the
// existing product.
type Catalog struct {
	mu       sync.RWMutex
	order    []string
	products map[string]*Product
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]*Product)}
}

// Add registers a product for the manifest entry, creating it when the id
// is new. Dedup is by id only.
func (c *Catalog) Add(entry ManifestEntry, controller Controller) (*Product, error) {
	if entry.ID == "" {
		return nil, ErrMissingProductID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.products[entry.ID]; ok {
		return existing, nil
	}

	product, err := NewProduct(entry, controller)
	if err != nil {
		return nil, err
	}
	c.products[entry.ID] = product
	c.order = append(c.order, entry.ID)
	return product, nil
}

// Get returns the product for the id, or nil.
func (c *Catalog) Get(id string) *Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.products[id]
}

// IDs returns the product ids in manifest order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Products returns the products in manifest order.
func (c *Catalog) Products() []*Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ordered := make([]*Product, 0, len(c.order))
	for _, id := range c.order {
		if product, ok := c.products[id]; ok {
			ordered = append(ordered, product)
		}
	}
	return ordered
}

// Len returns the number of registered products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}
