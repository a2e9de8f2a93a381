package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/storekit/mediator/domain"
	"github.com/storekit/mediator/usecase"
)

// Cache resolves product ids to descriptive attributes, keeping every
// attribute set it has ever fetched. Requests whose ids are all cached are
// answered without a catalog call; anything else fetches the full requested
// set and merges the response in, last write wins per id. Concurrent
// requests for the same id set share one catalog call.
type Cache struct {
	service usecase.CatalogService
	logger  *zap.Logger

	mu      sync.RWMutex
	entries domain.ProductInfo

	group singleflight.Group
}

// NewCache creates a cache over the given catalog service.
func NewCache(service usecase.CatalogService, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		service: service,
		logger:  logger,
		entries: make(domain.ProductInfo),
	}
}

// Fetch resolves the requested ids. On catalog failure it returns a nil map
// and an error classified as a fetch failure; the cache is left untouched.
func (c *Cache) Fetch(ctx context.Context, productIDs []string) (domain.ProductInfo, error) {
	ids := normalize(productIDs)
	if len(ids) == 0 {
		return domain.ProductInfo{}, nil
	}

	cached, complete := c.snapshot(ids)
	if complete {
		c.logger.Debug("product info served from cache", zap.Int("ids", len(ids)))
		return cached, nil
	}

	key := strings.Join(ids, ",")
	fetched, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Over-fetch: request the full set, not just the missing ids.
		info, err := c.service.RequestProductInfo(ctx, ids)
		if err != nil {
			return nil, domain.WrapError(domain.ErrCodeFetch, "product info fetch failed", err)
		}
		c.merge(info)
		return info, nil
	})
	if err != nil {
		c.logger.Warn("product info fetch failed", zap.Error(err))
		return nil, err
	}
	if shared {
		c.logger.Debug("product info fetch deduplicated", zap.String("key", key))
	}

	// Answer from the fetched dataset plus whatever was cached when the
	// request started, so a concurrent Clear cannot hollow out the result.
	info := fetched.(domain.ProductInfo)
	result := make(domain.ProductInfo, len(ids))
	for _, id := range ids {
		if attrs, ok := info[id]; ok {
			result[id] = attrs
		} else if attrs, ok := cached[id]; ok {
			result[id] = attrs
		}
	}
	return result, nil
}

// Clear empties the cache. Fetches already in flight still complete and
// merge their dataset; only subsequent fetches see the empty cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(domain.ProductInfo)
}

// Len returns the number of cached ids.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) snapshot(ids []string) (domain.ProductInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(domain.ProductInfo, len(ids))
	complete := true
	for _, id := range ids {
		attrs, ok := c.entries[id]
		if !ok {
			complete = false
			continue
		}
		result[id] = attrs
	}
	return result, complete
}

func (c *Cache) merge(info domain.ProductInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, attrs := range info {
		c.entries[id] = attrs
	}
}

func normalize(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
