package memory

import (
	"context"
	"sync"

	"github.com/storekit/mediator/repository"
)

// Store is an in-memory key-value store for tests and the demo binary.
type Store struct {
	mu     sync.RWMutex
	values map[string][]string
}

var _ repository.KeyValueStore = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{values: make(map[string][]string)}
}

func (s *Store) GetAll(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.values[key]...), nil
}

func (s *Store) SetAll(ctx context.Context, key string, values []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(values) == 0 {
		delete(s.values, key)
		return nil
	}
	s.values[key] = append([]string(nil), values...)
	return nil
}
