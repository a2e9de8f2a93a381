package redis

import (
	"context"
	"encoding/json"
	"fmt"

	redislib "github.com/redis/go-redis/v9"

	"github.com/storekit/mediator/repository"
)

// Store persists ledger entries in Redis, one JSON list per namespaced key.
type Store struct {
	client *redislib.Client
	prefix string
}

var _ repository.KeyValueStore = (*Store)(nil)

// NewStore creates a Redis-backed key-value store.
func NewStore(client *redislib.Client) *Store {
	return &Store{
		client: client,
		prefix: "storekit:",
	}
}

// NewClient connects to Redis using the given URL.
func NewClient(url string) (*redislib.Client, error) {
	opts, err := redislib.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redislib.NewClient(opts), nil
}

// GetAll returns the string list stored under the key, or an empty list.
func (s *Store) GetAll(ctx context.Context, key string) ([]string, error) {
	result, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == redislib.Nil {
			return nil, nil
		}
		return nil, err
	}

	var values []string
	if err := json.Unmarshal([]byte(result), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// SetAll replaces the string list stored under the key. A nil or empty list
// deletes the key.
func (s *Store) SetAll(ctx context.Context, key string, values []string) error {
	if len(values) == 0 {
		return s.client.Del(ctx, s.key(key)).Err()
	}

	payload, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), payload, 0).Err()
}

func (s *Store) key(key string) string {
	return fmt.Sprintf("%s%s", s.prefix, key)
}
