package registry

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores the registry in one Redis hash per chain.
type RedisBackend struct {
	client redis.UniversalClient
	key    string
}

// NewRedisBackend returns a backend using the hash "collections:<chainID>".
func NewRedisBackend(client redis.UniversalClient, chainID int64) *RedisBackend {
	return &RedisBackend{
		client: client,
		key:    fmt.Sprintf("collections:%d", chainID),
	}
}

// Key returns the hash key.
func (b *RedisBackend) Key() string {
	return b.key
}

// LoadAll reads every field of the hash.
func (b *RedisBackend) LoadAll(ctx context.Context) (map[string]string, error) {
	all, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", b.key, err)
	}
	return all, nil
}

// Store sets the field only if it does not exist yet.
func (b *RedisBackend) Store(ctx context.Context, collectionType, collectionID string) error {
	if err := b.client.HSetNX(ctx, b.key, collectionType, collectionID).Err(); err != nil {
		return fmt.Errorf("hsetnx %s: %w", b.key, err)
	}
	return nil
}
