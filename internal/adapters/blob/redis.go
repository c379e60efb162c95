package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/fr0stylo/venuecal/internal/app/ports"
)

// DefaultSnapshotKey is the Redis key holding the catalog document.
const DefaultSnapshotKey = "venuecal:events:snapshot"

var _ ports.SnapshotStore = (*RedisSnapshotStore)(nil)

// RedisSnapshotStore keeps the snapshot under one Redis key. Every write
// replaces the previous document.
type RedisSnapshotStore struct {
	client *redis.Client
	key    string
}

// NewRedisSnapshotStore builds a store for key, or DefaultSnapshotKey when empty.
func NewRedisSnapshotStore(client *redis.Client, key string) *RedisSnapshotStore {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &RedisSnapshotStore{client: client, key: key}
}

// Write stores doc without expiry.
func (s *RedisSnapshotStore) Write(ctx context.Context, doc []byte) error {
	if err := s.client.Set(ctx, s.key, doc, 0).Err(); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.key, err)
	}
	return nil
}

// Read returns the stored document or ErrSnapshotNotFound.
func (s *RedisSnapshotStore) Read(ctx context.Context) ([]byte, error) {
	doc, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.key, err)
	}
	return doc, nil
}

// Ping checks the connection; used at startup so a bad address is logged early.
func (s *RedisSnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
