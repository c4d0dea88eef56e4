// Package redis provides a Redis-backed cursor store, so that several fetch
// processes can share pagination progress.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"gmx-edge-lab/internal/storage"
)

// DefaultKeyPrefix namespaces every key written by this package.
const DefaultKeyPrefix = "gmxedge"

// NewClient creates a Redis client from a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 5 * time.Second
	opts.WriteTimeout = 5 * time.Second
	opts.MaxRetries = 3

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// CursorStore implements storage.CursorStore on a single Redis hash,
// one field per collection.
type CursorStore struct {
	client *goredis.Client
	key    string
}

// NewCursorStore creates a CursorStore. An empty prefix uses DefaultKeyPrefix.
func NewCursorStore(client *goredis.Client, prefix string) *CursorStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &CursorStore{client: client, key: prefix + ":cursors"}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// GetCursor returns the last cursor saved for a collection.
func (s *CursorStore) GetCursor(ctx context.Context, collection string) (string, error) {
	cursor, err := s.client.HGet(ctx, s.key, collection).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get cursor: %w", err)
	}
	return cursor, nil
}

// SetCursor saves the cursor for a collection.
func (s *CursorStore) SetCursor(ctx context.Context, collection, cursor string) error {
	if collection == "" {
		return storage.ErrInvalidInput
	}
	if err := s.client.HSet(ctx, s.key, collection, cursor).Err(); err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
