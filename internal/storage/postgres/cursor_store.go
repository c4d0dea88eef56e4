package postgres

import (
	"context"
	"fmt"

	"gmx-edge-lab/internal/storage"
)

// CursorStore implements storage.CursorStore using PostgreSQL.
// One row per collection in fetch_cursors.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new CursorStore.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// GetCursor returns the last cursor saved for a collection.
func (s *CursorStore) GetCursor(ctx context.Context, collection string) (string, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT cursor
		FROM fetch_cursors
		WHERE collection = $1
	`, collection)

	var cursor string
	if err := row.Scan(&cursor); err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get cursor: %w", err)
	}

	return cursor, nil
}

// SetCursor saves the cursor for a collection.
// Uses upsert to handle initial insert and subsequent updates.
func (s *CursorStore) SetCursor(ctx context.Context, collection, cursor string) error {
	if collection == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO fetch_cursors (collection, cursor, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (collection) DO UPDATE
		SET cursor = EXCLUDED.cursor,
		    updated_at = NOW()
	`, collection, cursor)
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}

	return nil
}
