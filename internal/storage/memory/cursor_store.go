package memory

import (
	"context"
	"sync"

	"gmx-edge-lab/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[string]string
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		cursors: make(map[string]string),
	}
}

// GetCursor returns the last cursor saved for a collection.
func (s *CursorStore) GetCursor(_ context.Context, collection string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cursors[collection]
	if !ok {
		return "", storage.ErrNotFound
	}
	return c, nil
}

// SetCursor saves the cursor for a collection.
func (s *CursorStore) SetCursor(_ context.Context, collection, cursor string) error {
	if collection == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[collection] = cursor
	return nil
}

var _ storage.CursorStore = (*CursorStore)(nil)
