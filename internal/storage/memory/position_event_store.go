package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

// PositionEventStore is an in-memory implementation of storage.PositionEventStore.
type PositionEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PositionEvent // keyed by id
}

// NewPositionEventStore creates a new in-memory position event store.
func NewPositionEventStore() *PositionEventStore {
	return &PositionEventStore{
		data: make(map[string]*domain.PositionEvent),
	}
}

// InsertBulk adds events, skipping ids already stored. The first of repeated ids in a batch wins.
// Returns the number of events inserted.
func (s *PositionEventStore) InsertBulk(_ context.Context, events []*domain.PositionEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	for _, e := range events {
		if e == nil || e.ID == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, e := range events {
		if _, exists := s.data[e.ID]; exists {
			continue
		}
		eventCopy := *e
		s.data[e.ID] = &eventCopy
		inserted++
	}

	return inserted, nil
}

// GetByID retrieves an event by its ID.
func (s *PositionEventStore) GetByID(_ context.Context, id string) (*domain.PositionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	eventCopy := *e
	return &eventCopy, nil
}

// GetByTimeRange retrieves events for an index token within [start, end] (inclusive).
func (s *PositionEventStore) GetByTimeRange(_ context.Context, indexToken string, start, end time.Time) ([]*domain.PositionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PositionEvent
	for _, e := range s.data {
		if e.IndexToken == indexToken && !e.Time.Before(start) && !e.Time.After(end) {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Time.Equal(result[j].Time) {
			return result[i].Time.Before(result[j].Time)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.PositionEventStore = (*PositionEventStore)(nil)
