package memory

import (
	"context"
	"sort"
	"sync"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

// GraphRecordStore is an in-memory implementation of storage.GraphRecordStore.
type GraphRecordStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.GraphRecord // collection -> id -> record
}

// NewGraphRecordStore creates a new in-memory graph record store.
func NewGraphRecordStore() *GraphRecordStore {
	return &GraphRecordStore{
		data: make(map[string]map[string]*domain.GraphRecord),
	}
}

// InsertBulk adds records, skipping (collection, id) pairs already stored.
// Returns the number of records inserted.
func (s *GraphRecordStore) InsertBulk(_ context.Context, records []*domain.GraphRecord) (int, error) {
	for _, r := range records {
		if r == nil || r.Collection == "" || r.ID == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, r := range records {
		coll, ok := s.data[r.Collection]
		if !ok {
			coll = make(map[string]*domain.GraphRecord)
			s.data[r.Collection] = coll
		}
		if _, exists := coll[r.ID]; exists {
			continue
		}
		recordCopy := *r
		recordCopy.Payload = append([]byte(nil), r.Payload...)
		coll[r.ID] = &recordCopy
		inserted++
	}

	return inserted, nil
}

// GetByCollection retrieves all records of a collection, ordered by time ASC, id ASC.
func (s *GraphRecordStore) GetByCollection(_ context.Context, collection string) ([]*domain.GraphRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.GraphRecord
	for _, r := range s.data[collection] {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Time.Equal(result[j].Time) {
			return result[i].Time.Before(result[j].Time)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.GraphRecordStore = (*GraphRecordStore)(nil)
