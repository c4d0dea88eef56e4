package memory

import (
	"context"
	"sort"
	"sync"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

// MergedTradeStore is an in-memory implementation of storage.MergedTradeStore.
type MergedTradeStore struct {
	mu   sync.RWMutex
	runs map[string]map[string]*domain.MergedTrade // run_id -> event_id -> row
}

// NewMergedTradeStore creates a new in-memory merged trade store.
func NewMergedTradeStore() *MergedTradeStore {
	return &MergedTradeStore{
		runs: make(map[string]map[string]*domain.MergedTrade),
	}
}

// InsertBulk adds all rows of a run. Fails entire batch on duplicate (run_id, event_id).
func (s *MergedTradeStore) InsertBulk(_ context.Context, runID string, rows []*domain.MergedTrade) error {
	if len(rows) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.runs[runID]
	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.Event == nil || r.Event.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := existing[r.Event.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.Event.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.Event.ID] = struct{}{}
	}

	if existing == nil {
		existing = make(map[string]*domain.MergedTrade, len(rows))
		s.runs[runID] = existing
	}
	for _, r := range rows {
		existing[r.Event.ID] = copyMerged(r)
	}

	return nil
}

// GetByRunID retrieves all rows of a run, ordered by event time ASC, event id ASC.
func (s *MergedTradeStore) GetByRunID(_ context.Context, runID string) ([]*domain.MergedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MergedTrade
	for _, r := range s.runs[runID] {
		result = append(result, copyMerged(r))
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Event, result[j].Event
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return a.ID < b.ID
	})

	return result, nil
}

func copyMerged(r *domain.MergedTrade) *domain.MergedTrade {
	out := *r
	eventCopy := *r.Event
	out.Event = &eventCopy
	if r.Reference != nil {
		refCopy := *r.Reference
		out.Reference = &refCopy
	}
	if r.PriceEdge != nil {
		edge := *r.PriceEdge
		out.PriceEdge = &edge
	}
	return &out
}

var _ storage.MergedTradeStore = (*MergedTradeStore)(nil)
