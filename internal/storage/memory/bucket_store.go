package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

// BucketStore is an in-memory implementation of storage.BucketStore.
type BucketStore struct {
	mu   sync.RWMutex
	data map[string]*storedBucket // keyed by (symbol, source, time_start)
}

type storedBucket struct {
	symbol string
	bucket domain.Bucket
}

// NewBucketStore creates a new in-memory bucket store.
func NewBucketStore() *BucketStore {
	return &BucketStore{
		data: make(map[string]*storedBucket),
	}
}

// bucketKey generates a unique key for a bucket.
func bucketKey(symbol, source string, start time.Time) string {
	return fmt.Sprintf("%s|%s|%d", symbol, source, start.UnixMilli())
}

// InsertBulk adds multiple buckets. Fails entire batch on duplicate.
func (s *BucketStore) InsertBulk(_ context.Context, symbol string, buckets []*domain.Bucket) error {
	if len(buckets) == 0 {
		return nil
	}
	if symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(buckets))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range buckets {
		if b == nil {
			return storage.ErrInvalidInput
		}
		key := bucketKey(symbol, b.Source, b.TimeStart)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range buckets {
		s.data[bucketKey(symbol, b.Source, b.TimeStart)] = &storedBucket{symbol: symbol, bucket: *b}
	}

	return nil
}

// GetBySymbol retrieves all buckets for a symbol, ordered by time_start ASC, source ASC.
func (s *BucketStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.Bucket, error) {
	return s.filter(symbol, func(*domain.Bucket) bool { return true }), nil
}

// GetByTimeRange retrieves buckets for a symbol within [start, end] (inclusive).
func (s *BucketStore) GetByTimeRange(_ context.Context, symbol string, start, end time.Time) ([]*domain.Bucket, error) {
	return s.filter(symbol, func(b *domain.Bucket) bool {
		return !b.TimeStart.Before(start) && !b.TimeStart.After(end)
	}), nil
}

func (s *BucketStore) filter(symbol string, keep func(*domain.Bucket) bool) []*domain.Bucket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bucket
	for _, sb := range s.data {
		if sb.symbol == symbol && keep(&sb.bucket) {
			bucketCopy := sb.bucket
			result = append(result, &bucketCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].TimeStart.Equal(result[j].TimeStart) {
			return result[i].TimeStart.Before(result[j].TimeStart)
		}
		return result[i].Source < result[j].Source
	})

	return result
}

var _ storage.BucketStore = (*BucketStore)(nil)
