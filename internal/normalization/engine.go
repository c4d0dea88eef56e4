package normalization

import (
	"context"

	"gmx-edge-lab/internal/domain"
)

// Aggregator defines the tick aggregation interface.
type Aggregator interface {
	// AggregateDir buckets every trade shard in dir and returns one time-ordered table.
	AggregateDir(ctx context.Context, dir string) ([]*domain.Bucket, error)
}

var _ Aggregator = (*Runner)(nil)
