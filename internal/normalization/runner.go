package normalization

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/logging"
	"gmx-edge-lab/internal/observability"
	"gmx-edge-lab/internal/storage"
)

// Runner buckets trade shards and optionally persists the result.
type Runner struct {
	width  time.Duration
	symbol string
	store  storage.BucketStore
	logger *zap.Logger
}

// RunnerOption configures Runner.
type RunnerOption func(*Runner)

// WithBucketStore persists every shard's buckets under symbol.
func WithBucketStore(store storage.BucketStore, symbol string) RunnerOption {
	return func(r *Runner) {
		r.store = store
		r.symbol = symbol
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a runner with the given bucket width.
// A non-positive width falls back to domain.DefaultBucketWidth.
func NewRunner(width time.Duration, opts ...RunnerOption) *Runner {
	if width <= 0 {
		width = domain.DefaultBucketWidth
	}
	r := &Runner{width: width}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

// AggregateDir processes every non-hidden regular file in dir.
// Steps:
//  1. List shards (sorted by name for deterministic output)
//  2. Bucket each shard independently
//  3. Concatenate and stable-sort by time_start
//
// Buckets from different shards that share a start are kept side by side, not merged.
func (r *Runner) AggregateDir(ctx context.Context, dir string) ([]*domain.Bucket, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read shard dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	return r.AggregateFiles(ctx, paths)
}

// AggregateFiles processes the given shard files in order.
func (r *Runner) AggregateFiles(ctx context.Context, paths []string) ([]*domain.Bucket, error) {
	var all []*domain.Bucket
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open shard: %w", err)
		}
		buckets, err := r.AggregateShard(ctx, filepath.Base(p), f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("shard %s: %w", p, err)
		}
		all = append(all, buckets...)
	}

	SortBuckets(all)
	return all, nil
}

// AggregateShard buckets a single shard read from rd.
func (r *Runner) AggregateShard(ctx context.Context, source string, rd io.Reader) ([]*domain.Bucket, error) {
	ticks, err := ReadTicks(rd)
	if err != nil {
		return nil, err
	}

	buckets := BucketTicks(ticks, r.width, source)
	observability.RecordShard(source, len(ticks), len(buckets))
	r.logger.Info("bucketed shard",
		zap.String("source", source),
		zap.Int("ticks", len(ticks)),
		zap.Int("buckets", len(buckets)),
		zap.Duration("width", r.width),
	)

	if r.store != nil && len(buckets) > 0 {
		if err := r.store.InsertBulk(ctx, r.symbol, buckets); err != nil {
			return nil, fmt.Errorf("store buckets: %w", err)
		}
	}

	return buckets, nil
}
