package storage

import (
	"context"
	"time"

	"gmx-edge-lab/internal/domain"
)

// BucketStore provides access to price_buckets storage.
type BucketStore interface {
	// InsertBulk adds multiple buckets for a symbol. Fails entire batch on duplicate (source, time_start).
	InsertBulk(ctx context.Context, symbol string, buckets []*domain.Bucket) error

	// GetBySymbol retrieves all buckets for a symbol, ordered by time_start ASC, source ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bucket, error)

	// GetByTimeRange retrieves buckets for a symbol with time_start within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bucket, error)
}

// PositionEventStore provides access to position_events storage.
type PositionEventStore interface {
	// InsertBulk adds events. Events whose id is already stored are skipped, not rejected,
	// so that a run over a superset of earlier trades stores only the new events.
	// Returns the number of events inserted.
	InsertBulk(ctx context.Context, events []*domain.PositionEvent) (int, error)

	// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.PositionEvent, error)

	// GetByTimeRange retrieves events for an index token within [start, end] (inclusive), ordered by time ASC.
	GetByTimeRange(ctx context.Context, indexToken string, start, end time.Time) ([]*domain.PositionEvent, error)
}

// MergedTradeStore provides access to merged_trades storage.
type MergedTradeStore interface {
	// InsertBulk adds all rows of one merge run. Fails entire batch on duplicate (run_id, event_id).
	InsertBulk(ctx context.Context, runID string, rows []*domain.MergedTrade) error

	// GetByRunID retrieves all rows of a run, ordered by event time ASC, event id ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.MergedTrade, error)
}

// GraphRecordStore provides access to graph_records storage.
type GraphRecordStore interface {
	// InsertBulk adds records. Records already present (collection, id) are skipped, not rejected,
	// so that a resumed fetch may overlap its previous page.
	InsertBulk(ctx context.Context, records []*domain.GraphRecord) (int, error)

	// GetByCollection retrieves all records of a collection, ordered by time ASC, id ASC.
	GetByCollection(ctx context.Context, collection string) ([]*domain.GraphRecord, error)
}

// CursorStore persists pagination cursors so that fetches can resume.
type CursorStore interface {
	// GetCursor returns the last cursor saved for a collection. Returns ErrNotFound if none.
	GetCursor(ctx context.Context, collection string) (string, error)

	// SetCursor saves the cursor for a collection.
	SetCursor(ctx context.Context, collection, cursor string) error
}
