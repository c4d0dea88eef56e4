package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

// PositionEventStore implements storage.PositionEventStore using PostgreSQL.
// Amounts are stored as NUMERIC and round-tripped through their decimal text form.
type PositionEventStore struct {
	pool *Pool
}

// NewPositionEventStore creates a new PositionEventStore.
func NewPositionEventStore(pool *Pool) *PositionEventStore {
	return &PositionEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionEventStore = (*PositionEventStore)(nil)

const insertPositionEvent = `
	INSERT INTO position_events (
		id, key, event_time, timestamp, account, collateral_token, index_token, is_long,
		event_type, size_delta, price, collateral_delta, fee
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11::numeric, $12::numeric, $13::numeric)
	ON CONFLICT (id) DO NOTHING
`

const selectPositionEvent = `
	SELECT id, key, event_time, timestamp, account, collateral_token, index_token, is_long,
		event_type, size_delta::text, price::text, collateral_delta::text, fee::text
	FROM position_events
`

// InsertBulk adds events in one transaction, skipping ids already stored.
// Returns the number of events inserted.
func (s *PositionEventStore) InsertBulk(ctx context.Context, events []*domain.PositionEvent) (inserted int, err error) {
	if len(events) == 0 {
		return 0, nil
	}
	defer func(start time.Time) { observe("insert_position_events", start, err) }(time.Now())

	batch := &pgx.Batch{}
	for _, e := range events {
		if e == nil || e.ID == "" {
			return 0, storage.ErrInvalidInput
		}
		batch.Queue(insertPositionEvent,
			e.ID,
			e.Key,
			e.Time,
			e.Timestamp,
			e.Account,
			e.CollateralToken,
			e.IndexToken,
			e.IsLong,
			string(e.EventType),
			e.SizeDelta.String(),
			e.Price.String(),
			e.CollateralDelta.String(),
			e.Fee.String(),
		)
	}

	err = s.pool.withTx(ctx, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for range events {
			tag, err := br.Exec()
			if err != nil {
				return fmt.Errorf("insert position event in bulk: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// GetByID retrieves an event by its ID.
func (s *PositionEventStore) GetByID(ctx context.Context, id string) (*domain.PositionEvent, error) {
	rows, err := s.pool.Query(ctx, selectPositionEvent+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get position event by id: %w", err)
	}
	defer rows.Close()

	events, err := scanPositionEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, storage.ErrNotFound
	}
	return events[0], nil
}

// GetByTimeRange retrieves events for an index token within [start, end] (inclusive).
func (s *PositionEventStore) GetByTimeRange(ctx context.Context, indexToken string, start, end time.Time) ([]*domain.PositionEvent, error) {
	rows, err := s.pool.Query(ctx, selectPositionEvent+`
		WHERE index_token = $1 AND event_time >= $2 AND event_time <= $3
		ORDER BY event_time ASC, id ASC
	`, indexToken, start, end)
	if err != nil {
		return nil, fmt.Errorf("get position events by time range: %w", err)
	}
	defer rows.Close()

	return scanPositionEvents(rows)
}

// scanPositionEvents scans multiple rows into a slice of PositionEvent.
func scanPositionEvents(rows pgx.Rows) ([]*domain.PositionEvent, error) {
	var events []*domain.PositionEvent

	for rows.Next() {
		var (
			e                                    domain.PositionEvent
			eventType                            string
			sizeDelta, price, collDelta, feeText string
		)
		err := rows.Scan(
			&e.ID, &e.Key, &e.Time, &e.Timestamp, &e.Account, &e.CollateralToken, &e.IndexToken, &e.IsLong,
			&eventType, &sizeDelta, &price, &collDelta, &feeText,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position event: %w", err)
		}

		e.Time = e.Time.UTC()
		e.EventType = domain.EventType(eventType)
		for _, f := range []struct {
			raw string
			dst *decimal.Decimal
		}{
			{sizeDelta, &e.SizeDelta},
			{price, &e.Price},
			{collDelta, &e.CollateralDelta},
			{feeText, &e.Fee},
		} {
			d, err := decimal.NewFromString(f.raw)
			if err != nil {
				return nil, fmt.Errorf("parse numeric %q: %w", f.raw, err)
			}
			*f.dst = d
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position events: %w", err)
	}

	return events, nil
}
