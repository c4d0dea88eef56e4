package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

// GraphRecordStore implements storage.GraphRecordStore using PostgreSQL.
// Payloads are stored as JSONB.
type GraphRecordStore struct {
	pool *Pool
}

// NewGraphRecordStore creates a new GraphRecordStore.
func NewGraphRecordStore(pool *Pool) *GraphRecordStore {
	return &GraphRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GraphRecordStore = (*GraphRecordStore)(nil)

// InsertBulk adds records in one transaction, skipping (collection, id) pairs already stored.
// Returns the number of records inserted.
func (s *GraphRecordStore) InsertBulk(ctx context.Context, records []*domain.GraphRecord) (inserted int, err error) {
	if len(records) == 0 {
		return 0, nil
	}
	for _, r := range records {
		if r == nil || r.Collection == "" || r.ID == "" {
			return 0, storage.ErrInvalidInput
		}
	}
	defer func(start time.Time) { observe("insert_graph_records", start, err) }(time.Now())

	err = s.pool.withTx(ctx, func(tx pgx.Tx) error {
		for _, r := range records {
			var recordTime *time.Time
			if !r.Time.IsZero() {
				t := r.Time.UTC()
				recordTime = &t
			}

			tag, err := tx.Exec(ctx, `
				INSERT INTO graph_records (collection, id, record_time, payload)
				VALUES ($1, $2, $3, $4::jsonb)
				ON CONFLICT (collection, id) DO NOTHING
			`, r.Collection, r.ID, recordTime, string(r.Payload))
			if err != nil {
				return fmt.Errorf("insert graph record: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// GetByCollection retrieves all records of a collection, ordered by time ASC, id ASC.
// Records without a time sort last.
func (s *GraphRecordStore) GetByCollection(ctx context.Context, collection string) ([]*domain.GraphRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT collection, id, record_time, payload::text
		FROM graph_records
		WHERE collection = $1
		ORDER BY record_time ASC NULLS LAST, id ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("get graph records by collection: %w", err)
	}
	defer rows.Close()

	var records []*domain.GraphRecord
	for rows.Next() {
		var (
			r          domain.GraphRecord
			recordTime *time.Time
			payload    string
		)
		if err := rows.Scan(&r.Collection, &r.ID, &recordTime, &payload); err != nil {
			return nil, fmt.Errorf("scan graph record: %w", err)
		}
		if recordTime != nil {
			r.Time = recordTime.UTC()
		}
		r.Payload = json.RawMessage(payload)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graph records: %w", err)
	}

	return records, nil
}
