package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

// BucketStore implements storage.BucketStore using ClickHouse.
type BucketStore struct {
	conn *Conn
}

// NewBucketStore creates a new BucketStore.
func NewBucketStore(conn *Conn) *BucketStore {
	return &BucketStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BucketStore = (*BucketStore)(nil)

type bucketKey struct {
	source string
	ms     int64
}

// InsertBulk adds multiple buckets for a symbol. Fails entire batch on duplicate (source, time_start).
func (s *BucketStore) InsertBulk(ctx context.Context, symbol string, buckets []*domain.Bucket) (err error) {
	if len(buckets) == 0 {
		return nil
	}
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_buckets", start, err) }(time.Now())

	// Check for intra-batch duplicates
	seen := make(map[bucketKey]struct{}, len(buckets))
	minMs, maxMs := int64(0), int64(0)
	for i, b := range buckets {
		if b == nil {
			return storage.ErrInvalidInput
		}
		k := bucketKey{b.Source, b.TimeStart.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		if i == 0 || k.ms < minMs {
			minMs = k.ms
		}
		if i == 0 || k.ms > maxMs {
			maxMs = k.ms
		}
	}

	// Check for duplicates against existing DB rows
	existing, err := s.keysInRange(ctx, symbol, minMs, maxMs)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for k := range seen {
		if _, ok := existing[k]; ok {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_buckets (
			symbol, source, time_start, price, quantity, trade_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range buckets {
		var price *decimal.Decimal
		if b.Price.Valid {
			p := b.Price.Decimal.Round(decimalScale)
			price = &p
		}
		err = batch.Append(
			symbol, b.Source, b.TimeStart.UTC(),
			price, b.Quantity.Round(decimalScale), b.TradeCount,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all buckets for a symbol, ordered by time_start ASC, source ASC.
func (s *BucketStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bucket, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT source, time_start, price, quantity, trade_count
		FROM price_buckets
		WHERE symbol = ?
		ORDER BY time_start ASC, source ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanBuckets(rows)
}

// GetByTimeRange retrieves buckets for a symbol with time_start within [start, end] (inclusive).
func (s *BucketStore) GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bucket, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT source, time_start, price, quantity, trade_count
		FROM price_buckets
		WHERE symbol = ?
		  AND toUnixTimestamp64Milli(time_start) >= ?
		  AND toUnixTimestamp64Milli(time_start) <= ?
		ORDER BY time_start ASC, source ASC
	`, symbol, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanBuckets(rows)
}

// keysInRange returns the (source, time_start) keys stored for a symbol within [fromMs, toMs].
func (s *BucketStore) keysInRange(ctx context.Context, symbol string, fromMs, toMs int64) (map[bucketKey]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT source, toUnixTimestamp64Milli(time_start)
		FROM price_buckets
		WHERE symbol = ?
		  AND toUnixTimestamp64Milli(time_start) >= ?
		  AND toUnixTimestamp64Milli(time_start) <= ?
	`, symbol, fromMs, toMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[bucketKey]struct{})
	for rows.Next() {
		var k bucketKey
		if err := rows.Scan(&k.source, &k.ms); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

// scanBuckets scans multiple rows.
func scanBuckets(rows chRows) ([]*domain.Bucket, error) {
	var buckets []*domain.Bucket

	for rows.Next() {
		var b domain.Bucket
		var price *decimal.Decimal

		err := rows.Scan(&b.Source, &b.TimeStart, &price, &b.Quantity, &b.TradeCount)
		if err != nil {
			return nil, fmt.Errorf("scan bucket row: %w", err)
		}

		b.TimeStart = b.TimeStart.UTC()
		if price != nil {
			b.Price = decimal.NewNullDecimal(*price)
		}
		buckets = append(buckets, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bucket rows: %w", err)
	}

	return buckets, nil
}
