package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

// MergedTradeStore implements storage.MergedTradeStore using ClickHouse.
type MergedTradeStore struct {
	conn *Conn
}

// NewMergedTradeStore creates a new MergedTradeStore.
func NewMergedTradeStore(conn *Conn) *MergedTradeStore {
	return &MergedTradeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MergedTradeStore = (*MergedTradeStore)(nil)

const mergedColumns = `
	event_id, event_time, account, collateral_token, index_token, is_long, event_type,
	size_delta, price, collateral_delta, fee, event_key,
	reference_time, reference_price, min_reference_price, max_reference_price,
	trade_direction, price_edge, edge_status
`

// InsertBulk adds all rows of one merge run. Fails entire batch on duplicate (run_id, event_id).
func (s *MergedTradeStore) InsertBulk(ctx context.Context, runID string, rows []*domain.MergedTrade) (err error) {
	if len(rows) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_merged_trades", start, err) }(time.Now())

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.Event == nil || r.Event.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.Event.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.Event.ID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	existing, err := s.eventIDs(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for id := range seen {
		if _, ok := existing[id]; ok {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO merged_trades (run_id, `+mergedColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		e := r.Event
		var (
			refTime                  *time.Time
			refPrice, refMin, refMax *float64
		)
		if r.Reference != nil {
			t := r.Reference.Time.UTC()
			p, lo, hi := r.Reference.Price, r.Reference.Min, r.Reference.Max
			refTime, refPrice, refMin, refMax = &t, &p, &lo, &hi
		}

		err = batch.Append(
			runID, e.ID, e.Time.UTC(), e.Account, e.CollateralToken, e.IndexToken, e.IsLong, string(e.EventType),
			e.SizeDelta.Round(decimalScale), e.Price.Round(decimalScale),
			e.CollateralDelta.Round(decimalScale), e.Fee.Round(decimalScale), e.Key,
			refTime, refPrice, refMin, refMax,
			int8(r.Direction), r.PriceEdge, string(r.Status),
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

// GetByRunID retrieves all rows of a run, ordered by event time ASC, event id ASC.
func (s *MergedTradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.MergedTrade, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+mergedColumns+`
		FROM merged_trades
		WHERE run_id = ?
		ORDER BY event_time ASC, event_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanMergedTrades(rows)
}

// eventIDs returns the event ids already stored for a run.
func (s *MergedTradeStore) eventIDs(ctx context.Context, runID string) (map[string]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT event_id FROM merged_trades WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// scanMergedTrades scans multiple rows.
func scanMergedTrades(rows chRows) ([]*domain.MergedTrade, error) {
	var out []*domain.MergedTrade

	for rows.Next() {
		var (
			e                        domain.PositionEvent
			eventType, status        string
			sizeDelta, price         decimal.Decimal
			collDelta, fee           decimal.Decimal
			refTime                  *time.Time
			refPrice, refMin, refMax *float64
			direction                int8
			edge                     *float64
		)

		err := rows.Scan(
			&e.ID, &e.Time, &e.Account, &e.CollateralToken, &e.IndexToken, &e.IsLong, &eventType,
			&sizeDelta, &price, &collDelta, &fee, &e.Key,
			&refTime, &refPrice, &refMin, &refMax,
			&direction, &edge, &status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan merged trade row: %w", err)
		}

		e.Time = e.Time.UTC()
		e.Timestamp = e.Time.Unix()
		e.EventType = domain.EventType(eventType)
		e.SizeDelta, e.Price, e.CollateralDelta, e.Fee = sizeDelta, price, collDelta, fee

		m := &domain.MergedTrade{
			Event:     &e,
			Direction: int(direction),
			PriceEdge: edge,
			Status:    domain.EdgeStatus(status),
		}
		if refTime != nil && refPrice != nil && refMin != nil && refMax != nil {
			m.Reference = &domain.ReferencePricePoint{
				Time:  refTime.UTC(),
				Price: *refPrice,
				Min:   *refMin,
				Max:   *refMax,
			}
		}
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merged trade rows: %w", err)
	}

	return out, nil
}
