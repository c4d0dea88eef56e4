package normalization

import (
	"time"

	"github.com/shopspring/decimal"

	"gmx-edge-lab/internal/domain"
)

// BucketTicks aggregates ticks into fixed-width time buckets.
// Ticks need not be sorted.
//
// Interval alignment: floor(time_ms / width_ms) * width_ms
// Aggregation per interval:
//   - price = SUM(price * quantity) / SUM(quantity), missing if SUM(quantity) = 0
//   - quantity = SUM(quantity)
//   - trade_count = SUM(last_trade_id - first_trade_id)
//
// Only intervals with at least one tick are emitted, ordered by start.
func BucketTicks(ticks []*domain.Tick, width time.Duration, source string) []*domain.Bucket {
	widthMs := width.Milliseconds()
	if len(ticks) == 0 || widthMs <= 0 {
		return nil
	}

	type acc struct {
		notional decimal.Decimal
		quantity decimal.Decimal
		trades   int64
	}

	buckets := make(map[int64]*acc)
	var starts []int64

	for _, t := range ticks {
		start := floorDiv(t.Time.UnixMilli(), widthMs) * widthMs

		a, ok := buckets[start]
		if !ok {
			a = &acc{notional: decimal.Zero, quantity: decimal.Zero}
			buckets[start] = a
			starts = append(starts, start)
		}

		a.notional = a.notional.Add(t.Price.Mul(t.Quantity))
		a.quantity = a.quantity.Add(t.Quantity)
		a.trades += t.LastTradeID - t.FirstTradeID
	}

	sortInt64s(starts)

	result := make([]*domain.Bucket, 0, len(starts))
	for _, start := range starts {
		a := buckets[start]
		b := &domain.Bucket{
			Source:     source,
			TimeStart:  time.UnixMilli(start).UTC(),
			Quantity:   a.quantity,
			TradeCount: a.trades,
		}
		if !a.quantity.IsZero() {
			b.Price = decimal.NewNullDecimal(a.notional.Div(a.quantity))
		}
		result = append(result, b)
	}

	return result
}

// floorDiv rounds toward negative infinity so pre-epoch ticks bucket correctly.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
