package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one aggregated trade record from an exchange trade feed.
// Corresponds to a row of a Binance aggTrades shard.
type Tick struct {
	TradeID      int64           // aggregate trade id
	Price        decimal.Decimal // execution price
	Quantity     decimal.Decimal // base asset quantity
	FirstTradeID int64           // first underlying trade id
	LastTradeID  int64           // last underlying trade id
	Time         time.Time       // trade time (UTC, ms precision)
	BuyerIsMaker bool            // true when the buyer was the maker
}

// Bucket is the aggregate of all ticks in [TimeStart, TimeStart+width).
type Bucket struct {
	Source     string              // shard the ticks were read from
	TimeStart  time.Time           // interval start (UTC)
	Price      decimal.NullDecimal // volume-weighted price, invalid if total quantity is zero
	Quantity   decimal.Decimal     // total quantity
	TradeCount int64               // SUM(last_trade_id - first_trade_id)
}

// PricePoint is one (time, price) observation of a reference series.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// ReferencePricePoint is a point of the 1-second reference series.
// Min and Max are the extremes over the forward uncertainty window.
type ReferencePricePoint struct {
	Time  time.Time
	Price float64
	Min   float64
	Max   float64
}

// DefaultBucketWidth is the tick aggregation interval.
const DefaultBucketWidth = 5 * time.Second

// DefaultTimestampUncertainty is the forward window, in seconds, used for reference extremes.
const DefaultTimestampUncertainty = 120
