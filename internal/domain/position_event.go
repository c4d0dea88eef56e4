package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType is the kind of position event.
type EventType string

// Position event types, named after the subgraph entity typenames.
const (
	EventIncrease EventType = "IncreasePosition"
	EventDecrease EventType = "DecreasePosition"
)

// PositionEvent is a single increase or decrease against a position,
// flattened out of a Trade's nested event lists.
type PositionEvent struct {
	ID              string
	Key             string
	Time            time.Time // UTC, second resolution
	Timestamp       int64     // raw epoch seconds
	Account         string
	CollateralToken string // symbol
	IndexToken      string // symbol
	IsLong          bool
	EventType       EventType
	SizeDelta       decimal.Decimal
	Price           decimal.Decimal
	CollateralDelta decimal.Decimal
	Fee             decimal.Decimal
}
