package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one closed (or still open) position from the GMX subgraph,
// with token addresses resolved to symbols and fixed-point amounts scaled.
type Trade struct {
	ID              string
	Key             string
	Account         string
	CollateralToken string // symbol
	IndexToken      string // symbol
	IsLong          bool
	Status          string

	Size            decimal.Decimal
	SizeDelta       decimal.Decimal
	Collateral      decimal.Decimal
	CollateralDelta decimal.Decimal
	AveragePrice    decimal.Decimal
	RealisedPnl     decimal.Decimal
	Fee             decimal.Decimal

	OpenTime  time.Time
	CloseTime *time.Time // nil while the position is open

	// Nested event lists, decoded from their string encoding.
	Increases          Nested
	Decreases          Nested
	Updates            Nested
	ClosedPosition     Nested
	LiquidatedPosition Nested

	// PositionLiquidated is true when LiquidatedPosition decoded to an
	// object carrying an "account" key.
	PositionLiquidated bool
	Liquidation        LiquidationState
}

// LiquidationState distinguishes a missing liquidation record from a malformed one.
type LiquidationState string

// Liquidation states.
const (
	LiquidationNone      LiquidationState = "NONE"
	LiquidationDetected  LiquidationState = "LIQUIDATED"
	LiquidationMalformed LiquidationState = "MALFORMED"
)
