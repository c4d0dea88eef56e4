package cleaning

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/logging"
	"gmx-edge-lab/internal/observability"
)

// ErrMissingColumn is returned when a trade artifact lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// ErrInvalidTimestamp is returned for a non-finite or out-of-range epoch timestamp.
var ErrInvalidTimestamp = errors.New("invalid epoch timestamp")

// RawTrade is one row of the subgraph Trade artifact, as strings.
type RawTrade struct {
	Row int // 1-based data row number

	ID                 string
	Key                string
	Account            string
	CollateralToken    string
	IndexToken         string
	IsLong             string
	Size               string
	SizeDelta          string
	Collateral         string
	CollateralDelta    string
	AveragePrice       string
	RealisedPnl        string
	Fee                string
	Timestamp          string
	SettledTimestamp   string
	Status             string
	IncreaseList       string
	DecreaseList       string
	UpdateList         string
	ClosedPosition     string
	LiquidatedPosition string
}

var requiredTradeColumns = []string{"account", "collateralToken", "indexToken", "isLong", "timestamp"}

// tradeColumns maps artifact column names to RawTrade fields.
var tradeColumns = map[string]func(*RawTrade) *string{
	"id":                 func(t *RawTrade) *string { return &t.ID },
	"key":                func(t *RawTrade) *string { return &t.Key },
	"account":            func(t *RawTrade) *string { return &t.Account },
	"collateralToken":    func(t *RawTrade) *string { return &t.CollateralToken },
	"indexToken":         func(t *RawTrade) *string { return &t.IndexToken },
	"isLong":             func(t *RawTrade) *string { return &t.IsLong },
	"size":               func(t *RawTrade) *string { return &t.Size },
	"sizeDelta":          func(t *RawTrade) *string { return &t.SizeDelta },
	"collateral":         func(t *RawTrade) *string { return &t.Collateral },
	"collateralDelta":    func(t *RawTrade) *string { return &t.CollateralDelta },
	"averagePrice":       func(t *RawTrade) *string { return &t.AveragePrice },
	"realisedPnl":        func(t *RawTrade) *string { return &t.RealisedPnl },
	"fee":                func(t *RawTrade) *string { return &t.Fee },
	"timestamp":          func(t *RawTrade) *string { return &t.Timestamp },
	"settledTimestamp":   func(t *RawTrade) *string { return &t.SettledTimestamp },
	"status":             func(t *RawTrade) *string { return &t.Status },
	"increaseList":       func(t *RawTrade) *string { return &t.IncreaseList },
	"decreaseList":       func(t *RawTrade) *string { return &t.DecreaseList },
	"updateList":         func(t *RawTrade) *string { return &t.UpdateList },
	"closedPosition":     func(t *RawTrade) *string { return &t.ClosedPosition },
	"liquidatedPosition": func(t *RawTrade) *string { return &t.LiquidatedPosition },
}

// ReadRawTrades parses a header-driven trade artifact.
// Unknown columns (including a pandas index column) are ignored.
func ReadRawTrades(r io.Reader) ([]*RawTrade, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty trade artifact", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read trade header: %w", err)
	}

	present := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		present[h] = true
	}
	for _, col := range requiredTradeColumns {
		if !present[col] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var trades []*RawTrade
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read trade row %d: %w", row, err)
		}

		t := &RawTrade{Row: row}
		for i, h := range header {
			if field, ok := tradeColumns[h]; ok {
				*field(t) = rec[i]
			}
		}
		trades = append(trades, t)
	}

	return trades, nil
}

// Cleaner normalizes raw subgraph records.
type Cleaner struct {
	tokens *TokenRegistry
	scales Scales
	logger *zap.Logger
}

// Option configures Cleaner.
type Option func(*Cleaner)

// WithScales overrides the fixed-point exponents.
func WithScales(s Scales) Option {
	return func(c *Cleaner) {
		c.scales = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cleaner) {
		c.logger = l
	}
}

// NewCleaner creates a cleaner resolving token addresses through tokens.
func NewCleaner(tokens *TokenRegistry, opts ...Option) *Cleaner {
	c := &Cleaner{
		tokens: tokens,
		scales: DefaultScales(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

// CleanTrades normalizes every row. Stops at the first row that fails.
func (c *Cleaner) CleanTrades(raw []*RawTrade) ([]*domain.Trade, error) {
	trades := make([]*domain.Trade, 0, len(raw))
	liquidated := 0
	for _, r := range raw {
		t, err := c.CleanTrade(r)
		if err != nil {
			return nil, fmt.Errorf("trade row %d: %w", r.Row, err)
		}
		if t.PositionLiquidated {
			liquidated++
		}
		trades = append(trades, t)
	}

	c.logger.Info("cleaned trades",
		zap.Int("trades", len(trades)),
		zap.Int("liquidated", liquidated),
	)
	return trades, nil
}

// CleanTrade normalizes one row:
//   - token addresses resolved to symbols (unknown address is fatal)
//   - fixed-point amounts divided by 10^scale
//   - epoch seconds converted to UTC times
//   - nested fields decoded into typed results
func (c *Cleaner) CleanTrade(r *RawTrade) (*domain.Trade, error) {
	collateral, err := c.tokens.Symbol(r.CollateralToken)
	if err != nil {
		return nil, fmt.Errorf("collateralToken: %w", err)
	}
	index, err := c.tokens.Symbol(r.IndexToken)
	if err != nil {
		return nil, fmt.Errorf("indexToken: %w", err)
	}
	isLong, err := parseBool(r.IsLong)
	if err != nil {
		return nil, fmt.Errorf("isLong: %w", err)
	}
	openTS, err := parseEpochSeconds(r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}

	t := &domain.Trade{
		ID:              r.ID,
		Key:             r.Key,
		Account:         r.Account,
		CollateralToken: collateral,
		IndexToken:      index,
		IsLong:          isLong,
		Status:          r.Status,
		OpenTime:        time.Unix(openTS, 0).UTC(),
	}

	if strings.TrimSpace(r.SettledTimestamp) != "" && !isNaN(r.SettledTimestamp) {
		closeTS, err := parseEpochSeconds(r.SettledTimestamp)
		if err != nil {
			return nil, fmt.Errorf("settledTimestamp: %w", err)
		}
		closed := time.Unix(closeTS, 0).UTC()
		t.CloseTime = &closed
	}

	amounts := []struct {
		name string
		raw  string
		exp  int32
		dst  *decimal.Decimal
	}{
		{"size", r.Size, c.scales.Size, &t.Size},
		{"sizeDelta", r.SizeDelta, c.scales.Size, &t.SizeDelta},
		{"collateral", r.Collateral, c.scales.Collateral, &t.Collateral},
		{"collateralDelta", r.CollateralDelta, c.scales.Collateral, &t.CollateralDelta},
		{"averagePrice", r.AveragePrice, c.scales.Price, &t.AveragePrice},
		{"realisedPnl", r.RealisedPnl, c.scales.Pnl, &t.RealisedPnl},
		{"fee", r.Fee, c.scales.Fee, &t.Fee},
	}
	for _, a := range amounts {
		v, err := scaleDown(a.raw, a.exp)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
		*a.dst = v
	}

	t.Increases = c.nested("increaseList", r.IncreaseList)
	t.Decreases = c.nested("decreaseList", r.DecreaseList)
	t.Updates = c.nested("updateList", r.UpdateList)
	t.ClosedPosition = c.nested("closedPosition", r.ClosedPosition)
	t.LiquidatedPosition = c.nested("liquidatedPosition", r.LiquidatedPosition)
	t.Liquidation = liquidationState(t.LiquidatedPosition)
	t.PositionLiquidated = t.Liquidation == domain.LiquidationDetected

	observability.RecordTradeCleaned()
	return t, nil
}

func (c *Cleaner) nested(field, raw string) domain.Nested {
	n := ParseNested(raw)
	if n.Status == domain.NestedMalformed {
		observability.RecordNestedParseFailure(field)
		c.logger.Warn("malformed nested field",
			zap.String("field", field),
			zap.Error(n.Err),
		)
	}
	return n
}

// liquidationState reports a liquidation when the payload is an object carrying an account.
func liquidationState(n domain.Nested) domain.LiquidationState {
	switch n.Status {
	case domain.NestedMalformed:
		return domain.LiquidationMalformed
	case domain.NestedParsed:
		if obj := n.Object(); obj != nil {
			if _, ok := obj["account"]; ok {
				return domain.LiquidationDetected
			}
		}
	}
	return domain.LiquidationNone
}

func parseBool(s string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(s))
}

// parseEpochSeconds accepts integer or float encodings ("1650000000", "1650000000.0").
func parseEpochSeconds(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse epoch seconds %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("parse epoch seconds %q: %w", s, ErrInvalidTimestamp)
	}
	return int64(f), nil
}

func isNaN(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "nan")
}
