package cleaning

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultScale is the decimal exponent of GMX USD amounts (10^30).
const DefaultScale = 30

// Scales holds the decimal exponent applied to each fixed-point field family.
type Scales struct {
	Price      int32 // averagePrice, price
	Size       int32 // size, sizeDelta
	Collateral int32 // collateral, collateralDelta
	Fee        int32 // fee
	Pnl        int32 // realisedPnl
}

// DefaultScales returns 10^30 for every field.
func DefaultScales() Scales {
	return Scales{
		Price:      DefaultScale,
		Size:       DefaultScale,
		Collateral: DefaultScale,
		Fee:        DefaultScale,
		Pnl:        DefaultScale,
	}
}

// scaleDown converts a raw fixed-point integer string into its decimal value.
// An empty string is zero. Exponent notation ("1.5e+33") is accepted.
func scaleDown(raw string, exp int32) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse fixed-point %q: %w", raw, err)
	}
	return d.Shift(-exp), nil
}
