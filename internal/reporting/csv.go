package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/lookup"
)

// Artifact file names.
const (
	BucketsFile        = "buckets.csv"
	PositionEventsFile = "position_events.csv"
	MergedTradesFile   = "merged_trades.csv"
	EdgeSummaryFile    = "edge_summary.csv"
	EdgeReportFile     = "EDGE_REPORT.md"
	OrdersFile         = "orders.csv"
	SwapsFile          = "swaps.csv"
)

// BucketColumns is the header of the bucket artifact.
var BucketColumns = []string{"time", "price", "quantity", "n_trades"}

// PositionEventColumns is the header of the position event artifact.
var PositionEventColumns = []string{
	"time", "account", "collateral_token", "index_token", "is_long", "position_type",
	"size_delta", "price", "collateral_delta", "fee", "id", "key", "timestamp",
}

// MergedTradeColumns is the header of the merged trade artifact.
var MergedTradeColumns = []string{
	"time", "account", "collateral_token", "index_token", "is_long", "position_type",
	"size_delta", "price", "collateral_delta", "fee", "id",
	"reference_price", "min_reference_price", "max_reference_price",
	"trade_direction", "price_edge", "edge_status",
}

// OrderColumns is the header of the orders artifact.
var OrderColumns = []string{
	"id", "type", "account", "status", "index", "size",
	"createdTimestamp", "cancelledTimestamp", "executedTimestamp", "date",
}

// SwapColumns is the header of the swaps artifact.
var SwapColumns = []string{
	"id", "account", "tokenIn", "tokenOut", "amountIn", "amountOut", "amountOutAfterFees",
	"feeBasisPoints", "tokenInPrice", "timestamp", "date",
}

// WriteBuckets writes buckets as time,price,quantity,n_trades.
// A bucket without a price is written with an empty price cell.
func WriteBuckets(w io.Writer, buckets []*domain.Bucket) error {
	return writeCSV(w, BucketColumns, len(buckets), func(i int) []string {
		b := buckets[i]
		price := ""
		if b.Price.Valid {
			price = b.Price.Decimal.String()
		}
		return []string{
			b.TimeStart.UTC().Format(lookup.BucketTimeLayout),
			price,
			b.Quantity.String(),
			strconv.FormatInt(b.TradeCount, 10),
		}
	})
}

// WritePositionEvents writes flattened position events.
func WritePositionEvents(w io.Writer, events []*domain.PositionEvent) error {
	return writeCSV(w, PositionEventColumns, len(events), func(i int) []string {
		e := events[i]
		return append(eventCells(e), e.Key, strconv.FormatInt(e.Timestamp, 10))
	})
}

// WriteMergedTrades writes merged rows. Reference and edge cells are empty when absent.
func WriteMergedTrades(w io.Writer, rows []*domain.MergedTrade) error {
	return writeCSV(w, MergedTradeColumns, len(rows), func(i int) []string {
		m := rows[i]
		var refPrice, refMin, refMax string
		if m.Reference != nil {
			refPrice = formatFloat(m.Reference.Price)
			refMin = formatFloat(m.Reference.Min)
			refMax = formatFloat(m.Reference.Max)
		}
		edge := ""
		if m.PriceEdge != nil {
			edge = formatFloat(*m.PriceEdge)
		}
		return append(eventCells(m.Event),
			refPrice, refMin, refMax,
			strconv.Itoa(m.Direction),
			edge,
			edgeStatusLabel(m.Status),
		)
	})
}

// WriteOrders writes typed order records.
func WriteOrders(w io.Writer, orders []*domain.Order) error {
	return writeCSV(w, OrderColumns, len(orders), func(i int) []string {
		o := orders[i]
		return []string{
			o.ID, o.Type, o.Account, o.Status, o.Index.String(), o.Size.String(),
			o.CreatedTimestamp.String(), o.CancelledTimestamp.String(), o.ExecutedTimestamp.String(),
			formatDate(o.Date),
		}
	})
}

// WriteSwaps writes typed swap records.
func WriteSwaps(w io.Writer, swaps []*domain.Swap) error {
	return writeCSV(w, SwapColumns, len(swaps), func(i int) []string {
		s := swaps[i]
		return []string{
			s.ID, s.Account, s.TokenIn, s.TokenOut,
			s.AmountIn.String(), s.AmountOut.String(), s.AmountOutAfterFees.String(),
			s.FeeBasisPoints.String(), s.TokenInPrice.String(), s.Timestamp.String(),
			formatDate(s.Date),
		}
	})
}

// RenderSummaryCSV renders edge summaries as CSV string.
func RenderSummaryCSV(summaries []*domain.EdgeSummary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("position_type,is_long,trade_direction,total,matched,unmatched,degenerate,")
	sb.WriteString("edge_mean,edge_median,edge_p10,edge_p90,edge_min,edge_max,edge_stddev,adverse_share\n")

	// Rows
	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("%s,%t,%d,%d,%d,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			s.EventType,
			s.IsLong,
			s.Direction,
			s.Total,
			s.Matched,
			s.Unmatched,
			s.Degenerate,
			s.EdgeMean,
			s.EdgeMedian,
			s.EdgeP10,
			s.EdgeP90,
			s.EdgeMin,
			s.EdgeMax,
			s.EdgeStddev,
			s.AdverseShare,
		))
	}

	return sb.String()
}

// WriteFile creates path (and its directory) and passes it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeCSV(w io.Writer, header []string, n int, row func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func eventCells(e *domain.PositionEvent) []string {
	return []string{
		e.Time.UTC().Format(lookup.BucketTimeLayout),
		e.Account,
		e.CollateralToken,
		e.IndexToken,
		strconv.FormatBool(e.IsLong),
		string(e.EventType),
		formatDecimal(e.SizeDelta),
		formatDecimal(e.Price),
		formatDecimal(e.CollateralDelta),
		formatDecimal(e.Fee),
		e.ID,
	}
}

func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(lookup.BucketTimeLayout)
}

// edgeStatusLabel is the lowercase edge status written to artifacts.
func edgeStatusLabel(s domain.EdgeStatus) string {
	return strings.ToLower(string(s))
}
