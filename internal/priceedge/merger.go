package priceedge

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/logging"
	"gmx-edge-lab/internal/lookup"
	"gmx-edge-lab/internal/observability"
)

// DefaultIndexToken is the index token kept by the merger.
const DefaultIndexToken = "WETH"

// Merger joins position events with a reference price series.
type Merger struct {
	indexToken string
	window     int
	logger     *zap.Logger
}

// Option configures Merger.
type Option func(*Merger)

// WithIndexToken sets the index token symbol events are filtered to.
func WithIndexToken(symbol string) Option {
	return func(m *Merger) {
		m.indexToken = symbol
	}
}

// WithWindow sets the forward uncertainty window in seconds.
func WithWindow(seconds int) Option {
	return func(m *Merger) {
		m.window = seconds
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Merger) {
		m.logger = l
	}
}

// NewMerger creates a merger with WETH and a 120 s window by default.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{
		indexToken: DefaultIndexToken,
		window:     domain.DefaultTimestampUncertainty,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNop(m.logger)
	return m
}

// IndexToken returns the symbol events are filtered to.
func (m *Merger) IndexToken() string {
	return m.indexToken
}

// Window returns the forward uncertainty window in seconds.
func (m *Merger) Window() int {
	return m.window
}

// Merge joins events with the raw reference series.
// Steps:
//  1. Keep events on the index token within [first, last] reference time (inclusive)
//  2. Resample the reference to 1 s and attach forward extremes
//  3. Left join on the exact event second
//  4. Compute direction and price edge per row
//
// Events without a reference point are kept with status UNMATCHED and no edge.
// Events where the edge is undefined are kept with status DEGENERATE and no edge.
// Output preserves the input event order.
func (m *Merger) Merge(events []*domain.PositionEvent, reference []domain.PricePoint) ([]*domain.MergedTrade, error) {
	if len(reference) == 0 {
		return nil, lookup.ErrNoPriceData
	}

	series, err := lookup.BuildReferenceSeries(reference, m.window)
	if err != nil {
		return nil, fmt.Errorf("build reference series: %w", err)
	}
	start, end := referenceBounds(reference)

	var (
		out    []*domain.MergedTrade
		counts = make(map[domain.EdgeStatus]int)
	)
	for _, e := range events {
		if e.IndexToken != m.indexToken || e.Time.Before(start) || e.Time.After(end) {
			continue
		}

		row := &domain.MergedTrade{
			Event:     e,
			Direction: Direction(e.IsLong, e.EventType),
			Status:    domain.EdgeUnmatched,
		}

		if ref, ok := series.At(e.Time); ok {
			refCopy := ref
			row.Reference = &refCopy

			price, _ := e.Price.Float64()
			edge, err := Edge(row.Direction, price, ref.Min, ref.Max)
			switch {
			case errors.Is(err, ErrDegenerateEdge):
				row.Status = domain.EdgeDegenerate
				m.logger.Debug("degenerate edge",
					zap.String("id", e.ID),
					zap.Float64("price", price),
					zap.Float64("min", ref.Min),
					zap.Float64("max", ref.Max),
				)
			case err != nil:
				return nil, err
			default:
				row.PriceEdge = &edge
				row.Status = domain.EdgeMatched
			}
		}

		counts[row.Status]++
		observability.RecordEdge(string(row.Status))
		out = append(out, row)
	}

	m.logger.Info("merged events with reference",
		zap.String("index_token", m.indexToken),
		zap.Int("window", m.window),
		zap.Int("events_in", len(events)),
		zap.Int("rows", len(out)),
		zap.Int("matched", counts[domain.EdgeMatched]),
		zap.Int("unmatched", counts[domain.EdgeUnmatched]),
		zap.Int("degenerate", counts[domain.EdgeDegenerate]),
	)

	return out, nil
}

func referenceBounds(points []domain.PricePoint) (time.Time, time.Time) {
	start, end := points[0].Time, points[0].Time
	for _, p := range points[1:] {
		if p.Time.Before(start) {
			start = p.Time
		}
		if p.Time.After(end) {
			end = p.Time
		}
	}
	return start, end
}
