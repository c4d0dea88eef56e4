// Package metrics summarizes price edges of merged trades.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/storage"
)

// ErrNoTrades is returned when a run has no merged rows.
var ErrNoTrades = errors.New("no merged trades available for summary")

type groupKey struct {
	eventType domain.EventType
	isLong    bool
}

// groupOrder fixes the output order of Summarize.
var groupOrder = []groupKey{
	{domain.EventIncrease, true},
	{domain.EventIncrease, false},
	{domain.EventDecrease, true},
	{domain.EventDecrease, false},
}

// Summarize groups rows by (event type, side) and computes edge statistics per group.
// Groups come out as increase-long, increase-short, decrease-long, decrease-short;
// empty groups are omitted.
func Summarize(rows []*domain.MergedTrade) []*domain.EdgeSummary {
	groups := make(map[groupKey][]*domain.MergedTrade)
	for _, r := range rows {
		if r == nil || r.Event == nil {
			continue
		}
		k := groupKey{r.Event.EventType, r.Event.IsLong}
		groups[k] = append(groups[k], r)
	}

	var out []*domain.EdgeSummary
	for _, k := range groupOrder {
		if g := groups[k]; len(g) > 0 {
			out = append(out, computeSummary(g, k.eventType, k.isLong))
		}
	}
	return out
}

// Aggregator computes summaries from stored merge runs.
type Aggregator struct {
	store storage.MergedTradeStore
}

// NewAggregator creates a new edge aggregator.
func NewAggregator(store storage.MergedTradeStore) *Aggregator {
	return &Aggregator{store: store}
}

// ComputeForRun loads a run's rows and summarizes them.
// Returns ErrNoTrades if the run has no rows.
func (a *Aggregator) ComputeForRun(ctx context.Context, runID string) ([]*domain.EdgeSummary, error) {
	rows, err := a.store.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoTrades
	}
	return Summarize(rows), nil
}
