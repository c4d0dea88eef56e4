package cleaning

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/observability"
)

// FlattenStats counts the outcome of FlattenEvents.
type FlattenStats struct {
	Increases int // increase events kept
	Decreases int // decrease events kept
	Dropped   int // elements missing a required field
}

// requiredEventFields must be present and non-null on every nested element.
var requiredEventFields = []string{
	"timestamp", "account", "collateralToken", "indexToken", "isLong",
	"sizeDelta", "price", "collateralDelta", "fee", "id",
}

// FlattenEvents expands each trade's increase and decrease lists into one event per element.
// All increases (trade order, list order) precede all decreases before the final
// stable sort by event time. Elements missing a required field are dropped and counted.
// An unknown token address is fatal.
func (c *Cleaner) FlattenEvents(trades []*domain.Trade) ([]*domain.PositionEvent, FlattenStats, error) {
	var (
		events []*domain.PositionEvent
		stats  FlattenStats
	)

	passes := []struct {
		eventType domain.EventType
		list      func(*domain.Trade) domain.Nested
		kept      *int
	}{
		{domain.EventIncrease, func(t *domain.Trade) domain.Nested { return t.Increases }, &stats.Increases},
		{domain.EventDecrease, func(t *domain.Trade) domain.Nested { return t.Decreases }, &stats.Decreases},
	}

	for _, pass := range passes {
		for _, t := range trades {
			for _, elem := range pass.list(t).List() {
				e, ok, err := c.eventFromElement(elem, pass.eventType)
				if err != nil {
					return nil, stats, fmt.Errorf("trade %s: %w", t.ID, err)
				}
				if !ok {
					stats.Dropped++
					continue
				}
				events = append(events, e)
				*pass.kept++
			}
		}
		observability.RecordEventsFlattened(string(pass.eventType), *pass.kept)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})

	observability.RecordEventsDropped(stats.Dropped)
	c.logger.Info("flattened position events",
		zap.Int("increases", stats.Increases),
		zap.Int("decreases", stats.Decreases),
		zap.Int("dropped", stats.Dropped),
	)

	return events, stats, nil
}

// eventFromElement builds one event. ok=false means the element lacks or has an
// unparsable required field.
func (c *Cleaner) eventFromElement(m map[string]any, eventType domain.EventType) (*domain.PositionEvent, bool, error) {
	fields := make(map[string]string, len(requiredEventFields))
	for _, f := range requiredEventFields {
		v, ok := fieldString(m, f)
		if !ok || isNaN(v) {
			return nil, false, nil
		}
		fields[f] = v
	}

	collateral, err := c.tokens.Symbol(fields["collateralToken"])
	if err != nil {
		return nil, false, fmt.Errorf("collateralToken: %w", err)
	}
	index, err := c.tokens.Symbol(fields["indexToken"])
	if err != nil {
		return nil, false, fmt.Errorf("indexToken: %w", err)
	}

	ts, err := parseEpochSeconds(fields["timestamp"])
	if err != nil {
		c.logger.Debug("drop event: timestamp", zap.String("id", fields["id"]), zap.Error(err))
		return nil, false, nil
	}
	isLong, err := parseBool(fields["isLong"])
	if err != nil {
		c.logger.Debug("drop event: isLong", zap.String("id", fields["id"]), zap.Error(err))
		return nil, false, nil
	}

	e := &domain.PositionEvent{
		ID:              fields["id"],
		Time:            time.Unix(ts, 0).UTC(),
		Timestamp:       ts,
		Account:         fields["account"],
		CollateralToken: collateral,
		IndexToken:      index,
		IsLong:          isLong,
		EventType:       eventType,
	}
	e.Key, _ = fieldString(m, "key")

	amounts := []struct {
		name string
		exp  int32
		dst  *decimal.Decimal
	}{
		{"sizeDelta", c.scales.Size, &e.SizeDelta},
		{"price", c.scales.Price, &e.Price},
		{"collateralDelta", c.scales.Collateral, &e.CollateralDelta},
		{"fee", c.scales.Fee, &e.Fee},
	}
	for _, a := range amounts {
		v, err := scaleDown(fields[a.name], a.exp)
		if err != nil {
			c.logger.Debug("drop event: amount", zap.String("id", e.ID), zap.String("field", a.name), zap.Error(err))
			return nil, false, nil
		}
		*a.dst = v
	}

	return e, true, nil
}
