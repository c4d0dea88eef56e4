package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gmx-edge-lab/internal/domain"
)

// CleanRecords dates raw records by the collection's time field and sorts them by date.
// Records without a usable time sort last, in input order.
func CleanRecords(coll Collection, raw []json.RawMessage) ([]*domain.GraphRecord, error) {
	out := make([]*domain.GraphRecord, 0, len(raw))
	for i, r := range raw {
		var fields map[string]any
		dec := json.NewDecoder(strings.NewReader(string(r)))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		id, _ := fields["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("record %d: missing id", i)
		}

		rec := &domain.GraphRecord{
			Collection: coll.Name,
			ID:         id,
			Payload:    append(json.RawMessage(nil), r...),
		}
		if ts, ok := epochField(fields[coll.TimeField]); ok {
			rec.Time = time.Unix(ts, 0).UTC()
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Time, out[j].Time
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.Before(b)
	})

	return out, nil
}

func epochField(v any) (int64, bool) {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = x
	default:
		return 0, false
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// DecodeOrders returns typed views of order records.
func DecodeOrders(records []*domain.GraphRecord) ([]*domain.Order, error) {
	out := make([]*domain.Order, 0, len(records))
	for _, r := range records {
		var o domain.Order
		if err := json.Unmarshal(r.Payload, &o); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", r.ID, err)
		}
		o.Date = r.Time
		out = append(out, &o)
	}
	return out, nil
}

// DecodeSwaps returns typed views of swap records.
func DecodeSwaps(records []*domain.GraphRecord) ([]*domain.Swap, error) {
	out := make([]*domain.Swap, 0, len(records))
	for _, r := range records {
		var s domain.Swap
		if err := json.Unmarshal(r.Payload, &s); err != nil {
			return nil, fmt.Errorf("decode swap %s: %w", r.ID, err)
		}
		s.Date = r.Time
		out = append(out, &s)
	}
	return out, nil
}
