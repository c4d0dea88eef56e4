package reporting

import (
	"sort"
	"time"

	"gmx-edge-lab/internal/cleaning"
	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/metrics"
)

// DefaultWorstEdges is the number of rows listed in the worst-edge table.
const DefaultWorstEdges = 10

// Input is everything a report is built from.
type Input struct {
	RunID      string
	IndexToken string
	Window     int
	Trades     int
	Flatten    cleaning.FlattenStats
	Reference  []domain.PricePoint
	Merged     []*domain.MergedTrade
}

// Generator produces reports from pipeline results.
type Generator struct {
	worst int
	now   func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		worst: DefaultWorstEdges,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithWorstEdges sets how many adverse rows are listed. Zero disables the table.
func (g *Generator) WithWorstEdges(n int) *Generator {
	g.worst = n
	return g
}

// Generate produces a complete report.
func (g *Generator) Generate(in Input) *Report {
	summary := DataSummary{
		Trades:          in.Trades,
		Increases:       in.Flatten.Increases,
		Decreases:       in.Flatten.Decreases,
		DroppedEvents:   in.Flatten.Dropped,
		MergedRows:      len(in.Merged),
		ReferencePoints: len(in.Reference),
	}

	for _, p := range in.Reference {
		if summary.ReferenceStart.IsZero() || p.Time.Before(summary.ReferenceStart) {
			summary.ReferenceStart = p.Time
		}
		if p.Time.After(summary.ReferenceEnd) {
			summary.ReferenceEnd = p.Time
		}
	}

	for _, m := range in.Merged {
		switch m.Status {
		case domain.EdgeMatched:
			summary.Matched++
		case domain.EdgeDegenerate:
			summary.Degenerate++
		default:
			summary.Unmatched++
		}
	}

	return &Report{
		GeneratedAt: g.now(),
		RunID:       in.RunID,
		IndexToken:  in.IndexToken,
		Window:      in.Window,
		DataSummary: summary,
		Summaries:   metrics.Summarize(in.Merged),
		WorstEdges:  worstEdges(in.Merged, g.worst),
	}
}

// worstEdges returns up to n matched rows with a positive edge, largest first.
// Ties break by event id.
func worstEdges(rows []*domain.MergedTrade, n int) []*domain.MergedTrade {
	if n <= 0 {
		return nil
	}

	var adverse []*domain.MergedTrade
	for _, r := range rows {
		if r.Status == domain.EdgeMatched && r.PriceEdge != nil && *r.PriceEdge > 0 {
			adverse = append(adverse, r)
		}
	}

	sort.SliceStable(adverse, func(i, j int) bool {
		ei, ej := *adverse[i].PriceEdge, *adverse[j].PriceEdge
		if ei != ej {
			return ei > ej
		}
		return adverse[i].Event.ID < adverse[j].Event.ID
	})

	if len(adverse) > n {
		adverse = adverse[:n]
	}
	return adverse
}
