// Package reporting writes the CSV and Markdown artifacts of the pipelines.
package reporting

import (
	"time"

	"gmx-edge-lab/internal/domain"
)

// Report represents the price edge report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	IndexToken  string
	Window      int // forward uncertainty window, seconds

	// Data Summary
	DataSummary DataSummary

	// Edge statistics per (event type, side), in metrics.Summarize order
	Summaries []*domain.EdgeSummary

	// Largest adverse edges, descending
	WorstEdges []*domain.MergedTrade
}

// DataSummary contains data description.
type DataSummary struct {
	Trades          int
	Increases       int
	Decreases       int
	DroppedEvents   int
	MergedRows      int // events on the index token within the reference range
	Matched         int
	Unmatched       int
	Degenerate      int
	ReferencePoints int
	ReferenceStart  time.Time
	ReferenceEnd    time.Time
}
