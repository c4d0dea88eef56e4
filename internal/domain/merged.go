package domain

// EdgeStatus describes how a merged row's price edge was resolved.
type EdgeStatus string

// Edge statuses.
const (
	EdgeMatched    EdgeStatus = "MATCHED"    // reference found, edge computed
	EdgeUnmatched  EdgeStatus = "UNMATCHED"  // no reference point at the event second
	EdgeDegenerate EdgeStatus = "DEGENERATE" // reference found, formula undefined
)

// MergedTrade is a PositionEvent joined with the reference series.
type MergedTrade struct {
	Event     *PositionEvent
	Reference *ReferencePricePoint // nil when unmatched
	Direction int                  // +1 or -1
	PriceEdge *float64             // percentage, positive = adverse; nil unless matched
	Status    EdgeStatus
}

// EdgeSummary aggregates price edges for one (event type, side) group.
type EdgeSummary struct {
	EventType EventType
	IsLong    bool
	Direction int

	Total      int // rows in group
	Matched    int // rows with an edge
	Unmatched  int
	Degenerate int

	EdgeMean   float64
	EdgeMedian float64
	EdgeP10    float64
	EdgeP90    float64
	EdgeMin    float64
	EdgeMax    float64
	EdgeStddev float64

	AdverseShare float64 // share of matched rows with edge > 0
}
