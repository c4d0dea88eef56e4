package metrics

import (
	"math"
	"sort"

	"gmx-edge-lab/internal/domain"
)

// computeSummary calculates edge statistics for one (event type, side) group.
// Rows must be pre-filtered to the group. Distribution fields cover matched rows only.
func computeSummary(rows []*domain.MergedTrade, eventType domain.EventType, isLong bool) *domain.EdgeSummary {
	s := &domain.EdgeSummary{
		EventType: eventType,
		IsLong:    isLong,
		Total:     len(rows),
	}
	if len(rows) > 0 {
		s.Direction = rows[0].Direction
	}

	var edges []float64
	adverse := 0
	for _, r := range rows {
		switch r.Status {
		case domain.EdgeMatched:
			if r.PriceEdge == nil {
				continue
			}
			edges = append(edges, *r.PriceEdge)
			if *r.PriceEdge > 0 {
				adverse++
			}
		case domain.EdgeDegenerate:
			s.Degenerate++
		default:
			s.Unmatched++
		}
	}

	n := len(edges)
	s.Matched = n
	if n == 0 {
		return s
	}

	sorted := make([]float64, n)
	copy(sorted, edges)
	sort.Float64s(sorted)

	mean := computeMean(edges)
	s.EdgeMean = mean
	s.EdgeMedian = computePercentile(sorted, 0.50)
	s.EdgeP10 = computePercentile(sorted, 0.10)
	s.EdgeP90 = computePercentile(sorted, 0.90)
	s.EdgeMin = sorted[0]
	s.EdgeMax = sorted[n-1]
	s.EdgeStddev = computeStddev(edges, mean)
	s.AdverseShare = float64(adverse) / float64(n)

	return s
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
