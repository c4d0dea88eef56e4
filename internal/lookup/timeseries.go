package lookup

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gmx-edge-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoPriceData   = errors.New("no price data available")
	ErrInvalidWindow = errors.New("window must be at least 1")
)

// ResampleSeconds puts a price series on a gapless 1-second grid.
// Steps:
//  1. Truncate each timestamp to the second; the last value within a second wins
//  2. Emit every second from the first to the last observation
//  3. Fill seconds between observations by linear interpolation
//
// Nothing is extrapolated beyond the first or last observation.
// Input order matters only for ties within a second; it is stable-sorted by time first.
// Returns ErrNoPriceData if points is empty.
func ResampleSeconds(points []domain.PricePoint) ([]domain.PricePoint, error) {
	if len(points) == 0 {
		return nil, ErrNoPriceData
	}

	sorted := make([]domain.PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	// Collapse to one observation per second, last wins
	type obs struct {
		sec   int64
		price float64
	}
	known := make([]obs, 0, len(sorted))
	for _, p := range sorted {
		sec := p.Time.Unix()
		if n := len(known); n > 0 && known[n-1].sec == sec {
			known[n-1].price = p.Price
			continue
		}
		known = append(known, obs{sec: sec, price: p.Price})
	}

	first, last := known[0].sec, known[len(known)-1].sec
	out := make([]domain.PricePoint, 0, last-first+1)
	for k := 0; k < len(known); k++ {
		cur := known[k]
		out = append(out, domain.PricePoint{Time: time.Unix(cur.sec, 0).UTC(), Price: cur.price})
		if k+1 == len(known) {
			break
		}

		next := known[k+1]
		span := float64(next.sec - cur.sec)
		for s := cur.sec + 1; s < next.sec; s++ {
			frac := float64(s-cur.sec) / span
			out = append(out, domain.PricePoint{
				Time:  time.Unix(s, 0).UTC(),
				Price: cur.price + (next.price-cur.price)*frac,
			})
		}
	}

	return out, nil
}

// ForwardExtremes returns, for every index i, the min and max of prices[i:i+window].
// Indexes without a full forward window (i+window > len) get the instantaneous price.
// Runs in O(n) using monotonic deques.
func ForwardExtremes(prices []float64, window int) (mins, maxs []float64, err error) {
	if window < 1 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window)
	}

	mins = slidingExtreme(prices, window, func(a, b float64) bool { return a < b })
	maxs = slidingExtreme(prices, window, func(a, b float64) bool { return a > b })
	return mins, maxs, nil
}

// slidingExtreme keeps a deque of indexes whose values are strictly better than
// everything behind them; the front is the extreme of the current window.
func slidingExtreme(prices []float64, window int, better func(a, b float64) bool) []float64 {
	n := len(prices)
	out := make([]float64, n)
	copy(out, prices)
	if window > n {
		return out
	}

	dq := make([]int, 0, window)
	for j := 0; j < n; j++ {
		for len(dq) > 0 && !better(prices[dq[len(dq)-1]], prices[j]) {
			dq = dq[:len(dq)-1]
		}
		dq = append(dq, j)
		if dq[0] <= j-window {
			dq = dq[1:]
		}
		if i := j - window + 1; i >= 0 {
			out[i] = prices[dq[0]]
		}
	}

	return out
}

// Series is a 1-second reference price series with forward extremes.
type Series struct {
	points []domain.ReferencePricePoint
	first  int64 // unix second of points[0]
}

// BuildReferenceSeries resamples points to 1 s and attaches forward extremes over window seconds.
func BuildReferenceSeries(points []domain.PricePoint, window int) (*Series, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window)
	}

	grid, err := ResampleSeconds(points)
	if err != nil {
		return nil, err
	}

	prices := make([]float64, len(grid))
	for i, p := range grid {
		prices[i] = p.Price
	}
	mins, maxs, err := ForwardExtremes(prices, window)
	if err != nil {
		return nil, err
	}

	ref := make([]domain.ReferencePricePoint, len(grid))
	for i, p := range grid {
		ref[i] = domain.ReferencePricePoint{
			Time:  p.Time,
			Price: p.Price,
			Min:   mins[i],
			Max:   maxs[i],
		}
	}

	return &Series{points: ref, first: grid[0].Time.Unix()}, nil
}

// At returns the reference point at the exact second of t.
// The grid is gapless, so the point is found by offset.
func (s *Series) At(t time.Time) (domain.ReferencePricePoint, bool) {
	idx := t.Unix() - s.first
	if idx < 0 || idx >= int64(len(s.points)) {
		return domain.ReferencePricePoint{}, false
	}
	return s.points[idx], true
}

// Points returns the series points in time order.
func (s *Series) Points() []domain.ReferencePricePoint {
	return s.points
}

// Len returns the number of seconds covered.
func (s *Series) Len() int {
	return len(s.points)
}
