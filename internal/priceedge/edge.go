// Package priceedge joins position events with a reference price series and
// measures how far each execution price sits from the best reference price.
package priceedge

import (
	"errors"
	"math"

	"gmx-edge-lab/internal/domain"
)

// ErrDegenerateEdge is returned when the edge formula is undefined for the inputs.
var ErrDegenerateEdge = errors.New("degenerate price edge")

// Direction returns +1 when the event buys the index token and -1 when it sells.
//
//	long  + increase = +1
//	long  + decrease = -1
//	short + increase = -1
//	short + decrease = +1
func Direction(isLong bool, eventType domain.EventType) int {
	return sign(isLong) * sign(eventType == domain.EventIncrease)
}

func sign(b bool) int {
	if b {
		return 1
	}
	return -1
}

// Edge computes the percentage price edge of a trade against the window extremes.
// Buys are compared to the window max, sells to the window min:
//
//	diff = 100 * (price / ref - 1)
//	edge = -direction * diff / (diff + 100) * 100
//
// The sign is normalized so that a positive edge is adverse for either direction.
// Returns ErrDegenerateEdge when ref <= 0, price <= 0, or any input is not finite.
func Edge(direction int, price, refMin, refMax float64) (float64, error) {
	ref := refMin
	if direction == 1 {
		ref = refMax
	}

	if !finite(price) || !finite(ref) || ref <= 0 || price <= 0 {
		return 0, ErrDegenerateEdge
	}

	diff := 100 * (price/ref - 1)
	edge := -float64(direction) * (diff / (diff + 100)) * 100
	if !finite(edge) {
		return 0, ErrDegenerateEdge
	}
	return edge, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
