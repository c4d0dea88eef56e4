package priceedge

import (
	"errors"
	"math"
	"testing"

	"gmx-edge-lab/internal/domain"
)

func TestDirection(t *testing.T) {
	tests := []struct {
		name      string
		isLong    bool
		eventType domain.EventType
		want      int
	}{
		{"open long", true, domain.EventIncrease, 1},
		{"close long", true, domain.EventDecrease, -1},
		{"open short", false, domain.EventIncrease, -1},
		{"close short", false, domain.EventDecrease, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Direction(tt.isLong, tt.eventType); got != tt.want {
				t.Errorf("Direction(%v, %s) = %d, want %d", tt.isLong, tt.eventType, got, tt.want)
			}
		})
	}
}

func TestEdge(t *testing.T) {
	tests := []struct {
		name      string
		direction int
		price     float64
		min, max  float64
		want      float64
	}{
		{"buy below max", 1, 100, 90, 110, 10},
		{"buy at max", 1, 110, 90, 110, 0},
		{"sell uses min", -1, 100, 80, 120, 20},
		{"sell below min", -1, 90, 100, 120, -100.0 / 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Edge(tt.direction, tt.price, tt.min, tt.max)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Edge = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestEdge_Degenerate(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		min, max float64
	}{
		{"zero reference", 100, 0, 0},
		{"negative reference", 100, -1, -1},
		{"zero price", 0, 100, 100},
		{"nan price", math.NaN(), 100, 100},
		{"inf reference", 100, math.Inf(1), math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Edge(1, tt.price, tt.min, tt.max)
			if !errors.Is(err, ErrDegenerateEdge) {
				t.Errorf("expected ErrDegenerateEdge, got %v", err)
			}
		})
	}
}
