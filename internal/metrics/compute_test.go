package metrics

import (
	"math"
	"testing"
)

func TestComputePercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		p    float64
		want float64
	}{
		{0.0, 1},
		{0.10, 1.4},
		{0.50, 3},
		{0.90, 4.6},
		{1.0, 5},
	}
	for _, tt := range tests {
		if got := computePercentile(sorted, tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("p%.0f: expected %v, got %v", tt.p*100, tt.want, got)
		}
	}

	if got := computePercentile(nil, 0.5); got != 0 {
		t.Errorf("empty: expected 0, got %v", got)
	}
	if got := computePercentile([]float64{7}, 0.9); got != 7 {
		t.Errorf("single: expected 7, got %v", got)
	}
}

func TestComputeStddev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := computeMean(values)
	if mean != 5 {
		t.Fatalf("expected mean 5, got %v", mean)
	}
	// Sample variance = 32 / 7
	want := math.Sqrt(32.0 / 7.0)
	if got := computeStddev(values, mean); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := computeStddev([]float64{3}, 3); got != 0 {
		t.Errorf("single sample: expected 0, got %v", got)
	}
}
