package lookup

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gmx-edge-lab/internal/domain"
)

func TestReadReferencePrices(t *testing.T) {
	data := "time,price,quantity,n_trades\n" +
		"2022-01-01 00:00:05,101.5,2,3\n" +
		"2022-01-01 00:00:00,100,1,1\n" +
		"2022-01-01 00:00:10,,0,0\n" +
		"2022-01-01T00:00:15Z,103,1,1\n"

	points, err := ReadReferencePrices(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}

	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	if !points[0].Time.Equal(base) || points[0].Price != 100 {
		t.Errorf("unexpected first point: %+v", points[0])
	}
	if !points[2].Time.Equal(base.Add(15*time.Second)) {
		t.Errorf("unexpected last time: %v", points[2].Time)
	}
}

func TestReadReferencePrices_Errors(t *testing.T) {
	if _, err := ReadReferencePrices(strings.NewReader("")); !errors.Is(err, ErrNoPriceData) {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
	if _, err := ReadReferencePrices(strings.NewReader("a,b\n1,2\n")); err == nil {
		t.Error("expected error for missing columns")
	}
	if _, err := ReadReferencePrices(strings.NewReader("time,price\nyesterday,1\n")); err == nil {
		t.Error("expected error for bad time")
	}
}

func TestBucketsToPoints(t *testing.T) {
	buckets := []*domain.Bucket{
		{TimeStart: time.Unix(0, 0).UTC(), Price: decimal.NewNullDecimal(decimal.NewFromFloat(1.5))},
		{TimeStart: time.Unix(5, 0).UTC()},
	}

	points := BucketsToPoints(buckets)
	if len(points) != 1 || points[0].Price != 1.5 {
		t.Errorf("unexpected points: %+v", points)
	}
}
