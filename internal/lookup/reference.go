package lookup

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"gmx-edge-lab/internal/domain"
)

// BucketTimeLayout is the time format of the bucket artifact.
const BucketTimeLayout = "2006-01-02 15:04:05"

// ReadReferencePrices loads (time, price) pairs from a bucket artifact.
// The header must name "time" and "price" columns; other columns are ignored.
// Rows with an empty price (no volume in the bucket) are skipped.
func ReadReferencePrices(r io.Reader) ([]domain.PricePoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoPriceData
	}
	if err != nil {
		return nil, fmt.Errorf("read reference header: %w", err)
	}

	timeCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "time":
			timeCol = i
		case "price":
			priceCol = i
		}
	}
	if timeCol < 0 || priceCol < 0 {
		return nil, fmt.Errorf("reference header must contain time and price, got %v", header)
	}

	var points []domain.PricePoint
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reference row: %w", err)
		}
		if timeCol >= len(rec) || priceCol >= len(rec) {
			return nil, fmt.Errorf("line %d: short row", line)
		}

		rawPrice := strings.TrimSpace(rec[priceCol])
		if rawPrice == "" || strings.EqualFold(rawPrice, "nan") {
			continue
		}
		price, err := strconv.ParseFloat(rawPrice, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: price: %w", line, err)
		}
		ts, err := parseReferenceTime(strings.TrimSpace(rec[timeCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: time: %w", line, err)
		}

		points = append(points, domain.PricePoint{Time: ts, Price: price})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points, nil
}

// BucketsToPoints converts buckets to reference points, skipping buckets without a price.
func BucketsToPoints(buckets []*domain.Bucket) []domain.PricePoint {
	points := make([]domain.PricePoint, 0, len(buckets))
	for _, b := range buckets {
		if !b.Price.Valid {
			continue
		}
		price, _ := b.Price.Decimal.Float64()
		points = append(points, domain.PricePoint{Time: b.TimeStart, Price: price})
	}
	return points
}

func parseReferenceTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(BucketTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
