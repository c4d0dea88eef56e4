package normalization

import (
	"sort"

	"gmx-edge-lab/internal/domain"
)

// SortBuckets orders buckets by time_start ASC.
// The sort is stable: buckets sharing a start keep their input (shard) order.
func SortBuckets(buckets []*domain.Bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].TimeStart.Before(buckets[j].TimeStart)
	})
}

func sortInt64s(v []int64) {
	sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })
}
