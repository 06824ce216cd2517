// Package utils holds small helpers shared across the pipeline.
package utils

import (
	"sort"
	"time"
)

// GetSortedKeys returns the time keys of a map in chronological order,
// descending when asc is false.
func GetSortedKeys[T any](m map[time.Time]T, asc bool) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if asc {
			return keys[i].Before(keys[j])
		}
		return keys[i].After(keys[j])
	})
	return keys
}
