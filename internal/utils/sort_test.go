package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSortedKeys(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m := map[time.Time][]int{mar: {1}, jan: {2}, feb: {3}}

	asc := GetSortedKeys(m, true)
	assert.Equal(t, []time.Time{jan, feb, mar}, asc)

	desc := GetSortedKeys(m, false)
	assert.Equal(t, []time.Time{mar, feb, jan}, desc)
}

func TestGetSortedKeysEmpty(t *testing.T) {
	assert.Empty(t, GetSortedKeys(map[time.Time]struct{}{}, true))
}
