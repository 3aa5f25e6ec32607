package internal

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	first := slices.All([]string{"a", "b"})
	second := slices.All([]string{"c"})

	var keys []int
	var values []string
	for k, v := range IterSeq2Concat(first, second) {
		keys = append(keys, k)
		values = append(values, v)
	}
	assert.Equal([]int{0, 1, 0}, keys)
	assert.Equal([]string{"a", "b", "c"}, values)

	// Early stop.
	count := 0
	for range IterSeq2Concat(first, second) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(2, count)

	assert.Equal(0, len(maps.Collect(IterSeq2Concat[string, int]())))
}

func TestIterSeq2Sorted(t *testing.T) {
	assert := assert.New(t)

	first := maps.All(map[string]int{"b": 2, "c": 3})
	second := maps.All(map[string]int{"a": 1, "b": 4})

	var keys []string
	var values []int
	for k, v := range IterSeq2Sorted(IterSeq2Concat(first, second)) {
		keys = append(keys, k)
		values = append(values, v)
	}
	assert.Equal([]string{"a", "b", "c"}, keys)
	assert.Equal([]int{1, 4, 3}, values)

	for k := range IterSeq2Sorted(first) {
		assert.Equal("b", k)
		break
	}
}
