package events

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("v%d", i)
	}
	return ids
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		size      int
		wantSizes []int
	}{
		{"empty", 0, 50, []int{}},
		{"single short batch", 3, 50, []int{3}},
		{"exactly one batch", 50, 50, []int{50}},
		{"one over", 51, 50, []int{50, 1}},
		{"several", 120, 50, []int{50, 50, 20}},
		{"size one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Partition(makeIDs(tt.n), tt.size)

			sizes := make([]int, len(batches))
			for i, b := range batches {
				sizes[i] = len(b)
			}
			assert.Equal(t, tt.wantSizes, sizes)
		})
	}
}

func TestPartition_BatchesDoNotAlias(t *testing.T) {
	ids := makeIDs(4)
	batches := Partition(ids, 2)
	require.Len(t, batches, 2)

	batches[0] = append(batches[0], "intruder")

	assert.Equal(t, []string{"v2", "v3"}, batches[1])
	assert.Equal(t, makeIDs(4), ids)
}

func TestPartition_PanicsOnNonPositiveSize(t *testing.T) {
	assert.Panics(t, func() { Partition(makeIDs(3), 0) })
	assert.Panics(t, func() { Partition(makeIDs(3), -1) })
}

func TestPartition_PropertyCompleteness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("batches reassemble the input in order", prop.ForAll(
		func(n int, size int) bool {
			ids := makeIDs(n)
			batches := Partition(ids, size)

			if len(batches) != (n+size-1)/size {
				return false
			}

			var joined []string
			for i, b := range batches {
				if len(b) == 0 || len(b) > size {
					return false
				}
				if i < len(batches)-1 && len(b) != size {
					return false
				}
				joined = append(joined, b...)
			}

			if len(joined) != n {
				return false
			}
			for i := range joined {
				if joined[i] != ids[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 500),
		gen.IntRange(1, 60),
	))

	properties.TestingRun(t)
}
