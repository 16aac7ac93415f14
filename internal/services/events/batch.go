package events

import "fmt"

// Partition splits ids into consecutive batches of at most size ids. Every
// batch but the last holds exactly size ids. Batches share ids' backing array
// but have their capacity capped, so appending to one never clobbers the next.
func Partition(ids []string, size int) [][]string {
	if size <= 0 {
		panic(fmt.Sprintf("events: batch size must be positive, got %d", size))
	}

	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end:end])
	}
	return batches
}
