package events

import (
	"sort"
	"strings"
)

// Rank returns a stably sorted copy of records. time and distance sort
// ascending with missing values last, venue sorts by name, and popularity sorts
// most popular first. SortNone keeps the input order.
func Rank(records []EventRecord, key SortKey) []EventRecord {
	ranked := make([]EventRecord, len(records))
	copy(ranked, records)

	var less func(a, b *EventRecord) bool
	switch key {
	case SortTime:
		less = func(a, b *EventRecord) bool {
			return lessMissingLast(a.EventTimeFromNow, b.EventTimeFromNow)
		}
	case SortDistance:
		less = func(a, b *EventRecord) bool {
			return lessMissingLast(a.EventDistance, b.EventDistance)
		}
	case SortVenue:
		less = func(a, b *EventRecord) bool {
			return strings.Compare(a.VenueName, b.VenueName) < 0
		}
	case SortPopularity:
		less = func(a, b *EventRecord) bool {
			return a.PopularityScore() > b.PopularityScore()
		}
	default:
		return ranked
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(&ranked[i], &ranked[j])
	})
	return ranked
}

func lessMissingLast(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}
