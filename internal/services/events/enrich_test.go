package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-search/internal/services/graph"
)

func locationAt(lat, lng float64) *graph.Location {
	return &graph.Location{Latitude: &lat, Longitude: &lng}
}

func TestHaversineDistance(t *testing.T) {
	// One degree of longitude on the equator.
	assert.InDelta(t, 111194.93, HaversineDistance(0, 0, 0, 1), 0.01)
	assert.InDelta(t, 111194.93, HaversineDistance(0, 1, 0, 0), 0.01)
	assert.Zero(t, HaversineDistance(37.7, -122.4, 37.7, -122.4))

	// San Francisco to Los Angeles, roughly 559 km.
	assert.InDelta(t, 559_000, HaversineDistance(37.7749, -122.4194, 34.0522, -118.2437), 1_000)
}

func TestPopularityScore(t *testing.T) {
	r := EventRecord{EventStats: EventStats{AttendingCount: 10, MaybeCount: 4, DeclinedCount: 100, NoreplyCount: 50}}
	assert.Equal(t, 12.0, r.PopularityScore())

	odd := EventRecord{EventStats: EventStats{AttendingCount: 1, MaybeCount: 1}}
	assert.Equal(t, 1.5, odd.PopularityScore())
}

func TestEnrich(t *testing.T) {
	now := time.Date(2016, 3, 10, 12, 0, 0, 500_000_000, time.UTC)
	future := now.Add(90 * time.Minute)
	past := now.Add(-time.Hour)

	records := []EventRecord{
		{EventID: "e1", VenueLocation: locationAt(0, 1), EventStartTime: &future},
		{EventID: "e2", EventStartTime: &past},
		{EventID: "e3", VenueLocation: locationAt(0, 0)},
	}

	enriched := enrich(records, 0, 0, now)
	require.Len(t, enriched, 3)

	require.NotNil(t, enriched[0].EventDistance)
	assert.InDelta(t, 111194.93, *enriched[0].EventDistance, 0.01)
	require.NotNil(t, enriched[0].EventTimeFromNow)
	assert.Equal(t, 5400.0, *enriched[0].EventTimeFromNow)

	assert.Nil(t, enriched[1].EventDistance, "no location means no distance")
	require.NotNil(t, enriched[1].EventTimeFromNow)
	assert.Equal(t, -3600.0, *enriched[1].EventTimeFromNow)

	require.NotNil(t, enriched[2].EventDistance)
	assert.Zero(t, *enriched[2].EventDistance)
	assert.Nil(t, enriched[2].EventTimeFromNow, "no start time means no time delta")

	for _, r := range records {
		assert.Nil(t, r.EventDistance, "input must not be modified")
		assert.Nil(t, r.EventTimeFromNow, "input must not be modified")
	}
}

func TestEnrich_LocationWithoutCoordinates(t *testing.T) {
	addressOnly := &graph.Location{City: "Paris", Country: "France"}
	lat := 48.85
	halfPoint := &graph.Location{Latitude: &lat}

	records := []EventRecord{
		{EventID: "address", VenueLocation: addressOnly},
		{EventID: "half", VenueLocation: halfPoint},
		{EventID: "near", VenueLocation: locationAt(48.85, 2.35)},
	}

	enriched := enrich(records, 48.85, 2.35, time.Now())

	assert.Nil(t, enriched[0].EventDistance, "an address without coordinates has no distance")
	assert.Nil(t, enriched[1].EventDistance)
	require.NotNil(t, enriched[2].EventDistance)
	assert.Zero(t, *enriched[2].EventDistance)

	ranked := Rank(enriched, SortDistance)
	assert.Equal(t, []string{"near", "address", "half"}, eventIDs(ranked))
}
