package events

import (
	"math"
	"time"
)

// earthRadiusKm is the mean Earth radius used by HaversineDistance.
const earthRadiusKm = 6371

// HaversineDistance returns the great-circle distance in meters between two
// points given in degrees.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c * 1000
}

// PopularityScore weighs confirmed attendance fully and maybes at half.
// Declines and unanswered invites do not count.
func (r EventRecord) PopularityScore() float64 {
	return float64(r.EventStats.AttendingCount) + float64(r.EventStats.MaybeCount)/2
}

// enrich returns a copy of records with distance and time-from-now filled in.
// now is the single request timestamp shared by every record.
func enrich(records []EventRecord, lat, lng float64, now time.Time) []EventRecord {
	enriched := make([]EventRecord, len(records))
	nowUnix := now.Unix()

	for i, record := range records {
		if venueLat, venueLng, ok := record.VenueLocation.Coordinates(); ok {
			d := HaversineDistance(lat, lng, venueLat, venueLng)
			record.EventDistance = &d
		}
		if record.EventStartTime != nil {
			delta := float64(record.EventStartTime.Unix() - nowUnix)
			record.EventTimeFromNow = &delta
		}
		enriched[i] = record
	}

	return enriched
}
