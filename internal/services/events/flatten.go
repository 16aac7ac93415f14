package events

import "event-search/internal/services/graph"

// flatten turns the per-batch venue pages into one record per (venue, event)
// pair and tallies the metadata on the way. A venue id repeated in a later page
// is skipped, as is an event id repeated under the same venue.
func flatten(pages [][]graph.Venue) ([]EventRecord, Metadata) {
	var (
		records []EventRecord
		meta    Metadata
	)
	seenVenues := make(map[string]struct{})

	for _, page := range pages {
		for _, venue := range page {
			if _, dup := seenVenues[venue.ID]; dup {
				continue
			}
			seenVenues[venue.ID] = struct{}{}
			meta.Venues++

			if venue.Events == nil || len(venue.Events.Data) == 0 {
				continue
			}
			meta.VenuesWithEvents++

			seenEvents := make(map[string]struct{}, len(venue.Events.Data))
			for _, event := range venue.Events.Data {
				if _, dup := seenEvents[event.ID]; dup {
					continue
				}
				seenEvents[event.ID] = struct{}{}

				records = append(records, newEventRecord(venue, event))
				meta.Events++
			}
		}
	}

	return records, meta
}

func newEventRecord(venue graph.Venue, event graph.Event) EventRecord {
	record := EventRecord{
		VenueID:             venue.ID,
		VenueName:           venue.Name,
		VenueCoverPicture:   graph.CoverURL(venue.Cover),
		VenueProfilePicture: graph.PictureURL(venue.Picture),
		EventID:             event.ID,
		EventName:           event.Name,
		EventCoverPicture:   graph.CoverURL(event.Cover),
		EventProfilePicture: graph.PictureURL(event.Picture),
		EventStats: EventStats{
			AttendingCount: event.AttendingCount,
			DeclinedCount:  event.DeclinedCount,
			MaybeCount:     event.MaybeCount,
			NoreplyCount:   event.NoreplyCount,
		},
	}

	if venue.Location != nil {
		loc := *venue.Location
		if lat, lng, ok := venue.Location.Coordinates(); ok {
			loc.Latitude, loc.Longitude = &lat, &lng
		}
		record.VenueLocation = &loc
	}
	if event.Description != nil {
		desc := *event.Description
		record.EventDescription = &desc
	}
	if event.StartTime != nil {
		start := event.StartTime.Time
		record.EventStartTime = &start
	}

	return record
}
