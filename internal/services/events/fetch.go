package events

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"event-search/internal/services/graph"
)

// fetchDetails issues one bulk lookup per batch, all at once, and returns the
// venues of each batch in batch order. The first failing call cancels the rest
// and the whole fetch fails; partial results are dropped.
func (s *Service) fetchDetails(ctx context.Context, batches [][]string, token string, since time.Time) ([][]graph.Venue, error) {
	fields := graph.VenueEventFields(since.Unix())
	pages := make([][]graph.Venue, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	if s.fetchConcurrency > 0 {
		g.SetLimit(s.fetchConcurrency)
	}

	for i, batch := range batches {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.requestTimeout)
			defer cancel()

			venues, err := s.api.VenuesByIDs(callCtx, graph.VenueLookup{
				IDs:         batch,
				Fields:      fields,
				AccessToken: token,
			})
			if err != nil {
				return err
			}

			pages[i] = orderVenues(batch, venues)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &UpstreamError{Stage: StageDetail, Err: err}
	}
	return pages, nil
}

// orderVenues lays a lookup response out in the order the ids were requested.
// Ids Graph returned without being asked for go last, sorted.
func orderVenues(requested []string, venues map[string]graph.Venue) []graph.Venue {
	ordered := make([]graph.Venue, 0, len(venues))
	taken := make(map[string]bool, len(venues))

	for _, id := range requested {
		if venue, ok := venues[id]; ok && !taken[id] {
			ordered = append(ordered, venue)
			taken[id] = true
		}
	}

	if len(ordered) == len(venues) {
		return ordered
	}

	extra := make([]string, 0, len(venues)-len(ordered))
	for id := range venues {
		if !taken[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		ordered = append(ordered, venues[id])
	}
	return ordered
}
