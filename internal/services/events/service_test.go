package events

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-search/internal/services/graph"
)

var fixedNow = time.Date(2016, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu sync.Mutex

	places    []string
	searchErr error
	lookup    func(ctx context.Context, req graph.VenueLookup) (map[string]graph.Venue, error)

	searches []graph.PlaceSearch
	lookups  []graph.VenueLookup
}

func (f *fakeAPI) SearchPlaces(ctx context.Context, req graph.PlaceSearch) ([]string, error) {
	f.mu.Lock()
	f.searches = append(f.searches, req)
	f.mu.Unlock()

	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.places, nil
}

func (f *fakeAPI) VenuesByIDs(ctx context.Context, req graph.VenueLookup) (map[string]graph.Venue, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, req)
	f.mu.Unlock()

	if f.lookup != nil {
		return f.lookup(ctx, req)
	}
	venues := make(map[string]graph.Venue, len(req.IDs))
	for _, id := range req.IDs {
		venues[id] = graph.Venue{ID: id}
	}
	return venues, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches) + len(f.lookups)
}

func newTestService(api graph.API, batchSize int) *Service {
	svc := NewEventService(api, Options{BatchSize: batchSize, RequestTimeout: time.Second})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func validQuery() SearchQuery {
	return SearchQuery{Lat: 37.7, Lng: -122.4, Distance: 1000, AccessToken: "token"}
}

func TestSearchEvents_EndToEnd(t *testing.T) {
	late := fixedNow.Add(2 * time.Hour)
	early := fixedNow.Add(time.Hour)

	api := &fakeAPI{
		places: []string{"v1", "v2"},
		lookup: func(ctx context.Context, req graph.VenueLookup) (map[string]graph.Venue, error) {
			return map[string]graph.Venue{
				"v1": {
					ID:       "v1",
					Name:     "Great American Music Hall",
					Location: locationAt(37.7, -122.4),
					Events: &graph.EventPage{Data: []graph.Event{
						{ID: "e1", Name: "Late Show", StartTime: &graph.Time{Time: late}, AttendingCount: 3},
					}},
				},
				"v2": {
					ID:       "v2",
					Name:     "Bottom of the Hill",
					Location: locationAt(37.705, -122.4),
					Events: &graph.EventPage{Data: []graph.Event{
						{ID: "e2", Name: "Early Show", StartTime: &graph.Time{Time: early}, AttendingCount: 7},
					}},
				},
			}, nil
		},
	}
	svc := newTestService(api, 50)

	q := validQuery()
	q.Query = "music"
	q.Sort = SortTime

	result, err := svc.SearchEvents(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, Metadata{Venues: 2, VenuesWithEvents: 2, Events: 2}, result.Metadata)
	require.Len(t, result.Events, 2)
	assert.Equal(t, "e2", result.Events[0].EventID)
	assert.Equal(t, "e1", result.Events[1].EventID)

	require.NotNil(t, result.Events[0].EventTimeFromNow)
	assert.Equal(t, 3600.0, *result.Events[0].EventTimeFromNow)
	require.NotNil(t, result.Events[1].EventDistance)
	assert.Zero(t, *result.Events[1].EventDistance)
	require.NotNil(t, result.Events[0].EventDistance)
	assert.InDelta(t, 556, *result.Events[0].EventDistance, 1)

	require.Len(t, api.searches, 1)
	assert.Equal(t, graph.PlaceSearch{
		Lat: 37.7, Lng: -122.4, Distance: 1000, Query: "music", Limit: 1000, AccessToken: "token",
	}, api.searches[0])

	require.Len(t, api.lookups, 1)
	assert.Equal(t, []string{"v1", "v2"}, api.lookups[0].IDs)
	assert.Equal(t, "token", api.lookups[0].AccessToken)
	assert.True(t, strings.HasSuffix(api.lookups[0].Fields, ".since("+strconv.FormatInt(fixedNow.Unix(), 10)+")"))
}

func TestSearchEvents_BatchesDiscoveredIDs(t *testing.T) {
	api := &fakeAPI{places: makeIDs(5)}
	svc := newTestService(api, 2)

	result, err := svc.SearchEvents(context.Background(), validQuery())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Metadata.Venues)
	assert.Zero(t, result.Metadata.Events)
	assert.NotNil(t, result.Events)
	assert.Empty(t, result.Events)

	require.Len(t, api.lookups, 3)
	var sizes []int
	for _, l := range api.lookups {
		sizes = append(sizes, len(l.IDs))
	}
	assert.ElementsMatch(t, []int{2, 2, 1}, sizes)
}

func TestSearchEvents_DetailFailureDiscardsEverything(t *testing.T) {
	boom := errors.New("graph exploded")

	var (
		mu        sync.Mutex
		cancelled bool
	)

	api := &fakeAPI{
		places: makeIDs(5),
		lookup: func(ctx context.Context, req graph.VenueLookup) (map[string]graph.Venue, error) {
			switch req.IDs[0] {
			case "v2":
				return nil, boom
			case "v4":
				<-ctx.Done()
				mu.Lock()
				cancelled = errors.Is(ctx.Err(), context.Canceled)
				mu.Unlock()
				return nil, ctx.Err()
			default:
				venues := make(map[string]graph.Venue, len(req.IDs))
				for _, id := range req.IDs {
					venues[id] = graph.Venue{ID: id, Events: &graph.EventPage{Data: []graph.Event{{ID: "e-" + id}}}}
				}
				return venues, nil
			}
		},
	}
	svc := newTestService(api, 2)

	result, err := svc.SearchEvents(context.Background(), validQuery())

	assert.Nil(t, result)
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, StageDetail, upstream.Stage)
	assert.ErrorIs(t, err, boom)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, cancelled, "sibling lookups should see the search cancelled")
}

func TestSearchEvents_DiscoveryFailure(t *testing.T) {
	api := &fakeAPI{searchErr: errors.New("search unavailable")}
	svc := newTestService(api, 50)

	result, err := svc.SearchEvents(context.Background(), validQuery())

	assert.Nil(t, result)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, StageDiscovery, upstream.Stage)
	assert.Empty(t, api.lookups)
}

func TestSearchEvents_NoPlaces(t *testing.T) {
	api := &fakeAPI{places: []string{}}
	svc := newTestService(api, 50)

	result, err := svc.SearchEvents(context.Background(), validQuery())
	require.NoError(t, err)

	assert.NotNil(t, result.Events)
	assert.Empty(t, result.Events)
	assert.Equal(t, Metadata{}, result.Metadata)
	assert.Empty(t, api.lookups)
}

func TestSearchEvents_ValidationHappensFirst(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(q *SearchQuery)
		wantField string
	}{
		{"missing token", func(q *SearchQuery) { q.AccessToken = "" }, "access_token"},
		{"latitude too high", func(q *SearchQuery) { q.Lat = 91 }, "lat"},
		{"longitude too low", func(q *SearchQuery) { q.Lng = -181 }, "lng"},
		{"zero distance", func(q *SearchQuery) { q.Distance = 0 }, "distance"},
		{"negative distance", func(q *SearchQuery) { q.Distance = -5 }, "distance"},
		{"query too long", func(q *SearchQuery) { q.Query = strings.Repeat("x", 501) }, "q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{places: []string{"v1"}}
			svc := newTestService(api, 50)

			q := validQuery()
			tt.mutate(&q)

			result, err := svc.SearchEvents(context.Background(), q)

			assert.Nil(t, result)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Zero(t, api.calls(), "no remote call may happen for an invalid query")
		})
	}
}

func TestSearchEvents_RejectsNonFiniteCoordinates(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(api, 50)

	q := validQuery()
	q.Distance = math.Inf(1)

	_, err := svc.SearchEvents(context.Background(), q)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "distance", verr.Field)
	assert.Zero(t, api.calls())
}

func TestSearchEvents_ContextAlreadyCancelled(t *testing.T) {
	api := &fakeAPI{
		places: []string{"v1"},
		lookup: func(ctx context.Context, req graph.VenueLookup) (map[string]graph.Venue, error) {
			return nil, ctx.Err()
		},
	}
	svc := newTestService(api, 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.SearchEvents(ctx, validQuery())

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.ErrorIs(t, err, context.Canceled)
}
