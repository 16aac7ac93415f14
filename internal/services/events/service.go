package events

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"event-search/internal/metrics"
	"event-search/internal/services/graph"
)

// Options tunes how a Service talks to the Graph API.
type Options struct {
	SearchLimit      int           // max places requested from discovery
	BatchSize        int           // ids per bulk lookup, at most 50
	FetchConcurrency int           // max lookups in flight, 0 for no limit
	RequestTimeout   time.Duration // per Graph call
}

// Service runs event searches against the Graph API.
type Service struct {
	api              graph.API
	validate         *validator.Validate
	searchLimit      int
	batchSize        int
	fetchConcurrency int
	requestTimeout   time.Duration
	now              func() time.Time
}

// NewEventService creates a new Service
func NewEventService(api graph.API, opts Options) *Service {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		api:              api,
		validate:         validate,
		searchLimit:      opts.SearchLimit,
		batchSize:        opts.BatchSize,
		fetchConcurrency: opts.FetchConcurrency,
		requestTimeout:   opts.RequestTimeout,
		now:              time.Now,
	}
}

// SearchEvents finds the venues around the query point, pulls their upcoming
// events and returns them ranked by q.Sort. Any failed Graph call fails the
// whole search.
func (s *Service) SearchEvents(ctx context.Context, q SearchQuery) (*ResultSet, error) {
	if err := s.validateQuery(q); err != nil {
		return nil, err
	}

	started := time.Now()
	now := s.now()

	ids, err := s.discover(ctx, q)
	if err != nil {
		log.Warn().Err(err).Str("stage", string(StageDiscovery)).Msg("Event search failed")
		return nil, err
	}

	batches := Partition(ids, s.batchSize)

	pages, err := s.fetchDetails(ctx, batches, q.AccessToken, now)
	if err != nil {
		log.Warn().Err(err).Str("stage", string(StageDetail)).Int("batches", len(batches)).Msg("Event search failed")
		return nil, err
	}

	records, meta := flatten(pages)
	records = enrich(records, q.Lat, q.Lng, now)
	records = Rank(records, q.Sort)
	result := assemble(records, meta)

	metrics.SearchBatches.Observe(float64(len(batches)))
	metrics.SearchResults.Observe(float64(meta.Events))

	log.Debug().
		Int("candidates", len(ids)).
		Int("batches", len(batches)).
		Int("venues", meta.Venues).
		Int("venues_with_events", meta.VenuesWithEvents).
		Int("events", meta.Events).
		Str("sort", string(q.Sort)).
		Dur("duration", time.Since(started)).
		Msg("Event search completed")

	return result, nil
}

func (s *Service) discover(ctx context.Context, q SearchQuery) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	ids, err := s.api.SearchPlaces(callCtx, graph.PlaceSearch{
		Lat:         q.Lat,
		Lng:         q.Lng,
		Distance:    q.Distance,
		Query:       q.Query,
		Limit:       s.searchLimit,
		AccessToken: q.AccessToken,
	})
	if err != nil {
		return nil, &UpstreamError{Stage: StageDiscovery, Err: err}
	}
	return ids, nil
}

func (s *Service) validateQuery(q SearchQuery) error {
	coords := []struct {
		field string
		value float64
	}{{"lat", q.Lat}, {"lng", q.Lng}, {"distance", q.Distance}}
	for _, c := range coords {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &ValidationError{Field: c.field, Message: "must be a finite number"}
		}
	}

	err := s.validate.Struct(q)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Message: describeRule(fe)}
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// assemble packages the ranked records and tallies into the response.
func assemble(records []EventRecord, meta Metadata) *ResultSet {
	if records == nil {
		records = []EventRecord{}
	}
	return &ResultSet{
		Events:   records,
		Metadata: meta,
	}
}
