package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"event-search/internal/metrics"
)

// BreakerSettings configures the circuit breaker in front of the Graph API.
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32        // requests let through while half-open
	Interval     time.Duration // closed-state window after which counts reset
	Timeout      time.Duration // open-state wait before probing again
	MinRequests  uint32
	FailureRatio float64
}

// BreakerClient wraps an API with a circuit breaker so a failing Graph
// backend is not hammered by every incoming search.
type BreakerClient struct {
	api  API
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

func NewBreakerClient(api API, s BreakerSettings) *BreakerClient {
	if s.Name == "" {
		s.Name = "graph-api"
	}

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= s.FailureRatio
			if shouldTrip {
				log.Warn().
					Str("breaker", s.Name).
					Uint32("failures", counts.TotalFailures).
					Uint32("requests", counts.Requests).
					Msg("Opening circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: countsAsSuccess,
	})

	return &BreakerClient{api: api, cb: cb, name: s.Name}
}

func (b *BreakerClient) SearchPlaces(ctx context.Context, req PlaceSearch) ([]string, error) {
	result, err := b.execute("search_places", func() (any, error) {
		return b.api.SearchPlaces(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return castResult[[]string](result)
}

func (b *BreakerClient) VenuesByIDs(ctx context.Context, req VenueLookup) (map[string]Venue, error) {
	result, err := b.execute("venues_by_ids", func() (any, error) {
		return b.api.VenuesByIDs(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return castResult[map[string]Venue](result)
}

// State reports the current breaker state.
func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerClient) execute(operation string, fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		metrics.GraphRequests.WithLabelValues(operation, "rejected").Inc()
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	return result, err
}

// countsAsSuccess treats cancelled calls and 4xx responses (except 429) as
// successes, so only Graph-side failures count towards tripping.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != 429
	}
	return false
}

func castResult[T any](result any) (T, error) {
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
