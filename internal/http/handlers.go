package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"event-search/internal/middleware"
	"event-search/internal/services/events"
)

const missingParamsMessage = "Please specify the lat, lng, distance and access_token query parameters"

// EventSearcher runs one event search.
type EventSearcher interface {
	SearchEvents(ctx context.Context, q events.SearchQuery) (*events.ResultSet, error)
}

// EventHandler handles event search HTTP requests
type EventHandler struct {
	eventService EventSearcher
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService EventSearcher) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// RegisterRoutes registers all event routes
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Welcome)
	r.Get("/events", h.Search)
}

// Welcome handles the root route
func (h *EventHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the Facebook Event Search service!",
	})
}

// Search handles GET /events
func (h *EventHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.eventService.SearchEvents(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

func parseSearchQuery(values url.Values) (events.SearchQuery, error) {
	lat, lng, distance := values.Get("lat"), values.Get("lng"), values.Get("distance")
	token := values.Get("access_token")
	if lat == "" || lng == "" || distance == "" || token == "" {
		return events.SearchQuery{}, &events.ValidationError{Message: missingParamsMessage}
	}

	q := events.SearchQuery{
		Query:       values.Get("q"),
		AccessToken: token,
		Sort:        events.ParseSortKey(values.Get("sort")),
	}

	numbers := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"lat", lat, &q.Lat},
		{"lng", lng, &q.Lng},
		{"distance", distance, &q.Distance},
	}
	for _, n := range numbers {
		v, err := strconv.ParseFloat(n.raw, 64)
		if err != nil {
			return events.SearchQuery{}, &events.ValidationError{Field: n.name, Message: "must be a number"}
		}
		*n.dst = v
	}

	return q, nil
}

// writeError maps a search error onto its HTTP status and error envelope.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *events.ValidationError
		upstreamErr   *events.UpstreamError
	)

	switch {
	case errors.As(err, &validationErr):
		middleware.WriteJSON(w, http.StatusBadRequest,
			events.NewErrorResponse(events.ErrCodeValidation, validationErr.Error()))

	case errors.As(err, &upstreamErr):
		resp := events.NewErrorResponse(events.ErrCodeUpstream,
			fmt.Sprintf("Facebook Graph API %s request failed", upstreamErr.Stage))
		resp.Error.Stage = string(upstreamErr.Stage)
		middleware.WriteJSON(w, http.StatusBadGateway, resp)

	default:
		log.Error().Err(err).Msg("Event search failed unexpectedly")
		middleware.WriteJSON(w, http.StatusInternalServerError,
			events.NewErrorResponse(events.ErrCodeInternal, "Internal server error"))
	}
}

// NotFound handles unknown routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusNotFound,
		events.NewErrorResponse(events.ErrCodeNotFound, fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path)))
}
