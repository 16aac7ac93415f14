package events

import (
	"strings"
	"time"

	"event-search/internal/services/graph"
)

// SearchQuery is one event search around a point.
type SearchQuery struct {
	Lat         float64 `json:"lat" validate:"min=-90,max=90"`
	Lng         float64 `json:"lng" validate:"min=-180,max=180"`
	Distance    float64 `json:"distance" validate:"gt=0"`
	Query       string  `json:"q" validate:"max=500"`
	AccessToken string  `json:"access_token" validate:"required"`
	Sort        SortKey `json:"sort"`
}

// SortKey selects the ordering of the returned events.
type SortKey string

const (
	SortNone       SortKey = ""
	SortTime       SortKey = "time"
	SortDistance   SortKey = "distance"
	SortVenue      SortKey = "venue"
	SortPopularity SortKey = "popularity"
)

// ParseSortKey maps a user supplied sort name onto a SortKey. Matching is
// case-insensitive and anything unrecognized means no sorting.
func ParseSortKey(s string) SortKey {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case SortTime, SortDistance, SortVenue, SortPopularity:
		return key
	default:
		return SortNone
	}
}

// EventRecord is one (venue, event) pair with its derived metrics.
type EventRecord struct {
	VenueID             string          `json:"venueId"`
	VenueName           string          `json:"venueName"`
	VenueCoverPicture   *string         `json:"venueCoverPicture"`
	VenueProfilePicture *string         `json:"venueProfilePicture"`
	VenueLocation       *graph.Location `json:"venueLocation"`

	EventID             string     `json:"eventId"`
	EventName           string     `json:"eventName"`
	EventCoverPicture   *string    `json:"eventCoverPicture"`
	EventProfilePicture *string    `json:"eventProfilePicture"`
	EventDescription    *string    `json:"eventDescription"`
	EventStartTime      *time.Time `json:"eventStarttime"`

	// Meters from the search center; nil when the venue has no location.
	EventDistance *float64 `json:"eventDistance"`
	// Seconds from the request time to the event start; nil without a start time.
	EventTimeFromNow *float64 `json:"eventTimeFromNow"`

	EventStats EventStats `json:"eventStats"`
}

type EventStats struct {
	AttendingCount int `json:"attendingCount"`
	DeclinedCount  int `json:"declinedCount"`
	MaybeCount     int `json:"maybeCount"`
	NoreplyCount   int `json:"noreplyCount"`
}

// ResultSet is the outcome of a search.
type ResultSet struct {
	Events   []EventRecord `json:"events"`
	Metadata Metadata      `json:"metadata"`
}

// Metadata holds the tallies gathered while flattening.
type Metadata struct {
	Venues           int `json:"venues"`
	VenuesWithEvents int `json:"venuesWithEvents"`
	Events           int `json:"events"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

// Common error codes
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeUpstream   = "UPSTREAM_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeRateLimit  = "RATE_LIMIT"
)

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}
