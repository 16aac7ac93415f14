package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// API is the subset of the Facebook Graph API the event search depends on.
type API interface {
	// SearchPlaces returns the ids of place-type nodes around a point, in the order Graph returned them.
	SearchPlaces(ctx context.Context, req PlaceSearch) ([]string, error)

	// VenuesByIDs looks up several venues in one ?ids= call. The result is keyed by venue id.
	VenuesByIDs(ctx context.Context, req VenueLookup) (map[string]Venue, error)
}

// PlaceSearch is the input of the place discovery call.
type PlaceSearch struct {
	Lat         float64
	Lng         float64
	Distance    float64
	Query       string
	Limit       int
	AccessToken string
}

// VenueLookup is the input of one bulk detail call.
type VenueLookup struct {
	IDs         []string
	Fields      string
	AccessToken string
}

// Venue is a place node with its upcoming events nested.
type Venue struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Cover    *Cover     `json:"cover,omitempty"`
	Picture  *Picture   `json:"picture,omitempty"`
	Location *Location  `json:"location,omitempty"`
	Events   *EventPage `json:"events,omitempty"`
}

// Event is an event node nested under a venue.
type Event struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Cover          *Cover   `json:"cover,omitempty"`
	Picture        *Picture `json:"picture,omitempty"`
	Description    *string  `json:"description,omitempty"`
	StartTime      *Time    `json:"start_time,omitempty"`
	AttendingCount int      `json:"attending_count"`
	DeclinedCount  int      `json:"declined_count"`
	MaybeCount     int      `json:"maybe_count"`
	NoreplyCount   int      `json:"noreply_count"`
}

type EventPage struct {
	Data []Event `json:"data"`
}

type Cover struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

type Picture struct {
	Data struct {
		URL          string `json:"url"`
		IsSilhouette bool   `json:"is_silhouette"`
	} `json:"data"`
}

// Location is the address block Graph attaches to place nodes. Some places
// only carry address fields, so the coordinates are optional.
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Street    string   `json:"street,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Zip       string   `json:"zip,omitempty"`
	Country   string   `json:"country,omitempty"`
}

// Coordinates returns the location's latitude and longitude. ok is false when
// the location is nil or either coordinate is missing.
func (l *Location) Coordinates() (lat, lng float64, ok bool) {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return 0, 0, false
	}
	return *l.Latitude, *l.Longitude, true
}

// CoverURL returns the cover image source, or nil when the node has no cover.
func CoverURL(c *Cover) *string {
	if c == nil || c.Source == "" {
		return nil
	}
	s := c.Source
	return &s
}

// PictureURL returns the profile picture url, or nil when the node has none.
func PictureURL(p *Picture) *string {
	if p == nil || p.Data.URL == "" {
		return nil
	}
	s := p.Data.URL
	return &s
}

// Time decodes Graph timestamps, which use a numeric zone offset without a colon.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02",
}

func (t *Time) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("graph time: %w", err)
	}

	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("graph time: unrecognized format %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(timeLayouts[0]))
}

// APIError is a failed Graph call, carrying Graph's own error envelope when one was returned.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       int
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("graph api error (status %d, %s %d): %s", e.StatusCode, e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("graph api error (status %d): %s", e.StatusCode, e.Message)
}
