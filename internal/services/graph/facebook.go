package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"event-search/internal/metrics"
)

// ErrMalformedResponse reports a 2xx Graph response that does not have the expected shape.
var ErrMalformedResponse = errors.New("malformed graph response")

const maxErrorBody = 512

// Client talks to the Graph API over HTTP. It is safe for concurrent use; the
// underlying http.Client and its connection pool are shared by all calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Graph client rooted at baseURL (for example https://graph.facebook.com/v2.5).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type searchResponse struct {
	Data *[]struct {
		ID string `json:"id"`
	} `json:"data"`
}

// SearchPlaces runs GET /search?type=place and returns only the ids.
func (c *Client) SearchPlaces(ctx context.Context, req PlaceSearch) ([]string, error) {
	params := url.Values{}
	params.Set("type", "place")
	params.Set("center", formatFloat(req.Lat)+","+formatFloat(req.Lng))
	params.Set("distance", formatFloat(req.Distance))
	params.Set("q", req.Query)
	params.Set("limit", strconv.Itoa(req.Limit))
	params.Set("fields", "id")
	params.Set("access_token", req.AccessToken)

	var resp searchResponse
	if err := c.get(ctx, "search_places", "/search", params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: search response has no data field", ErrMalformedResponse)
	}

	ids := make([]string, 0, len(*resp.Data))
	for i, place := range *resp.Data {
		if place.ID == "" {
			return nil, fmt.Errorf("%w: search result %d has no id", ErrMalformedResponse, i)
		}
		ids = append(ids, place.ID)
	}
	return ids, nil
}

// VenuesByIDs runs GET /?ids=a,b,c&fields=... for one batch of venues.
func (c *Client) VenuesByIDs(ctx context.Context, req VenueLookup) (map[string]Venue, error) {
	if len(req.IDs) == 0 {
		return map[string]Venue{}, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(req.IDs, ","))
	params.Set("fields", req.Fields)
	params.Set("access_token", req.AccessToken)

	var resp map[string]Venue
	if err := c.get(ctx, "venues_by_ids", "/", params, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: venue lookup returned null", ErrMalformedResponse)
	}

	for id, venue := range resp {
		if venue.ID == "" {
			venue.ID = id
			resp[id] = venue
		}
	}
	return resp, nil
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.GraphRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		result := "success"
		if err != nil {
			result = "failure"
		}
		metrics.GraphRequests.WithLabelValues(operation, result).Inc()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build graph request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redactURL(urlErr.URL)
		}
		return fmt.Errorf("failed to call graph api: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read graph response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return newAPIError(res.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		apiErr.Message = envelope.Error.Message
		apiErr.Type = envelope.Error.Type
		apiErr.Code = envelope.Error.Code
		return apiErr
	}

	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// redactURL masks the access token in a request URL so it can be logged.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparsable graph url>"
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
