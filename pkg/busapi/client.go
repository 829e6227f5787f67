// Package busapi is the typed client for the bus tracker backend.
package busapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/util"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 10 * time.Second
const maxErrorMessageLength = 200

// TokenSource supplies the bearer token sent with every request. An empty
// token sends the request without credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithStaticCache caches routes and stations.
func WithStaticCache(cache *StaticCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	cache      *StaticCache
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("busapi: base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("busapi: base url %q is not absolute", baseURL)
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) DashboardStats(ctx context.Context) (ctdf.DashboardStats, error) {
	var stats ctdf.DashboardStats
	err := c.get(ctx, "dashboard stats", "/api/admin/dashboard/stats/", nil, &stats)

	return stats, err
}

func (c *Client) BusStatuses(ctx context.Context) ([]ctdf.BusStatus, error) {
	var statuses []ctdf.BusStatus
	err := c.get(ctx, "bus status", "/api/admin/buses/status/", nil, &statuses)

	return statuses, err
}

func (c *Client) Alerts(ctx context.Context) ([]ctdf.Alert, error) {
	var alerts []ctdf.Alert
	err := c.get(ctx, "alerts", "/api/admin/alerts/", nil, &alerts)

	return alerts, err
}

func (c *Client) Bus(ctx context.Context, id string) (ctdf.Bus, error) {
	var bus ctdf.Bus
	err := c.get(ctx, "bus details", "/api/buses/"+url.PathEscape(id)+"/", nil, &bus)

	return bus, err
}

func (c *Client) BusLocation(ctx context.Context, id string) (ctdf.BusLocation, error) {
	var location ctdf.BusLocation
	err := c.get(ctx, "bus location", "/api/buses/"+url.PathEscape(id)+"/location/", nil, &location)

	return location, err
}

func (c *Client) Route(ctx context.Context, routeID int) (ctdf.Route, error) {
	var route ctdf.Route
	key := "route:" + strconv.Itoa(routeID)

	err := c.getCached(ctx, key, "route", fmt.Sprintf("/api/routes/%d/", routeID), &route)

	return route, err
}

func (c *Client) Stations(ctx context.Context) ([]ctdf.Station, error) {
	var stations []ctdf.Station
	err := c.getCached(ctx, "stations", "stations", "/api/stations/", &stations)

	return stations, err
}

func (c *Client) SearchBuses(ctx context.Context, startStation string, endStation string, departure string) ([]ctdf.Bus, error) {
	query := url.Values{}
	query.Set("startStation", startStation)
	query.Set("endStation", endStation)
	query.Set("time", departure)

	var buses []ctdf.Bus
	err := c.get(ctx, "bus search", "/api/buses/search/", query, &buses)

	return buses, err
}

func (c *Client) getCached(ctx context.Context, key string, op string, path string, value any) error {
	if c.cache != nil && c.cache.load(ctx, key, value) {
		return nil
	}

	if err := c.get(ctx, op, path, nil, value); err != nil {
		return err
	}

	if c.cache != nil {
		c.cache.save(ctx, key, value)
	}

	return nil
}

func (c *Client) get(ctx context.Context, op string, path string, query url.Values, value any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	request.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return &FetchError{Op: op, StatusCode: http.StatusUnauthorized, Message: "no valid credentials", Err: err}
		}
		if token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
	}

	startTime := time.Now()

	response, err := c.httpClient.Do(request)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	defer response.Body.Close()

	log.Debug().
		Str("op", op).
		Str("path", endpoint.Path).
		Int("status", response.StatusCode).
		Str("Length", time.Since(startTime).String()).
		Msg("Backend request")

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return &FetchError{
			Op:         op,
			StatusCode: response.StatusCode,
			Message:    errorMessage(response),
		}
	}

	if err := json.NewDecoder(response.Body).Decode(value); err != nil {
		return &FetchError{Op: op, StatusCode: response.StatusCode, Message: "invalid response body", Err: err}
	}

	return nil
}

// errorMessage reads the backend's {"error": ...} or {"detail": ...} body,
// falling back to the start of a plain text body.
func errorMessage(response *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(response.Body, 64*1024))

	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "<") {
		return util.TrimString(text, maxErrorMessageLength)
	}

	return http.StatusText(response.StatusCode)
}
