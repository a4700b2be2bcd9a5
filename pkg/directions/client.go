// Package directions provides the geo-routing API client with error
// classification, retry, and structured logging. The scheduler treats it as
// an opaque route fetcher; rate limiting lives with the scheduler because
// the per-credential timeline is owned there.
package directions

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/transitlab/route-miner/pkg/logging"
	"github.com/transitlab/route-miner/pkg/query"
)

// Prometheus metrics for API client operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "miner_api_requests_total",
		Help: "Total API requests by endpoint and outcome",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "miner_api_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "miner_api_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// API endpoint paths.
const (
	endpointDirections  = "/maps/api/directions/json"
	endpointPlaceSearch = "/maps/api/place/textsearch/json"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API host. Tests point this at a mock server.
	BaseURL string

	// APIKey is the credential sent with every request.
	APIKey string

	// HTTPClient overrides the default 30s-timeout client (for testing).
	HTTPClient *http.Client
}

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://maps.googleapis.com"

// Client is the geo-routing API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logging.NewLogger("directions-client"),
	}, nil
}

// Routes fetches directions for a fully resolved query spec. ZERO_RESULTS is
// not an error; every other non-OK status is returned as an *APIError so the
// scheduler can record it as a failure outcome.
func (c *Client) Routes(ctx context.Context, spec query.Spec) (*Response, error) {
	params := directionsParams(spec)

	body, err := c.do(ctx, endpointDirections, params)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassServer,
			Message:    "malformed response body",
			Err:        err,
		}
	}
	resp.Raw = body

	if class := classifyStatus(resp.Status); class != "" {
		apiErrorsTotal.WithLabelValues(string(class)).Inc()
		apiRequestsTotal.WithLabelValues(endpointDirections, resp.Status).Inc()
		c.logger.Warn().
			Str("status", resp.Status).
			Str("error_class", string(class)).
			Msg("Directions request rejected")
		return nil, &APIError{ErrorClass: class, Status: resp.Status, Message: "request rejected"}
	}

	apiRequestsTotal.WithLabelValues(endpointDirections, resp.Status).Inc()
	return &resp, nil
}

// PlaceSearch runs a text search near a location, filtered to a place type.
// Split-transit mode uses it to identify intermediate stations.
func (c *Client) PlaceSearch(ctx context.Context, text string, near query.Coordinate, placeType string) (*PlacesResponse, error) {
	params := url.Values{}
	params.Set("query", text)
	params.Set("location", fmt.Sprintf("%f,%f", near.Lat, near.Lng))
	if placeType != "" {
		params.Set("type", placeType)
	}

	body, err := c.do(ctx, endpointPlaceSearch, params)
	if err != nil {
		return nil, err
	}

	var resp PlacesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassServer,
			Message:    "malformed places response body",
			Err:        err,
		}
	}

	if class := classifyStatus(resp.Status); class != "" {
		apiErrorsTotal.WithLabelValues(string(class)).Inc()
		apiRequestsTotal.WithLabelValues(endpointPlaceSearch, resp.Status).Inc()
		return nil, &APIError{ErrorClass: class, Status: resp.Status, Message: "place search rejected"}
	}

	apiRequestsTotal.WithLabelValues(endpointPlaceSearch, resp.Status).Inc()
	return &resp, nil
}

// do performs one GET with retry and error classification, returning the
// response body.
func (c *Client) do(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("key", c.apiKey)
	requestURL := c.baseURL + endpoint + "?" + params.Encode()

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	var errClass ErrorClass

	retryErr := retryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			errClass = ErrorClassClient
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			errClass = ErrorClassNetwork
			apiErrorsTotal.WithLabelValues(string(errClass)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			errClass = classifyHTTPStatus(resp.StatusCode)
			apiErrorsTotal.WithLabelValues(string(errClass)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("API request error")

			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			errClass = ErrorClassNetwork
			apiErrorsTotal.WithLabelValues(string(errClass)).Inc()
			return fmt.Errorf("read response body: %w", err)
		}
		return nil
	}, func(error) ErrorClass {
		return errClass
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return body, nil
}

// classifyHTTPStatus categorizes an HTTP error status for retry and
// observability.
func classifyHTTPStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	default:
		return ErrorClassServer
	}
}

// directionsParams renders a spec into request parameters. Unset optional
// fields are omitted.
func directionsParams(spec query.Spec) url.Values {
	params := url.Values{}
	params.Set("origin", locationParam(spec.Origin))
	params.Set("destination", locationParam(spec.Destination))
	params.Set("mode", string(spec.Mode))

	if len(spec.Waypoints) > 0 {
		waypoints := strings.Join(spec.Waypoints, "|")
		if spec.OptimizeWaypoints {
			waypoints = "optimize:true|" + waypoints
		}
		params.Set("waypoints", waypoints)
	}
	if spec.Alternatives {
		params.Set("alternatives", "true")
	}
	if spec.Avoid != "" {
		params.Set("avoid", spec.Avoid)
	}
	if spec.Units != "" {
		params.Set("units", spec.Units)
	}
	if spec.Region != "" {
		params.Set("region", spec.Region)
	}
	if spec.DepartNow {
		params.Set("departure_time", "now")
	} else if spec.DepartureTime != nil {
		params.Set("departure_time", strconv.FormatInt(spec.DepartureTime.Unix(), 10))
	}
	if spec.ArrivalTime != nil {
		params.Set("arrival_time", strconv.FormatInt(spec.ArrivalTime.Unix(), 10))
	}
	if spec.TransitMode != "" {
		params.Set("transit_mode", spec.TransitMode)
	}
	if spec.TransitRoutingPreference != "" {
		params.Set("transit_routing_preference", spec.TransitRoutingPreference)
	}
	if spec.TrafficModel != "" {
		params.Set("traffic_model", spec.TrafficModel)
	}
	return params
}

func locationParam(l query.Location) string {
	if l.Coord != nil {
		return fmt.Sprintf("%f,%f", l.Coord.Lat, l.Coord.Lng)
	}
	return l.Address
}
