// Package testutil provides testing utilities for the route miner.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

const (
	directionsPath  = "/maps/api/directions/json"
	placeSearchPath = "/maps/api/place/textsearch/json"
)

// MockMapsResponse defines the behavior for a mock routing API response.
type MockMapsResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockMaps is a configurable mock routing API server for testing. It serves
// the directions and place-search endpoints and records every query string
// it receives so tests can assert on dispatched parameters.
type MockMaps struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	RequestCount int
	Queries      []url.Values
}

// NewMockMaps creates a new mock routing API server.
func NewMockMaps() *MockMaps {
	mock := &MockMaps{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Queries = append(mock.Queries, r.URL.Query())
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockMaps) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockMaps) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockMaps) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Queries = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockMaps) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockMaps) SetResponse(path string, resp MockMapsResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetDirectionsResponse configures the directions endpoint.
func (m *MockMaps) SetDirectionsResponse(resp MockMapsResponse) {
	m.SetResponse(directionsPath, resp)
}

// SetPlaceSearchResponse configures the place text-search endpoint.
func (m *MockMaps) SetPlaceSearchResponse(resp MockMapsResponse) {
	m.SetResponse(placeSearchPath, resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockMaps) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// LastQuery returns the query parameters of the most recent request, or nil
// when no request has arrived yet.
func (m *MockMaps) LastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.Queries) == 0 {
		return nil
	}
	return m.Queries[len(m.Queries)-1]
}

// defaultHandler serves a minimal successful directions-style document for
// any path without a configured handler.
func (m *MockMaps) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(DirectionsBody))
}

// DirectionsBody is a small but structurally complete directions document:
// one route, one driving leg with distance, durations, and endpoints.
const DirectionsBody = `{
  "status": "OK",
  "routes": [
    {
      "overview_polyline": {"points": "_p~iF~ps|U_ulLnnqC"},
      "legs": [
        {
          "distance": {"text": "5.2 mi", "value": 8369},
          "duration": {"text": "18 mins", "value": 1080},
          "duration_in_traffic": {"text": "21 mins", "value": 1260},
          "start_location": {"lat": 38.5, "lng": -120.2},
          "end_location": {"lat": 40.7, "lng": -120.95},
          "steps": [
            {
              "travel_mode": "DRIVING",
              "polyline": {"points": "_p~iF~ps|U_ulLnnqC"}
            }
          ]
        }
      ]
    }
  ]
}`

// TransitBody is a directions document for a single-vehicle transit trip,
// shaped so station splitting has a transit step to work from.
const TransitBody = `{
  "status": "OK",
  "routes": [
    {
      "overview_polyline": {"points": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"},
      "legs": [
        {
          "distance": {"text": "12.4 mi", "value": 19956},
          "duration": {"text": "42 mins", "value": 2520},
          "start_location": {"lat": 38.5, "lng": -120.2},
          "end_location": {"lat": 43.252, "lng": -126.453},
          "steps": [
            {
              "travel_mode": "WALKING",
              "polyline": {"points": "_p~iF~ps|U"}
            },
            {
              "travel_mode": "TRANSIT",
              "polyline": {"points": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"},
              "transit_details": {
                "num_stops": 4,
                "line": {"name": "Blue Line", "vehicle": {"type": "SUBWAY"}}
              }
            }
          ]
        }
      ]
    }
  ]
}`

// PlaceSearchBody is a place text-search result with one station hit.
const PlaceSearchBody = `{
  "status": "OK",
  "results": [
    {
      "name": "Central Station",
      "formatted_address": "1 Station Plaza, Springfield, IL",
      "geometry": {"location": {"lat": 40.7, "lng": -120.95}}
    }
  ]
}`

// NewOKResponse creates a 200 response carrying body.
func NewOKResponse(body string) MockMapsResponse {
	return MockMapsResponse{StatusCode: http.StatusOK, Body: body}
}

// NewStatusResponse creates a 200 response whose document carries the given
// API status and no routes. The routing API reports most failures this way,
// inside an HTTP 200.
func NewStatusResponse(status string) MockMapsResponse {
	return MockMapsResponse{
		StatusCode: http.StatusOK,
		Body:       `{"status": "` + status + `", "routes": []}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockMapsResponse {
	return MockMapsResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockMapsResponse {
	return MockMapsResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
	}
}

// NewFlakyHandler fails the first n requests with HTTP 500 and then serves
// body, for exercising retry behavior.
func NewFlakyHandler(n int, body string) func(w http.ResponseWriter, r *http.Request) {
	var mu sync.Mutex
	var calls int
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		failing := calls <= n
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": "internal server error"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}
}
