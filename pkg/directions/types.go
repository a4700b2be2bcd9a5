package directions

import (
	"encoding/json"
)

// API status values. The full set is larger; these are the ones the miner
// branches on.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusUnknownError   = "UNKNOWN_ERROR"
)

// Response is a directions API response. Raw carries the verbatim response
// body so the full dump stays lossless regardless of what the decoded
// structures cover.
type Response struct {
	Status string  `json:"status"`
	Routes []Route `json:"routes"`

	Raw json.RawMessage `json:"-"`
}

// Route is one returned route alternative.
type Route struct {
	Legs             []Leg    `json:"legs"`
	OverviewPolyline Polyline `json:"overview_polyline"`
}

// Leg is one segment of a route between two waypoints.
type Leg struct {
	Distance          TextValue  `json:"distance"`
	Duration          TextValue  `json:"duration"`
	DurationInTraffic *TextValue `json:"duration_in_traffic,omitempty"`
	StartLocation     LatLng     `json:"start_location"`
	EndLocation       LatLng     `json:"end_location"`
	Steps             []Step     `json:"steps"`
}

// Step is one instruction within a leg.
type Step struct {
	TravelMode     string          `json:"travel_mode"`
	Polyline       Polyline        `json:"polyline"`
	TransitDetails *TransitDetails `json:"transit_details,omitempty"`
}

// TransitDetails describes the transit portion of a step.
type TransitDetails struct {
	NumStops int         `json:"num_stops"`
	Line     TransitLine `json:"line"`
}

// TransitLine identifies the transit line serving a step.
type TransitLine struct {
	Name    string  `json:"name"`
	Vehicle Vehicle `json:"vehicle"`
}

// Vehicle is the vehicle type of a transit line (SUBWAY, BUS, ...).
type Vehicle struct {
	Type string `json:"type"`
}

// TextValue is the API's paired human-readable/machine value. Value is
// meters for distances and seconds for durations.
type TextValue struct {
	Text  string `json:"text"`
	Value int64  `json:"value"`
}

// LatLng is a response coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polyline is an encoded polyline container.
type Polyline struct {
	Points string `json:"points"`
}

// PlacesResponse is a places text-search response, used to name intermediate
// transit stations in split-transit mode.
type PlacesResponse struct {
	Status  string  `json:"status"`
	Results []Place `json:"results"`
}

// Place is one place search result.
type Place struct {
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Geometry         Geometry `json:"geometry"`
}

// Geometry carries a place result's location.
type Geometry struct {
	Location LatLng `json:"location"`
}
