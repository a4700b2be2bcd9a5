// Package query provides the query data model and the parameter resolver
// that expands sparse input rows into concrete, immutable query specs.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mode is the travel mode of a directions query.
type Mode string

const (
	// ModeDriving requests driving directions.
	ModeDriving Mode = "driving"

	// ModeWalking requests walking directions.
	ModeWalking Mode = "walking"

	// ModeBicycling requests bicycling directions.
	ModeBicycling Mode = "bicycling"

	// ModeTransit requests public transit directions.
	ModeTransit Mode = "transit"
)

// Valid reports whether m is a known travel mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeDriving, ModeWalking, ModeBicycling, ModeTransit:
		return true
	}
	return false
}

// SplitLeg selects which trip leg a transit query is split on.
type SplitLeg string

const (
	// SplitNone disables split-transit follow-up queries.
	SplitNone SplitLeg = ""

	// SplitBegin splits on the first transit leg of the trip.
	SplitBegin SplitLeg = "begin"

	// SplitEnd splits on the last transit leg of the trip.
	SplitEnd SplitLeg = "end"
)

// Coordinate is a lat/long pair. The input file encodes coordinates as
// "lat;long" because addresses may contain commas.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the coordinate in input-file form.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + ";" + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// ParseCoordinate parses a "lat;long" string.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("coordinate %q: want \"lat;long\"", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: latitude: %w", s, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: longitude: %w", s, err)
	}
	return Coordinate{Lat: lat, Lng: lng}, nil
}

// Location is a query endpoint: either a free-form address or a coordinate.
type Location struct {
	Address string      `json:"address,omitempty"`
	Coord   *Coordinate `json:"coord,omitempty"`
}

// ParseLocation parses an input cell into a Location. Cells containing ";"
// are coordinates, everything else is an address.
func ParseLocation(s string) (Location, error) {
	if strings.Contains(s, ";") {
		c, err := ParseCoordinate(s)
		if err != nil {
			return Location{}, err
		}
		return Location{Coord: &c}, nil
	}
	return Location{Address: s}, nil
}

// String renders the location in input-file form.
func (l Location) String() string {
	if l.Coord != nil {
		return l.Coord.String()
	}
	return l.Address
}

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool {
	return l.Address == "" && l.Coord == nil
}

// Spec is one fully resolved directions query. It is a value type and is
// never mutated after the resolver produces it.
//
// Optional fields are explicit (pointers or zero values), not a map, so the
// populated column set can be computed without reflection.
type Spec struct {
	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`
	Mode        Mode     `json:"mode"`

	Waypoints         []string `json:"waypoints,omitempty"`
	OptimizeWaypoints bool     `json:"optimize_waypoints,omitempty"`
	Alternatives      bool     `json:"alternatives,omitempty"`
	Avoid             string   `json:"avoid,omitempty"`
	Units             string   `json:"units,omitempty"`
	Region            string   `json:"region,omitempty"`

	// DepartureTime and ArrivalTime are mutually exclusive. DepartNow marks
	// the "now" keyword; it is resolved to a concrete instant at dispatch.
	DepartureTime *time.Time `json:"departure_time,omitempty"`
	ArrivalTime   *time.Time `json:"arrival_time,omitempty"`
	DepartNow     bool       `json:"depart_now,omitempty"`

	TransitMode              string `json:"transit_mode,omitempty"`
	TransitRoutingPreference string `json:"transit_routing_preference,omitempty"`
	TrafficModel             string `json:"traffic_model,omitempty"`

	SplitOnLeg SplitLeg `json:"split_on_leg,omitempty"`
}

// TimeColumnLayout is the layout used to render times in exports.
const TimeColumnLayout = "2006-01-02T15:04:05Z07:00"

// ColumnOrder is the canonical direct-parameter column order. Exports build
// their header as the union of populated columns across records, in this
// order, so identical record sets always render identical headers.
var ColumnOrder = []string{
	"origin",
	"destination",
	"mode",
	"waypoints",
	"optimize_waypoints",
	"alternatives",
	"avoid",
	"units",
	"region",
	"departure_time",
	"arrival_time",
	"transit_mode",
	"transit_routing_preference",
	"traffic_model",
	"split_on_leg",
}

// Columns returns the populated direct parameters as column name to rendered
// value. The tabular exporter computes its header as the union of populated
// columns across all exported specs.
func (s Spec) Columns() map[string]string {
	cols := map[string]string{
		"origin":      s.Origin.String(),
		"destination": s.Destination.String(),
		"mode":        string(s.Mode),
	}
	if len(s.Waypoints) > 0 {
		cols["waypoints"] = strings.Join(s.Waypoints, "|")
	}
	if s.OptimizeWaypoints {
		cols["optimize_waypoints"] = "true"
	}
	if s.Alternatives {
		cols["alternatives"] = "true"
	}
	if s.Avoid != "" {
		cols["avoid"] = s.Avoid
	}
	if s.Units != "" {
		cols["units"] = s.Units
	}
	if s.Region != "" {
		cols["region"] = s.Region
	}
	if s.DepartNow {
		cols["departure_time"] = "now"
	} else if s.DepartureTime != nil {
		cols["departure_time"] = s.DepartureTime.Format(TimeColumnLayout)
	}
	if s.ArrivalTime != nil {
		cols["arrival_time"] = s.ArrivalTime.Format(TimeColumnLayout)
	}
	if s.TransitMode != "" {
		cols["transit_mode"] = s.TransitMode
	}
	if s.TransitRoutingPreference != "" {
		cols["transit_routing_preference"] = s.TransitRoutingPreference
	}
	if s.TrafficModel != "" {
		cols["traffic_model"] = s.TrafficModel
	}
	if s.SplitOnLeg != SplitNone {
		cols["split_on_leg"] = string(s.SplitOnLeg)
	}
	return cols
}

// Validate checks the spec invariants. A violation drops only the one spec,
// never the whole row.
func (s Spec) Validate() error {
	if s.Origin.IsZero() {
		return fmt.Errorf("origin is required")
	}
	if s.Destination.IsZero() {
		return fmt.Errorf("destination is required")
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("mode %q is not one of driving/walking/bicycling/transit", s.Mode)
	}
	if (s.DepartureTime != nil || s.DepartNow) && s.ArrivalTime != nil {
		return fmt.Errorf("departure_time and arrival_time are mutually exclusive")
	}
	if s.TransitMode != "" && s.Mode != ModeTransit {
		return fmt.Errorf("transit_mode requires mode=transit, got %q", s.Mode)
	}
	if s.TransitRoutingPreference != "" && s.Mode != ModeTransit {
		return fmt.Errorf("transit_routing_preference requires mode=transit, got %q", s.Mode)
	}
	if s.TrafficModel != "" && (s.Mode != ModeDriving || (s.DepartureTime == nil && !s.DepartNow)) {
		return fmt.Errorf("traffic_model requires mode=driving and a departure_time")
	}
	if s.SplitOnLeg != SplitNone && s.SplitOnLeg != SplitBegin && s.SplitOnLeg != SplitEnd {
		return fmt.Errorf("split_on_leg %q: use %q or %q", s.SplitOnLeg, SplitBegin, SplitEnd)
	}
	return nil
}
