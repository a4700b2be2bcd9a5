package geo

import (
	"math"
	"testing"

	"github.com/transitlab/route-miner/pkg/query"
)

func TestStationFractions(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want []float64
	}{
		{name: "four stops", n: 4, want: []float64{0.25, 0.5, 0.75}},
		{name: "two stops", n: 2, want: []float64{0.5}},
		{name: "one stop has no intermediates", n: 1, want: nil},
		{name: "zero stops", n: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StationFractions(tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("StationFractions(%d) has %d values, want %d", tt.n, len(got), len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("StationFractions(%d)[%d] = %v, want %v", tt.n, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestInterpolateAlong(t *testing.T) {
	line := []query.Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 1},
		{Lat: 0, Lng: 2},
	}

	got := InterpolateAlong(line, []float64{0, 0.25, 0.5, 1})
	want := []query.Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 0.5},
		{Lat: 0, Lng: 1},
		{Lat: 0, Lng: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i].Lat-want[i].Lat) > 1e-9 || math.Abs(got[i].Lng-want[i].Lng) > 1e-9 {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestInterpolateAlongUnevenSegments(t *testing.T) {
	// First segment is three times the second; the midpoint by length lands
	// inside the first segment.
	line := []query.Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 3},
		{Lat: 0, Lng: 4},
	}

	got := InterpolateAlong(line, []float64{0.5})
	if len(got) != 1 {
		t.Fatalf("got %d points, want 1", len(got))
	}
	if math.Abs(got[0].Lng-2) > 1e-9 {
		t.Errorf("midpoint lng = %v, want 2", got[0].Lng)
	}
}

func TestInterpolateAlongDegenerate(t *testing.T) {
	if got := InterpolateAlong([]query.Coordinate{{Lat: 1, Lng: 1}}, []float64{0.5}); got != nil {
		t.Errorf("single-point line = %v, want nil", got)
	}

	// Zero-length line collapses every fraction to the first point.
	line := []query.Coordinate{{Lat: 1, Lng: 1}, {Lat: 1, Lng: 1}}
	got := InterpolateAlong(line, []float64{0.25, 0.75})
	if len(got) != 2 || got[0] != line[0] || got[1] != line[0] {
		t.Errorf("zero-length line = %v, want both points at %v", got, line[0])
	}
}

func TestDistToSegment(t *testing.T) {
	a := query.Coordinate{Lat: 0, Lng: 0}
	b := query.Coordinate{Lat: 0, Lng: 2}

	tests := []struct {
		name string
		p    query.Coordinate
		want float64
	}{
		{name: "perpendicular above midpoint", p: query.Coordinate{Lat: 1, Lng: 1}, want: 1},
		{name: "on the segment", p: query.Coordinate{Lat: 0, Lng: 0.5}, want: 0},
		{name: "beyond the end clamps to endpoint", p: query.Coordinate{Lat: 0, Lng: 3}, want: 1},
		{name: "before the start clamps to start", p: query.Coordinate{Lat: 3, Lng: -4}, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistToSegment(tt.p, a, b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DistToSegment(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestDistToPolyline(t *testing.T) {
	line := []query.Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 1},
		{Lat: 1, Lng: 1},
	}

	got := DistToPolyline(query.Coordinate{Lat: 0.5, Lng: 1.5}, line)
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("DistToPolyline() = %v, want 0.5", got)
	}

	if got := DistToPolyline(query.Coordinate{Lat: 0, Lng: 0}, nil); !math.IsInf(got, 1) {
		t.Errorf("DistToPolyline(empty) = %v, want +Inf", got)
	}
}
