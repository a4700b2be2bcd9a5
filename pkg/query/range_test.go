package query

import (
	"testing"
	"time"
)

func TestTimeRangeExpand(t *testing.T) {
	min := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		r     TimeRange
		want  int
		first time.Time
		last  time.Time
	}{
		{
			name:  "even multiple includes max",
			r:     TimeRange{Min: min, Max: min.Add(60 * time.Minute), Delta: 15 * time.Minute},
			want:  5,
			first: min,
			last:  min.Add(60 * time.Minute),
		},
		{
			name:  "uneven multiple stops short of max",
			r:     TimeRange{Min: min, Max: min.Add(50 * time.Minute), Delta: 15 * time.Minute},
			want:  4,
			first: min,
			last:  min.Add(45 * time.Minute),
		},
		{
			name:  "delta larger than span",
			r:     TimeRange{Min: min, Max: min.Add(5 * time.Minute), Delta: time.Hour},
			want:  1,
			first: min,
			last:  min,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.Expand()
			if len(got) != tt.want {
				t.Fatalf("Expand() has %d values, want %d", len(got), tt.want)
			}
			if !got[0].Equal(tt.first) {
				t.Errorf("Expand()[0] = %s, want %s", got[0], tt.first)
			}
			if !got[len(got)-1].Equal(tt.last) {
				t.Errorf("Expand() last = %s, want %s", got[len(got)-1], tt.last)
			}
		})
	}
}

func TestTimeRangeValidate(t *testing.T) {
	min := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		r       TimeRange
		wantErr bool
	}{
		{
			name: "valid range",
			r:    TimeRange{Min: min, Max: min.Add(time.Hour), Delta: 10 * time.Minute},
		},
		{
			name:    "zero delta",
			r:       TimeRange{Min: min, Max: min.Add(time.Hour)},
			wantErr: true,
		},
		{
			name:    "max before min",
			r:       TimeRange{Min: min, Max: min.Add(-time.Hour), Delta: 10 * time.Minute},
			wantErr: true,
		},
		{
			name:    "max equals min",
			r:       TimeRange{Min: min, Max: min, Delta: 10 * time.Minute},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpatialRangeExpandGrid(t *testing.T) {
	r := SpatialRange{
		Min:         Coordinate{Lat: 0, Lng: 0},
		Max:         Coordinate{Lat: 1, Lng: 2},
		LatCount:    3,
		LngCount:    2,
		Arrangement: ArrangeGrid,
	}

	got := r.Expand()
	want := []Coordinate{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 2},
		{Lat: 0.5, Lng: 0}, {Lat: 0.5, Lng: 2},
		{Lat: 1, Lng: 0}, {Lat: 1, Lng: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("Expand() has %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expand()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSpatialRangeExpandLine(t *testing.T) {
	r := SpatialRange{
		Min:         Coordinate{Lat: 0, Lng: 10},
		Max:         Coordinate{Lat: 2, Lng: 14},
		LatCount:    3,
		LngCount:    3,
		Arrangement: ArrangeLine,
	}

	got := r.Expand()
	want := []Coordinate{
		{Lat: 0, Lng: 10},
		{Lat: 1, Lng: 12},
		{Lat: 2, Lng: 14},
	}
	if len(got) != len(want) {
		t.Fatalf("Expand() has %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expand()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSpatialRangeExpandSinglePointAxis(t *testing.T) {
	r := SpatialRange{
		Min:         Coordinate{Lat: 5, Lng: 0},
		Max:         Coordinate{Lat: 9, Lng: 100},
		LatCount:    2,
		LngCount:    1,
		Arrangement: ArrangeGrid,
	}

	got := r.Expand()
	want := []Coordinate{{Lat: 5, Lng: 0}, {Lat: 9, Lng: 0}}
	if len(got) != len(want) {
		t.Fatalf("Expand() has %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expand()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSpatialRangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		r       SpatialRange
		wantErr bool
	}{
		{
			name: "valid grid",
			r:    SpatialRange{LatCount: 2, LngCount: 3, Arrangement: ArrangeGrid},
		},
		{
			name: "valid line",
			r:    SpatialRange{LatCount: 4, LngCount: 4, Arrangement: ArrangeLine},
		},
		{
			name:    "line with unequal counts",
			r:       SpatialRange{LatCount: 4, LngCount: 3, Arrangement: ArrangeLine},
			wantErr: true,
		},
		{
			name:    "zero count",
			r:       SpatialRange{LatCount: 0, LngCount: 3, Arrangement: ArrangeGrid},
			wantErr: true,
		},
		{
			name:    "unknown arrangement",
			r:       SpatialRange{LatCount: 2, LngCount: 2, Arrangement: "spiral"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
