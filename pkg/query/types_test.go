package query

import (
	"testing"
	"time"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Coordinate
		wantErr bool
	}{
		{
			name:  "plain pair",
			input: "40.7;-74.0",
			want:  Coordinate{Lat: 40.7, Lng: -74.0},
		},
		{
			name:  "whitespace around parts",
			input: " 40.7 ; -74.0 ",
			want:  Coordinate{Lat: 40.7, Lng: -74.0},
		},
		{
			name:    "missing separator",
			input:   "40.7,-74.0",
			wantErr: true,
		},
		{
			name:    "non-numeric latitude",
			input:   "north;-74.0",
			wantErr: true,
		},
		{
			name:    "too many parts",
			input:   "40.7;-74.0;12",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCoordinate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseCoordinate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCoord bool
		wantErr   bool
	}{
		{
			name:      "coordinate cell",
			input:     "40.7;-74.0",
			wantCoord: true,
		},
		{
			name:  "address cell with commas",
			input: "1600 Pennsylvania Ave NW, Washington, DC",
		},
		{
			name:    "semicolon but not a coordinate",
			input:   "Main St; Springfield",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocation(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLocation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if (got.Coord != nil) != tt.wantCoord {
				t.Errorf("ParseLocation(%q) coord = %v, wantCoord %v", tt.input, got.Coord, tt.wantCoord)
			}
			if got.String() == "" {
				t.Errorf("ParseLocation(%q).String() is empty", tt.input)
			}
		})
	}
}

func TestSpecValidate(t *testing.T) {
	depart := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	arrive := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
	base := Spec{
		Origin:      Location{Address: "A"},
		Destination: Location{Address: "B"},
		Mode:        ModeDriving,
	}

	tests := []struct {
		name    string
		modify  func(s *Spec)
		wantErr bool
	}{
		{
			name:   "minimal valid spec",
			modify: func(s *Spec) {},
		},
		{
			name:    "missing origin",
			modify:  func(s *Spec) { s.Origin = Location{} },
			wantErr: true,
		},
		{
			name:    "missing destination",
			modify:  func(s *Spec) { s.Destination = Location{} },
			wantErr: true,
		},
		{
			name:    "unknown mode",
			modify:  func(s *Spec) { s.Mode = "teleport" },
			wantErr: true,
		},
		{
			name: "departure and arrival together",
			modify: func(s *Spec) {
				s.DepartureTime = &depart
				s.ArrivalTime = &arrive
			},
			wantErr: true,
		},
		{
			name: "depart now and arrival together",
			modify: func(s *Spec) {
				s.DepartNow = true
				s.ArrivalTime = &arrive
			},
			wantErr: true,
		},
		{
			name:   "arrival alone",
			modify: func(s *Spec) { s.ArrivalTime = &arrive },
		},
		{
			name: "transit mode on non-transit trip",
			modify: func(s *Spec) {
				s.TransitMode = "rail"
			},
			wantErr: true,
		},
		{
			name: "transit mode on transit trip",
			modify: func(s *Spec) {
				s.Mode = ModeTransit
				s.TransitMode = "rail"
			},
		},
		{
			name: "transit routing preference on non-transit trip",
			modify: func(s *Spec) {
				s.TransitRoutingPreference = "fewer_transfers"
			},
			wantErr: true,
		},
		{
			name: "traffic model without departure",
			modify: func(s *Spec) {
				s.TrafficModel = "pessimistic"
			},
			wantErr: true,
		},
		{
			name: "traffic model with departure",
			modify: func(s *Spec) {
				s.TrafficModel = "pessimistic"
				s.DepartureTime = &depart
			},
		},
		{
			name: "traffic model on walking trip",
			modify: func(s *Spec) {
				s.Mode = ModeWalking
				s.TrafficModel = "pessimistic"
				s.DepartureTime = &depart
			},
			wantErr: true,
		},
		{
			name:    "unknown split leg",
			modify:  func(s *Spec) { s.SplitOnLeg = "middle" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := base
			tt.modify(&spec)
			err := spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpecColumns(t *testing.T) {
	depart := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	spec := Spec{
		Origin:        Location{Coord: &Coordinate{Lat: 40.7, Lng: -74.0}},
		Destination:   Location{Address: "B"},
		Mode:          ModeDriving,
		DepartureTime: &depart,
		TrafficModel:  "best_guess",
	}

	cols := spec.Columns()
	want := map[string]string{
		"origin":         "40.7;-74",
		"destination":    "B",
		"mode":           "driving",
		"departure_time": "2026-03-01T09:00:00Z",
		"traffic_model":  "best_guess",
	}
	if len(cols) != len(want) {
		t.Fatalf("Columns() has %d entries, want %d: %v", len(cols), len(want), cols)
	}
	for name, value := range want {
		if cols[name] != value {
			t.Errorf("Columns()[%q] = %q, want %q", name, cols[name], value)
		}
	}
}

func TestSpecColumnsDepartNow(t *testing.T) {
	spec := Spec{
		Origin:      Location{Address: "A"},
		Destination: Location{Address: "B"},
		Mode:        ModeTransit,
		DepartNow:   true,
	}
	if got := spec.Columns()["departure_time"]; got != "now" {
		t.Errorf("Columns()[departure_time] = %q, want \"now\"", got)
	}
}
