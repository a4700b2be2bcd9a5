package query

import (
	"fmt"
	"time"
)

// Arrangement selects how a two-axis spatial range expands.
type Arrangement string

const (
	// ArrangeLine pairs the interpolated axis values index-wise, producing a
	// diagonal of N points.
	ArrangeLine Arrangement = "line"

	// ArrangeGrid takes the full cross product of the interpolated axis
	// values, producing latN x longN points.
	ArrangeGrid Arrangement = "grid"
)

// TimeRange declares a linear time expansion: min, min+delta, ... up to and
// including the last value <= max. The final step never overshoots max; when
// max-min is not a whole multiple of delta the last point is simply < max.
type TimeRange struct {
	Min   time.Time
	Max   time.Time
	Delta time.Duration
}

// Validate checks the range invariants.
func (r TimeRange) Validate() error {
	if r.Delta <= 0 {
		return fmt.Errorf("time range delta must be positive, got %s", r.Delta)
	}
	if !r.Max.After(r.Min) {
		return fmt.Errorf("time range max %s is not after min %s",
			r.Max.Format(TimeColumnLayout), r.Min.Format(TimeColumnLayout))
	}
	return nil
}

// Expand generates the value sequence in ascending order.
// len(Expand()) == floor((max-min)/delta) + 1.
func (r TimeRange) Expand() []time.Time {
	n := int(r.Max.Sub(r.Min)/r.Delta) + 1
	values := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		values = append(values, r.Min.Add(time.Duration(i)*r.Delta))
	}
	return values
}

// SpatialRange declares a two-axis coordinate expansion between Min and Max
// with a per-axis point count and an arrangement.
type SpatialRange struct {
	Min         Coordinate
	Max         Coordinate
	LatCount    int
	LngCount    int
	Arrangement Arrangement
}

// Validate checks the range invariants. Line arrangements pair axis values
// index-wise and therefore need equal counts on both axes.
func (r SpatialRange) Validate() error {
	if r.LatCount <= 0 || r.LngCount <= 0 {
		return fmt.Errorf("spatial range counts must be positive, got %d;%d", r.LatCount, r.LngCount)
	}
	switch r.Arrangement {
	case ArrangeLine:
		if r.LatCount != r.LngCount {
			return fmt.Errorf("line arrangement needs equal axis counts, got %d;%d", r.LatCount, r.LngCount)
		}
	case ArrangeGrid:
	default:
		return fmt.Errorf("arrangement %q: use %q or %q", r.Arrangement, ArrangeLine, ArrangeGrid)
	}
	return nil
}

// Expand generates the coordinate sequence: N index-paired points for line,
// latN x longN cross-product points (lat-major) for grid. Each axis is
// linearly interpolated between min and max inclusive.
func (r SpatialRange) Expand() []Coordinate {
	lats := interpolateAxis(r.Min.Lat, r.Max.Lat, r.LatCount)
	lngs := interpolateAxis(r.Min.Lng, r.Max.Lng, r.LngCount)

	if r.Arrangement == ArrangeLine {
		points := make([]Coordinate, 0, len(lats))
		for i := range lats {
			points = append(points, Coordinate{Lat: lats[i], Lng: lngs[i]})
		}
		return points
	}

	points := make([]Coordinate, 0, len(lats)*len(lngs))
	for _, lat := range lats {
		for _, lng := range lngs {
			points = append(points, Coordinate{Lat: lat, Lng: lng})
		}
	}
	return points
}

// interpolateAxis produces n evenly spaced values from min to max inclusive.
// A single-point axis collapses to min.
func interpolateAxis(min, max float64, n int) []float64 {
	if n == 1 {
		return []float64{min}
	}
	step := (max - min) / float64(n-1)
	values := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		values = append(values, min+float64(i)*step)
	}
	return values
}
