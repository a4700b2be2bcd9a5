package geo

import (
	"math"

	"github.com/transitlab/route-miner/pkg/query"
)

// StationFractions returns the fractional positions along a transit leg at
// which intermediate stations are expected when the leg has n stops:
// 1/n, 2/n, ... (n-1)/n. Endpoints are handled by the caller.
func StationFractions(n int) []float64 {
	if n < 2 {
		return nil
	}
	fracs := make([]float64, 0, n-1)
	for j := 1; j < n; j++ {
		fracs = append(fracs, float64(j)/float64(n))
	}
	return fracs
}

// InterpolateAlong returns, for each fraction in [0,1], the point that far
// along the polyline's cumulative cartesian length.
func InterpolateAlong(line []query.Coordinate, fracs []float64) []query.Coordinate {
	if len(line) < 2 || len(fracs) == 0 {
		return nil
	}

	segLengths := make([]float64, len(line)-1)
	total := 0.0
	for i := 0; i < len(line)-1; i++ {
		segLengths[i] = distance(line[i], line[i+1])
		total += segLengths[i]
	}
	if total == 0 {
		points := make([]query.Coordinate, len(fracs))
		for i := range points {
			points[i] = line[0]
		}
		return points
	}

	points := make([]query.Coordinate, 0, len(fracs))
	for _, frac := range fracs {
		target := clamp(frac, 0, 1) * total
		walked := 0.0
		point := line[len(line)-1]
		for i, segLen := range segLengths {
			if walked+segLen >= target {
				t := 0.0
				if segLen > 0 {
					t = (target - walked) / segLen
				}
				point = query.Coordinate{
					Lat: line[i].Lat + t*(line[i+1].Lat-line[i].Lat),
					Lng: line[i].Lng + t*(line[i+1].Lng-line[i].Lng),
				}
				break
			}
			walked += segLen
		}
		points = append(points, point)
	}
	return points
}

// DistToPolyline returns the minimum cartesian distance (in degrees) from p
// to any segment of the polyline.
func DistToPolyline(p query.Coordinate, line []query.Coordinate) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	if len(line) == 1 {
		return distance(p, line[0])
	}
	min := math.Inf(1)
	for i := 0; i < len(line)-1; i++ {
		if d := DistToSegment(p, line[i], line[i+1]); d < min {
			min = d
		}
	}
	return min
}

// DistToSegment returns the cartesian distance from p to the segment ab.
func DistToSegment(p, a, b query.Coordinate) float64 {
	abLat := b.Lat - a.Lat
	abLng := b.Lng - a.Lng
	lenSq := abLat*abLat + abLng*abLng
	if lenSq == 0 {
		return distance(p, a)
	}
	t := clamp(((p.Lat-a.Lat)*abLat+(p.Lng-a.Lng)*abLng)/lenSq, 0, 1)
	nearest := query.Coordinate{Lat: a.Lat + t*abLat, Lng: a.Lng + t*abLng}
	return distance(p, nearest)
}

// DegreesToMiles converts a short cartesian lat/long distance to an
// approximate mileage. For the station-filter distances involved the factor
// of 55 tracks the haversine result closely.
const DegreesToMiles = 55.0

func distance(a, b query.Coordinate) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
