// Package geo provides the small amount of spatial math the miner needs:
// encoded polyline decoding, interpolation along a polyline, and
// point-to-segment distances. All distances are cartesian approximations in
// degrees; for the short spans involved that is accurate enough to filter
// station candidates.
package geo

import (
	"fmt"

	"github.com/transitlab/route-miner/pkg/query"
)

// DecodePolyline decodes a Google encoded polyline string into coordinates.
func DecodePolyline(encoded string) ([]query.Coordinate, error) {
	var points []query.Coordinate
	var lat, lng int64
	i := 0

	for i < len(encoded) {
		dlat, n, err := decodeValue(encoded[i:])
		if err != nil {
			return nil, fmt.Errorf("polyline offset %d: %w", i, err)
		}
		i += n
		lat += dlat

		dlng, n, err := decodeValue(encoded[i:])
		if err != nil {
			return nil, fmt.Errorf("polyline offset %d: %w", i, err)
		}
		i += n
		lng += dlng

		points = append(points, query.Coordinate{
			Lat: float64(lat) / 1e5,
			Lng: float64(lng) / 1e5,
		})
	}
	return points, nil
}

// decodeValue decodes one zigzag varint chunk, returning the delta and the
// number of bytes consumed.
func decodeValue(s string) (int64, int, error) {
	var result int64
	var shift uint
	for i := 0; i < len(s); i++ {
		b := int64(s[i]) - 63
		if b < 0 {
			return 0, 0, fmt.Errorf("invalid polyline character %q", s[i])
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), i + 1, nil
			}
			return result >> 1, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("truncated polyline value")
}
