package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ParsePixels parses a JSON array of pixel coordinates into points.
// Input format: "[[u1,v1],[u2,v2],...]"
func ParsePixels(input string) ([]geom.Point, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse pixel list JSON: %w", err)
	}

	points := make([]geom.Point, len(coords))
	for i, coord := range coords {
		if len(coord) != 2 {
			return nil, fmt.Errorf("coordinate %d has %d values, want 2", i, len(coord))
		}
		p, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: coord[0], Y: coord[1]}, Type: geom.DimXY})
		if err != nil {
			return nil, fmt.Errorf("coordinate %d: %w", i, err)
		}
		points[i] = p
	}
	return points, nil
}

// PixelTriad parses exactly three pixel coordinates, as used by triad matching.
func PixelTriad(input string) ([3][2]float64, error) {
	var out [3][2]float64
	points, err := ParsePixels(input)
	if err != nil {
		return out, err
	}
	if len(points) != 3 {
		return out, fmt.Errorf("need 3 pixels, got %d", len(points))
	}
	for i, p := range points {
		xy, _ := p.XY()
		out[i] = [2]float64{xy.X, xy.Y}
	}
	return out, nil
}
