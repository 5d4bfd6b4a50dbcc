package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
)

// PIXEL POINTS
// Pixel locations are stored as 2D points in image coordinates (u right, v down).
// SQLite has no spatial awareness, so the column holds WKB and is decoded with the
// geometry's own Scan function.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PixelPoint creates a point for pixel column u, row v
func PixelPoint(u, v int) (geom.Point, error) {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: float64(u), Y: float64(v)},
		Type: geom.DimXY,
	})
}

// PixelFromPoint returns the integer pixel a point refers to. ok is false for
// empty points and points that are not on whole pixels.
func PixelFromPoint(p geom.Point) (u, v int, ok bool) {
	xy, ok := p.XY()
	if !ok {
		return 0, 0, false
	}
	if xy.X != math.Trunc(xy.X) || xy.Y != math.Trunc(xy.Y) {
		return 0, 0, false
	}
	return int(xy.X), int(xy.Y), true
}

// PixelFromString parses a string in the format "u,v" into a point with
// fractional coordinates allowed
func PixelFromString(coords string) (geom.Point, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	u, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	p, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: u, Y: v}, Type: geom.DimXY})
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	return p, nil
}
