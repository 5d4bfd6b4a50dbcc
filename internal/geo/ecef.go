package geo

import (
	"fmt"
	"math"

	"github.com/wroge/wgs84"
)

// EPSG codes used for observer positions.
const (
	epsgLonLat = 4326
	epsgECEF   = 4978
)

// GeodeticToECEF converts a WGS84 longitude/latitude (degrees) and ellipsoidal
// height (metres) into Earth-centred Earth-fixed coordinates in metres.
func GeodeticToECEF(longitude, latitude, height float64) (x, y, z float64, err error) {
	if latitude < -90 || latitude > 90 {
		return 0, 0, 0, fmt.Errorf("%w: latitude %g", ErrInvalidCoordinates, latitude)
	}
	f := wgs84.EPSG().Transform(epsgLonLat, epsgECEF)
	x, y, z = f(longitude, latitude, height)
	// unknown codes come back as NaN
	if math.IsNaN(x) || math.IsNaN(y) || math.IsNaN(z) {
		return 0, 0, 0, fmt.Errorf("%w: %g,%g", ErrInvalidCoordinates, longitude, latitude)
	}
	return x, y, z, nil
}
