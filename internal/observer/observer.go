// Package observer points the camera from a place on Earth: a ground
// observer's zenith at a given time becomes the boresight of the scene.
package observer

import (
	"math"
	"time"

	"github.com/soniakeys/unit"
	"github.com/starrynight/startracker/internal/frame"
	"github.com/starrynight/startracker/internal/geo"
)

// Observer is a WGS84 ground location.
type Observer struct {
	Longitude unit.Angle // east positive
	Latitude  unit.Angle // geodetic
	Height    float64    // metres above the ellipsoid
}

// ECEF returns the observer position in metres.
func (o Observer) ECEF() (frame.Vec, error) {
	x, y, z, err := geo.GeodeticToECEF(o.Longitude.Deg(), o.Latitude.Deg(), o.Height)
	if err != nil {
		return frame.Vec{}, err
	}
	return frame.Vec{x, y, z}, nil
}

// ZenithRADec returns the equatorial coordinates of the local zenith at t:
// right ascension is the local sidereal time and declination the geodetic
// latitude. Precession and nutation are ignored.
func (o Observer) ZenithRADec(t time.Time) (ra, dec unit.Angle) {
	return unit.Angle(LocalSiderealTime(t, o.Longitude.Rad())), o.Latitude
}

// Zenith returns the zenith direction in the catalog frame.
func (o Observer) Zenith(t time.Time) frame.Direction[frame.Equatorial] {
	ra, dec := o.ZenithRADec(t)
	cd := math.Cos(dec.Rad())
	d, _ := frame.NewDirection[frame.Equatorial](frame.Vec{
		cd * math.Cos(ra.Rad()),
		cd * math.Sin(ra.Rad()),
		math.Sin(dec.Rad()),
	})
	return d
}

// Attitude returns the camera attitude looking straight up at t with the
// given roll about the boresight.
func (o Observer) Attitude(t time.Time, roll unit.Angle) (frame.Rotation[frame.Equatorial, frame.Device], error) {
	ra, dec := o.ZenithRADec(t)
	return frame.FromBoresight(ra, dec, roll)
}
