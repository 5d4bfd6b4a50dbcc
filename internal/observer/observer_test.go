package observer

import (
	"math"
	"testing"
	"time"

	"github.com/soniakeys/unit"
	"github.com/starrynight/startracker/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJulianDate_J2000(t *testing.T) {
	epoch := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.InDelta(t, 2451545.0, JulianDate(epoch), 1e-9)
}

func TestGMST_J2000(t *testing.T) {
	epoch := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	// 280.46061837° at the epoch
	assert.InDelta(t, 280.46061837*math.Pi/180, GMST(epoch), 1e-6)
}

func TestLocalSiderealTime_Normalized(t *testing.T) {
	ts := time.Date(2024, 3, 20, 3, 0, 0, 0, time.UTC)
	for _, lon := range []float64{-3, -1, 0, 2, 6} {
		lst := LocalSiderealTime(ts, lon)
		assert.GreaterOrEqual(t, lst, 0.0)
		assert.Less(t, lst, 2*math.Pi)
	}
}

func TestObserver_ZenithAtPole(t *testing.T) {
	o := Observer{Latitude: unit.AngleFromDeg(90)}
	z := o.Zenith(time.Now())
	assert.InDelta(t, 1.0, z.Vec()[2], 1e-12)
}

func TestObserver_AttitudeLooksAtZenith(t *testing.T) {
	o := Observer{Longitude: unit.AngleFromDeg(-71.06), Latitude: unit.AngleFromDeg(42.36), Height: 20}
	ts := time.Date(2023, 7, 13, 4, 30, 0, 0, time.UTC)

	att, err := o.Attitude(ts, unit.AngleFromDeg(15))
	require.NoError(t, err)
	boresight := att.Apply(o.Zenith(ts)).Vec()
	assert.InDelta(t, 1.0, boresight[2], 1e-9)

	ra, dec := o.ZenithRADec(ts)
	assert.InDelta(t, 42.36, dec.Deg(), 1e-12)
	assert.InDelta(t, LocalSiderealTime(ts, o.Longitude.Rad()), ra.Rad(), 1e-12)
}

func TestObserver_ECEF(t *testing.T) {
	o := Observer{Latitude: unit.AngleFromDeg(45), Height: 100}
	pos, err := o.ECEF()
	require.NoError(t, err)
	assert.InDelta(t, 6367.5e3, pos.Norm(), 10e3)
	// geodetic zenith and geocentric position differ by the ellipsoid's vertical deflection
	zenith := frame.Vec{math.Cos(math.Pi / 4), 0, math.Sin(math.Pi / 4)}
	assert.Less(t, frame.AngleBetween(pos, zenith), 0.004)
	assert.Greater(t, frame.AngleBetween(pos, zenith), 0.002)
}
