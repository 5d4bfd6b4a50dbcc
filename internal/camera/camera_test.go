package camera

import (
	"math"
	"testing"

	"github.com/starrynight/startracker/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(t *testing.T) frame.Rotation[frame.Device, frame.Device] {
	t.Helper()
	return frame.Identity[frame.Device]()
}

func dir(t *testing.T, x, y, z float64) frame.Direction[frame.Device] {
	t.Helper()
	d, err := frame.NewDirection[frame.Device](frame.Vec{x, y, z})
	require.NoError(t, err)
	return d
}

func reference(t *testing.T) Intrinsics {
	t.Helper()
	k, err := NewIntrinsics(600, 960, 540)
	require.NoError(t, err)
	return k
}

func TestNewIntrinsics_PrincipalPoint(t *testing.T) {
	k := reference(t)
	assert.Equal(t, 480.0, k.PrincipalX)
	assert.Equal(t, 270.0, k.PrincipalY)

	odd, err := NewIntrinsics(600, 485, 969)
	require.NoError(t, err)
	assert.Equal(t, 242.0, odd.PrincipalX)
	assert.Equal(t, 484.0, odd.PrincipalY)
}

func TestNewIntrinsics_Invalid(t *testing.T) {
	cases := []struct {
		name string
		f    float64
		w, h int
	}{
		{"zero focal", 0, 960, 540},
		{"negative focal", -1, 960, 540},
		{"nan focal", math.NaN(), 960, 540},
		{"inf focal", math.Inf(1), 960, 540},
		{"zero width", 600, 0, 540},
		{"negative height", 600, 960, -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewIntrinsics(tc.f, tc.w, tc.h)
			assert.ErrorIs(t, err, ErrInvalidIntrinsics)
		})
	}
}

func TestIntrinsicsFromFOV(t *testing.T) {
	vfov := 2 * math.Atan(270.0/600.0)
	k, err := IntrinsicsFromFOV(vfov, 540, 540.0/960.0)
	require.NoError(t, err)
	assert.Equal(t, 600.0, k.FocalLength)
	assert.Equal(t, 960, k.Width)
	assert.Equal(t, 540, k.Height)
	assert.InDelta(t, vfov, k.VerticalFOV(), 1e-12)
}

func TestIntrinsicsFromFOV_Invalid(t *testing.T) {
	_, err := IntrinsicsFromFOV(0, 540, 0.5)
	assert.ErrorIs(t, err, ErrInvalidIntrinsics)
	_, err = IntrinsicsFromFOV(math.Pi, 540, 0.5)
	assert.ErrorIs(t, err, ErrInvalidIntrinsics)
	_, err = IntrinsicsFromFOV(1, 540, 0)
	assert.ErrorIs(t, err, ErrInvalidIntrinsics)
	_, err = IntrinsicsFromFOV(1, 0, 0.5)
	assert.ErrorIs(t, err, ErrInvalidIntrinsics)
}

func TestProject_CenterStar(t *testing.T) {
	k := reference(t)
	u, v, err := Project(dir(t, 0, 0, 1), identity(t), k)
	require.NoError(t, err)
	assert.Equal(t, 480, u)
	assert.Equal(t, 270, v)
}

func TestIsVisible_CenterStarTolerance(t *testing.T) {
	k := reference(t)
	center := dir(t, 0, 0, 1)

	// half extents are 0.8 horizontally and 0.45 vertically, the tighter
	// axis bounds the usable tolerance
	assert.True(t, IsVisible(center, identity(t), k, 0))
	assert.True(t, IsVisible(center, identity(t), k, 0.02))
	assert.True(t, IsVisible(center, identity(t), k, 0.449))
	assert.False(t, IsVisible(center, identity(t), k, 0.45))
	assert.False(t, IsVisible(center, identity(t), k, 0.79))
}

func TestIsVisible_Margins(t *testing.T) {
	k := reference(t)
	r := identity(t)
	assert.True(t, IsVisible(dir(t, 0.77, 0, 1), r, k, 0.02))
	assert.False(t, IsVisible(dir(t, 0.79, 0, 1), r, k, 0.02))
	assert.True(t, IsVisible(dir(t, 0, -0.42, 1), r, k, 0.02))
	assert.False(t, IsVisible(dir(t, 0, -0.44, 1), r, k, 0.02))
}

func TestIsVisible_NeverBehindCamera(t *testing.T) {
	k := reference(t)
	rng := frame.NewRand(5, 5)
	for i := 0; i < 2000; i++ {
		r := frame.RandomRotation[frame.Device, frame.Device](rng)
		d := dir(t, rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		if r.Apply(d).Vec()[2] < 0 {
			assert.False(t, IsVisible(d, r, k, 0))
			assert.False(t, IsVisible(d, r, k, -10))
		}
	}
}

func TestIsVisible_DegenerateImagePlane(t *testing.T) {
	k := reference(t)
	assert.False(t, IsVisible(dir(t, 1, 0, 0), identity(t), k, -100))
	_, _, err := Project(dir(t, 1, 0, 0), identity(t), k)
	assert.ErrorIs(t, err, ErrBehindCamera)
}

func TestProject_UnprojectCollinear(t *testing.T) {
	k := reference(t)
	rng := frame.NewRand(9, 9)
	for i := 0; i < 1000; i++ {
		x := (rng.Float64()*2 - 1) * 0.8
		y := (rng.Float64()*2 - 1) * 0.45
		d := dir(t, x, y, 1)

		u, v, err := Project(d, identity(t), k)
		require.NoError(t, err)
		back := Unproject(float64(u), float64(v), k)

		// pixel rounding moves the ray by at most half a pixel per axis
		maxErr := math.Hypot(0.5, 0.5) / k.FocalLength
		assert.Less(t, d.Angle(back), maxErr)
	}
}

func TestProject_UnprojectExactWithoutRounding(t *testing.T) {
	k := reference(t)
	d := dir(t, 0.25, -0.1, 1)
	u, v := k.FocalLength*0.25+k.PrincipalX, k.FocalLength*-0.1+k.PrincipalY
	back := Unproject(u, v, k)
	assert.InDelta(t, 1.0, d.Vec().Dot(back.Vec()), 1e-12)
}

func TestFOVHelpers(t *testing.T) {
	k := reference(t)
	hx, hy := k.HalfExtent()
	assert.InDelta(t, 0.8, hx, 1e-12)
	assert.InDelta(t, 0.45, hy, 1e-12)
	assert.InDelta(t, 2*math.Atan(math.Hypot(0.8, 0.45)), k.DiagonalFOV(), 1e-12)
}
