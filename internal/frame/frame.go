// Package frame carries directions and rotations tagged with the reference
// frame they live in. The tag is a type parameter, so applying a rotation to a
// direction from the wrong frame is a compile error rather than a silent
// numeric bug.
package frame

import (
	"errors"
	"math"
)

// NormTolerance is the allowed deviation from unit length for a Direction.
const NormTolerance = 1e-4

// ErrZeroVector is returned when a zero-length vector is normalized.
var ErrZeroVector = errors.New("zero-length vector")

// Frame is implemented by the frame tag types below.
type Frame interface {
	frameName() string
}

// Equatorial is the catalog's celestial reference frame.
type Equatorial struct{}

// CameraConvention is the catalog frame re-axed to +x right, +y down, +z forward.
type CameraConvention struct{}

// Device is the frame of the (synthetic or mobile) camera taking the image.
type Device struct{}

func (Equatorial) frameName() string       { return "equatorial" }
func (CameraConvention) frameName() string { return "camera-convention" }
func (Device) frameName() string           { return "device" }

// Name returns the printable name of frame F.
func Name[F Frame]() string {
	var f F
	return f.frameName()
}

// Vec is a plain 3-vector with no frame attached.
type Vec [3]float64

func (v Vec) Dot(o Vec) float64 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

func (v Vec) Norm() float64 { return math.Sqrt(v.Dot(v)) }

func (v Vec) Scale(s float64) Vec { return Vec{v[0] * s, v[1] * s, v[2] * s} }

func (v Vec) Add(o Vec) Vec { return Vec{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

func (v Vec) Sub(o Vec) Vec { return Vec{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

func (v Vec) Cross(o Vec) Vec {
	return Vec{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Unit returns v scaled to length 1.
func (v Vec) Unit() (Vec, error) {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Vec{}, ErrZeroVector
	}
	return v.Scale(1 / n), nil
}

// AngleBetween returns the angle in radians between two vectors of any length.
// The cosine is clamped so rounding can never push acos out of its domain.
func AngleBetween(a, b Vec) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	c := a.Dot(b) / (na * nb)
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// Direction is a unit vector in frame F.
type Direction[F Frame] struct {
	v Vec
}

// NewDirection normalizes v and tags it with frame F.
func NewDirection[F Frame](v Vec) (Direction[F], error) {
	u, err := v.Unit()
	if err != nil {
		return Direction[F]{}, err
	}
	return Direction[F]{v: u}, nil
}

// Vec returns the underlying unit vector.
func (d Direction[F]) Vec() Vec { return d.v }

// FrameName returns the name of the frame d is expressed in.
func (d Direction[F]) FrameName() string { return Name[F]() }

// Angle returns the angular separation to o in radians.
func (d Direction[F]) Angle(o Direction[F]) float64 {
	return AngleBetween(d.v, o.v)
}
