package frame

import (
	"math"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/num/quat"
)

// FromEulerXYZ builds the extrinsic x-y-z rotation Rz(z)·Ry(y)·Rx(x).
func FromEulerXYZ[From, To Frame](x, y, z unit.Angle) Rotation[From, To] {
	sx, cx := math.Sincos(x.Rad())
	sy, cy := math.Sincos(y.Rad())
	sz, cz := math.Sincos(z.Rad())

	rx := Matrix{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
	ry := Matrix{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	rz := Matrix{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}
	return Rotation[From, To]{m: rz.Mul(ry).Mul(rx)}
}

// CameraAttitude re-expresses an attitude given in catalog axes in the camera
// convention: C·A·Cᵀ, with C the fixed catalog to camera-convention matrix.
func CameraAttitude(catalogAttitude Matrix) (Rotation[CameraConvention, Device], error) {
	c := equatorialToCamera.m
	return NewRotation[CameraConvention, Device](c.Mul(catalogAttitude).Mul(c.T()))
}

// FromBoresight returns the rotation that points the device +z axis at the
// given right ascension and declination, with celestial north up in the image
// when roll is zero. Roll turns the image clockwise about the boresight.
func FromBoresight(ra, dec, roll unit.Angle) (Rotation[Equatorial, Device], error) {
	b := Vec{dec.Cos() * ra.Cos(), dec.Cos() * ra.Sin(), dec.Sin()}

	east := Vec{0, 0, 1}.Cross(b)
	if east.Norm() < 1e-9 {
		// boresight on a celestial pole, any east will do
		east = Vec{0, 1, 0}
	}
	east, err := east.Unit()
	if err != nil {
		return Rotation[Equatorial, Device]{}, err
	}
	north := b.Cross(east)

	right := east.Scale(-1)
	down := north.Scale(-1)

	sr, cr := math.Sincos(roll.Rad())
	x := right.Scale(cr).Add(down.Scale(sr))
	y := down.Scale(cr).Sub(right.Scale(sr))

	return NewRotation[Equatorial, Device](Matrix{x, y, b})
}

// Quaternion returns the scalar-first unit quaternion of r with a
// non-negative scalar part.
func (r Rotation[From, To]) Quaternion() quat.Number {
	m := r.m
	var q quat.Number
	switch tr := m[0][0] + m[1][1] + m[2][2]; {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{Real: s / 4, Imag: (m[2][1] - m[1][2]) / s, Jmag: (m[0][2] - m[2][0]) / s, Kmag: (m[1][0] - m[0][1]) / s}
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := math.Sqrt(1+m[0][0]-m[1][1]-m[2][2]) * 2
		q = quat.Number{Real: (m[2][1] - m[1][2]) / s, Imag: s / 4, Jmag: (m[0][1] + m[1][0]) / s, Kmag: (m[0][2] + m[2][0]) / s}
	case m[1][1] > m[2][2]:
		s := math.Sqrt(1+m[1][1]-m[0][0]-m[2][2]) * 2
		q = quat.Number{Real: (m[0][2] - m[2][0]) / s, Imag: (m[0][1] + m[1][0]) / s, Jmag: s / 4, Kmag: (m[1][2] + m[2][1]) / s}
	default:
		s := math.Sqrt(1+m[2][2]-m[0][0]-m[1][1]) * 2
		q = quat.Number{Real: (m[1][0] - m[0][1]) / s, Imag: (m[0][2] + m[2][0]) / s, Jmag: (m[1][2] + m[2][1]) / s, Kmag: s / 4}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return q
}

// FromQuaternion builds a rotation from a (not necessarily unit) quaternion.
func FromQuaternion[From, To Frame](q quat.Number) (Rotation[From, To], error) {
	n := quat.Abs(q)
	if n == 0 {
		return Rotation[From, To]{}, ErrZeroVector
	}
	q = quat.Scale(1/n, q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return NewRotation[From, To](Matrix{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	})
}
