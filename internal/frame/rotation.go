package frame

import (
	"errors"
	"fmt"
	"math"
)

// Tolerances used when validating a rotation matrix.
const (
	DetTolerance        = 1e-4
	OrthogonalTolerance = 1e-6
)

// ErrImproperRotation is returned when a matrix is not a proper rotation.
var ErrImproperRotation = errors.New("matrix is not a proper rotation")

// Matrix is a row-major 3x3 matrix.
type Matrix [3][3]float64

// IdentityMatrix returns the 3x3 identity.
func IdentityMatrix() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Mul returns m·o.
func (m Matrix) Mul(o Matrix) Matrix {
	var r Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return r
}

// MulVec returns m·v.
func (m Matrix) MulVec(v Vec) Vec {
	return Vec{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// T returns the transpose.
func (m Matrix) T() Matrix {
	var r Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

func (m Matrix) Det() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Flat returns the matrix as nine row-major values.
func (m Matrix) Flat() []float64 {
	out := make([]float64, 0, 9)
	for _, row := range m {
		out = append(out, row[:]...)
	}
	return out
}

// checkProper verifies R·Rᵀ ≈ I and det(R) ≈ +1.
func checkProper(m Matrix) error {
	p := m.Mul(m.T())
	id := IdentityMatrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(p[i][j]-id[i][j]) > OrthogonalTolerance {
				return fmt.Errorf("%w: R·Rᵀ[%d][%d] = %g", ErrImproperRotation, i, j, p[i][j])
			}
		}
	}
	if d := m.Det(); math.Abs(d-1) > DetTolerance {
		return fmt.Errorf("%w: determinant %g", ErrImproperRotation, d)
	}
	return nil
}

// Rotation maps directions from frame From to frame To.
type Rotation[From, To Frame] struct {
	m Matrix
}

// NewRotation validates m and wraps it as a rotation from From to To.
func NewRotation[From, To Frame](m Matrix) (Rotation[From, To], error) {
	if err := checkProper(m); err != nil {
		return Rotation[From, To]{}, fmt.Errorf("%s -> %s: %w", Name[From](), Name[To](), err)
	}
	return Rotation[From, To]{m: m}, nil
}

// mustRotation is NewRotation for package-level constants.
func mustRotation[From, To Frame](m Matrix) Rotation[From, To] {
	r, err := NewRotation[From, To](m)
	if err != nil {
		panic(err)
	}
	return r
}

// Identity returns the identity rotation on frame F.
func Identity[F Frame]() Rotation[F, F] {
	return Rotation[F, F]{m: IdentityMatrix()}
}

// Matrix returns the underlying matrix.
func (r Rotation[From, To]) Matrix() Matrix { return r.m }

// Apply rotates d into frame To.
func (r Rotation[From, To]) Apply(d Direction[From]) Direction[To] {
	return Direction[To]{v: r.m.MulVec(d.v)}
}

// Inverse returns the rotation from To back to From.
func (r Rotation[From, To]) Inverse() Rotation[To, From] {
	return Rotation[To, From]{m: r.m.T()}
}

// Compose chains first then second. The resulting matrix is second·first.
func Compose[A, B, C Frame](first Rotation[A, B], second Rotation[B, C]) Rotation[A, C] {
	return Rotation[A, C]{m: second.m.Mul(first.m)}
}

// The catalog is equatorial; cameras want +x right, +y down and +z into the
// scene. This matrix re-axes the catalog so a camera placed at the catalog
// origin and orientation can be treated like any other camera.
var equatorialToCamera = mustRotation[Equatorial, CameraConvention](Matrix{
	{0, -1, 0},
	{0, 0, -1},
	{1, 0, 0},
})

// EquatorialToCamera returns the fixed catalog to camera-convention rotation.
func EquatorialToCamera() Rotation[Equatorial, CameraConvention] {
	return equatorialToCamera
}
