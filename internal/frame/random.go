package frame

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// NewRand returns a generator seeded from seed and stream. Callers thread the
// returned handle explicitly; nothing in this module touches global rand state.
func NewRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// RandomRotation samples a rotation uniformly from SO(3): a 3x3 matrix of
// standard normals is QR-factored and the orthogonal factor is forced to
// determinant +1 by negating its last column when needed.
func RandomRotation[From, To Frame](rng *rand.Rand) Rotation[From, To] {
	data := make([]float64, 9)
	for i := range data {
		data[i] = rng.NormFloat64()
	}

	var qr mat.QR
	qr.Factorize(mat.NewDense(3, 3, data))
	var q mat.Dense
	qr.QTo(&q)

	if mat.Det(&q) < 0 {
		for i := 0; i < 3; i++ {
			q.Set(i, 2, -q.At(i, 2))
		}
	}

	var m Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = q.At(i, j)
		}
	}
	return Rotation[From, To]{m: m}
}

// RandomUnit returns a direction drawn uniformly from the unit sphere.
func RandomUnit(rng *rand.Rand) Vec {
	for {
		v := Vec{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		if u, err := v.Unit(); err == nil {
			return u
		}
	}
}
