package scene

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/starrynight/startracker/internal/frame"
)

// Variant decides how a chosen star's camera-frame ray is turned into the ray
// that gets drawn. It is picked once per scene.
type Variant interface {
	Name() string
	// Perturb returns the ray to project and the angular deviation applied.
	Perturb(ray frame.Vec, rng *rand.Rand) (frame.Vec, float64, error)
}

// Variant names accepted by VariantByName.
const (
	VariantEasy  = "easy"
	VariantNoisy = "noisy"
)

// Easy draws every star exactly where it projects.
type Easy struct{}

func (Easy) Name() string { return VariantEasy }

func (Easy) Perturb(ray frame.Vec, _ *rand.Rand) (frame.Vec, float64, error) {
	return ray, 0, nil
}

// Noisy moves each star by a bounded random angle before projecting it.
type Noisy struct {
	MaxAngle float64 // radians, in [0, π/2)
}

func (Noisy) Name() string { return VariantNoisy }

// Perturb draws a random direction, keeps its component perpendicular to the
// ray and adds it scaled by tan(MaxAngle). The realized angle is
// atan(|perp|·tan(MaxAngle)), so it can approach but never pass the bound;
// the post hoc check guards the generator itself.
func (n Noisy) Perturb(ray frame.Vec, rng *rand.Rand) (frame.Vec, float64, error) {
	u, err := ray.Unit()
	if err != nil {
		return frame.Vec{}, 0, err
	}
	offset := frame.RandomUnit(rng)
	perp := offset.Sub(u.Scale(offset.Dot(u)))

	out, err := u.Add(perp.Scale(math.Tan(n.MaxAngle))).Unit()
	if err != nil {
		return frame.Vec{}, 0, err
	}
	realized := frame.AngleBetween(u, out)
	if realized > n.MaxAngle+1e-9 {
		return frame.Vec{}, 0, fmt.Errorf("%w: realized %g rad, bound %g rad", ErrNoiseBound, realized, n.MaxAngle)
	}
	return out, realized, nil
}

// VariantByName resolves a variant from its CLI/config name.
func VariantByName(name string, maxNoiseAngle float64) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case VariantEasy:
		return Easy{}, nil
	case VariantNoisy, "hard":
		if !(maxNoiseAngle >= 0 && maxNoiseAngle < math.Pi/2) {
			return nil, fmt.Errorf("noise bound %g rad out of range [0, π/2)", maxNoiseAngle)
		}
		return Noisy{MaxAngle: maxNoiseAngle}, nil
	default:
		return nil, fmt.Errorf("unknown scene variant %q", name)
	}
}
