// Package identify matches three observed star directions against the
// angular-distance index.
package identify

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/starrynight/startracker/internal/angles"
	"github.com/starrynight/startracker/internal/camera"
	"github.com/starrynight/startracker/internal/frame"
)

// ErrInvalidTolerance is returned for a non-positive tolerance.
var ErrInvalidTolerance = errors.New("tolerance must be positive")

// PairSource looks up index rows by angle. It is implemented by
// angles.KVector and by the storage backends.
type PairSource interface {
	PairsInRange(ctx context.Context, lo, hi float64) ([]angles.Pair, error)
}

// Match assigns catalog stars to the three observed directions, in order.
type Match struct {
	Star1 int `json:"star1"`
	Star2 int `json:"star2"`
	Star3 int `json:"star3"`
}

type edge struct{ a, b int }

func key(a, b int) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// ObservedAngles returns the separations ray0-ray1, ray0-ray2, ray1-ray2.
func ObservedAngles(rays [3]frame.Vec) [3]float64 {
	return [3]float64{
		frame.AngleBetween(rays[0], rays[1]),
		frame.AngleBetween(rays[0], rays[2]),
		frame.AngleBetween(rays[1], rays[2]),
	}
}

// RaysFromPixels unprojects three pixel locations into device-frame rays.
func RaysFromPixels(pixels [3][2]float64, k camera.Intrinsics) [3]frame.Vec {
	var rays [3]frame.Vec
	for i, p := range pixels {
		rays[i] = camera.Unproject(p[0], p[1], k).Vec()
	}
	return rays
}

// MatchTriad returns every assignment whose three catalog separations each
// lie within tolerance/2 of the observed ones. Assignments whose handedness
// disagrees with the observation are dropped. Results are sorted.
func MatchTriad(ctx context.Context, src PairSource, rays [3]frame.Vec, tolerance float64) ([]Match, error) {
	if !(tolerance > 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidTolerance, tolerance)
	}
	observed := ObservedAngles(rays)

	positions := map[int]frame.Vec{}
	var sets [3]map[edge]bool
	neighbours := map[int][]int{}
	for i, theta := range observed {
		pairs, err := src.PairsInRange(ctx, theta-tolerance/2, theta+tolerance/2)
		if err != nil {
			return nil, fmt.Errorf("looking up %g rad: %w", theta, err)
		}
		sets[i] = make(map[edge]bool, len(pairs))
		for _, p := range pairs {
			sets[i][key(p.Star1, p.Star2)] = true
			positions[p.Star1] = p.V1
			positions[p.Star2] = p.V2
			if i == 1 {
				neighbours[p.Star1] = append(neighbours[p.Star1], p.Star2)
				neighbours[p.Star2] = append(neighbours[p.Star2], p.Star1)
			}
		}
	}

	handedness := triple(rays[0], rays[1], rays[2])
	seen := map[Match]bool{}
	var matches []Match
	for e := range sets[0] {
		for _, o := range [2][2]int{{e.a, e.b}, {e.b, e.a}} {
			s1, s2 := o[0], o[1]
			for _, s3 := range neighbours[s1] {
				if s3 == s2 || !sets[2][key(s2, s3)] {
					continue
				}
				m := Match{Star1: s1, Star2: s2, Star3: s3}
				if seen[m] {
					continue
				}
				if triple(positions[s1], positions[s2], positions[s3])*handedness < 0 {
					continue
				}
				seen[m] = true
				matches = append(matches, m)
			}
		}
	}

	slices.SortFunc(matches, func(a, b Match) int {
		return cmp.Or(cmp.Compare(a.Star1, b.Star1), cmp.Compare(a.Star2, b.Star2), cmp.Compare(a.Star3, b.Star3))
	})
	return matches, nil
}

func triple(a, b, c frame.Vec) float64 {
	return a.Dot(b.Cross(c))
}
