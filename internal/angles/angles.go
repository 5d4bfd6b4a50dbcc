// Package angles builds the pairwise angular-distance index over the catalog:
// every unordered star pair whose separation is within a maximum angle,
// sorted by that angle.
package angles

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/starrynight/startracker/internal/catalog"
	"github.com/starrynight/startracker/internal/frame"
)

var (
	// ErrInvalidCatalogGeometry is returned when two catalog positions give a
	// dot product that no pair of unit vectors can produce.
	ErrInvalidCatalogGeometry = errors.New("invalid catalog geometry")
	// ErrDuplicateStar is returned when two records share an identifier.
	ErrDuplicateStar = errors.New("duplicate star identifier")
)

// DotTolerance is how far outside [-1, 1] a dot product may fall before the
// catalog is rejected.
const DotTolerance = 1e-3

// Pair is one row of the index. Star1 < Star2 always holds.
type Pair struct {
	Star1 int       `json:"star1"`
	Star2 int       `json:"star2"`
	Angle float64   `json:"angle"`
	V1    frame.Vec `json:"v1"`
	V2    frame.Vec `json:"v2"`
}

// Angle returns the separation in radians of two catalog unit vectors.
func Angle(a, b frame.Vec) (float64, error) {
	dot := a.Dot(b)
	if math.IsNaN(dot) || dot < -1-DotTolerance || dot > 1+DotTolerance {
		return 0, fmt.Errorf("%w: dot product %g", ErrInvalidCatalogGeometry, dot)
	}
	return math.Acos(max(-1, min(1, dot))), nil
}

// Compare orders pairs by angle, then by identifiers.
func Compare(a, b Pair) int {
	return cmp.Or(
		cmp.Compare(a.Angle, b.Angle),
		cmp.Compare(a.Star1, b.Star1),
		cmp.Compare(a.Star2, b.Star2),
	)
}

// Options tunes Build.
type Options struct {
	// Workers is the number of goroutines sharing the outer loop. Values
	// below 1 mean 1.
	Workers int
	Logger  *slog.Logger
}

// Stats summarizes one Build call.
type Stats struct {
	Stars      int
	Candidates int
	Kept       int
	Workers    int
	Elapsed    time.Duration
}

type indexedStar struct {
	id  int
	vec frame.Vec
}

type rowResult struct {
	pairs []Pair
	err   error
}

// Build computes every pair with angle <= maxAngle. Positions are taken as
// stored (x/dist, y/dist, z/dist) so an inconsistent catalog surfaces as
// ErrInvalidCatalogGeometry. The result is identical for any worker count.
func Build(ctx context.Context, stars []catalog.Star, maxAngle float64, opts Options) ([]Pair, Stats, error) {
	start := time.Now()
	stats := Stats{Stars: len(stars), Workers: max(opts.Workers, 1)}
	if !(maxAngle >= 0) {
		return nil, stats, fmt.Errorf("max angle %g must be non-negative", maxAngle)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	sorted, err := prepare(stars)
	if err != nil {
		return nil, stats, err
	}
	n := len(sorted)
	stats.Candidates = n * (n - 1) / 2
	if n < 2 {
		stats.Elapsed = time.Since(start)
		return []Pair{}, stats, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rows := make(chan int, stats.Workers*2)
	results := make(chan rowResult, stats.Workers*2)

	var wg sync.WaitGroup
	for w := 0; w < stats.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rows {
				res := pairsForRow(sorted, i, maxAngle)
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(rows)
		for i := 0; i < n-1; i++ {
			select {
			case rows <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	pairs := make([]Pair, 0)
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				cancel()
			}
			continue
		}
		pairs = append(pairs, res.pairs...)
	}
	if firstErr != nil {
		return nil, stats, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	slices.SortFunc(pairs, Compare)
	stats.Kept = len(pairs)
	stats.Elapsed = time.Since(start)
	log.Info("Built angle index",
		"stars", stats.Stars,
		"candidates", stats.Candidates,
		"kept", stats.Kept,
		"workers", stats.Workers,
		"elapsed", stats.Elapsed,
	)
	return pairs, stats, nil
}

// prepare validates the records and sorts them by identifier.
func prepare(stars []catalog.Star) ([]indexedStar, error) {
	out := make([]indexedStar, 0, len(stars))
	for _, s := range stars {
		// Direction only validates here; the stored, unnormalized vector is used.
		if _, err := s.Direction(); err != nil {
			return nil, err
		}
		out = append(out, indexedStar{id: s.ID, vec: frame.Vec{s.X / s.Dist, s.Y / s.Dist, s.Z / s.Dist}})
	}
	slices.SortFunc(out, func(a, b indexedStar) int { return cmp.Compare(a.id, b.id) })
	for i := 1; i < len(out); i++ {
		if out[i].id == out[i-1].id {
			return nil, fmt.Errorf("%w: HR %d", ErrDuplicateStar, out[i].id)
		}
	}
	return out, nil
}

func pairsForRow(stars []indexedStar, i int, maxAngle float64) rowResult {
	a := stars[i]
	var pairs []Pair
	for _, b := range stars[i+1:] {
		angle, err := Angle(a.vec, b.vec)
		if err != nil {
			return rowResult{err: fmt.Errorf("HR %d and HR %d: %w", a.id, b.id, err)}
		}
		if angle <= maxAngle {
			pairs = append(pairs, Pair{Star1: a.id, Star2: b.id, Angle: angle, V1: a.vec, V2: b.vec})
		}
	}
	return rowResult{pairs: pairs}
}
