package angles

import (
	"context"
	"math"
	"testing"

	"github.com/starrynight/startracker/internal/catalog"
	"github.com/starrynight/startracker/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomCatalog(n int, seed uint64) []catalog.Star {
	rng := frame.NewRand(seed, 0)
	stars := make([]catalog.Star, n)
	for i := range stars {
		v := frame.RandomUnit(rng)
		dist := 1 + 100*rng.Float64()
		// ids descending so Build has to sort
		stars[i] = catalog.Star{ID: 10 * (n - i), X: v[0] * dist, Y: v[1] * dist, Z: v[2] * dist, Dist: dist}
	}
	return stars
}

func TestBuild_OrthogonalStars(t *testing.T) {
	stars := []catalog.Star{
		{ID: 1, X: 1, Dist: 1},
		{ID: 2, Y: 1, Dist: 1},
		{ID: 3, Z: 1, Dist: 1},
	}
	pairs, stats, err := Build(context.Background(), stars, math.Pi/2+0.01, Options{})
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	for _, p := range pairs {
		assert.InDelta(t, 1.5708, p.Angle, 1e-4)
	}
	assert.Equal(t, [2]int{1, 2}, [2]int{pairs[0].Star1, pairs[0].Star2})
	assert.Equal(t, [2]int{1, 3}, [2]int{pairs[1].Star1, pairs[1].Star2})
	assert.Equal(t, [2]int{2, 3}, [2]int{pairs[2].Star1, pairs[2].Star2})
	assert.Equal(t, 3, stats.Candidates)
	assert.Equal(t, 3, stats.Kept)

	pairs, _, err = Build(context.Background(), stars, math.Pi/2-0.01, Options{})
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestBuild_ThresholdAndOrdering(t *testing.T) {
	stars := randomCatalog(120, 1)
	maxAngle := 0.6

	pairs, stats, err := Build(context.Background(), stars, maxAngle, Options{Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, 120*119/2, stats.Candidates)

	byID := map[int]catalog.Star{}
	for _, s := range stars {
		byID[s.ID] = s
	}
	kept := map[[2]int]bool{}
	for i, p := range pairs {
		assert.Less(t, p.Star1, p.Star2)
		assert.LessOrEqual(t, p.Angle, maxAngle)
		if i > 0 {
			assert.LessOrEqual(t, pairs[i-1].Angle, p.Angle)
		}
		kept[[2]int{p.Star1, p.Star2}] = true
	}

	// every pair that is missing must be beyond the threshold
	for _, a := range stars {
		for _, b := range stars {
			if a.ID >= b.ID || kept[[2]int{a.ID, b.ID}] {
				continue
			}
			da, _ := a.Direction()
			db, _ := b.Direction()
			assert.Greater(t, da.Angle(db), maxAngle)
		}
	}
}

func TestBuild_WorkerCountIndependent(t *testing.T) {
	stars := randomCatalog(200, 2)
	want, _, err := Build(context.Background(), stars, 1.0, Options{Workers: 1})
	require.NoError(t, err)
	for _, workers := range []int{2, 4, 7} {
		got, stats, err := Build(context.Background(), stars, 1.0, Options{Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, workers, stats.Workers)
		assert.Equal(t, want, got, "workers=%d", workers)
	}
}

func TestBuild_InvalidGeometry(t *testing.T) {
	// dist disagrees with the stored position
	stars := []catalog.Star{
		{ID: 1, X: 2, Dist: 1},
		{ID: 2, X: 2, Dist: 1},
	}
	_, _, err := Build(context.Background(), stars, math.Pi, Options{Workers: 2})
	assert.ErrorIs(t, err, ErrInvalidCatalogGeometry)
}

func TestBuild_RejectsBadInput(t *testing.T) {
	_, _, err := Build(context.Background(), []catalog.Star{{ID: 1, X: 1, Dist: 1}, {ID: 1, Y: 1, Dist: 1}}, 1, Options{})
	assert.ErrorIs(t, err, ErrDuplicateStar)

	_, _, err = Build(context.Background(), []catalog.Star{{ID: 1, X: 1}}, 1, Options{})
	assert.ErrorIs(t, err, catalog.ErrInvalidStar)

	_, _, err = Build(context.Background(), nil, -1, Options{})
	assert.Error(t, err)
}

func TestBuild_Trivial(t *testing.T) {
	pairs, stats, err := Build(context.Background(), []catalog.Star{{ID: 5, Z: 1, Dist: 1}}, 1, Options{})
	require.NoError(t, err)
	assert.Empty(t, pairs)
	assert.Equal(t, 0, stats.Candidates)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Build(ctx, randomCatalog(50, 3), 1, Options{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAngle_Clamps(t *testing.T) {
	a, err := Angle(frame.Vec{1 + 5e-4, 0, 0}, frame.Vec{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, a)

	_, err = Angle(frame.Vec{1.01, 0, 0}, frame.Vec{1, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidCatalogGeometry)
}
