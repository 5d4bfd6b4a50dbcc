package scene

import (
	"math"
	"testing"

	"github.com/starrynight/startracker/internal/camera"
	"github.com/starrynight/startracker/internal/catalog"
	"github.com/starrynight/startracker/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func star(id int, x, y, z float64) catalog.Star {
	return catalog.Star{ID: id, X: x, Y: y, Z: z, Dist: math.Sqrt(x*x + y*y + z*z), Mag: 3}
}

// gridCatalog places 35 stars well apart in front of an identity-attitude
// camera plus a few behind it.
func gridCatalog() []catalog.Star {
	var stars []catalog.Star
	id := 1
	for i := -3; i <= 3; i++ {
		for j := -2; j <= 2; j++ {
			stars = append(stars, star(id, 0.2*float64(i), 0.15*float64(j), 1))
			id++
		}
	}
	stars = append(stars, star(100, 0, 0, -1), star(101, 0.3, 0.1, -1))
	return stars
}

func lookingAlongZ(t *testing.T) frame.Rotation[frame.Equatorial, frame.Device] {
	t.Helper()
	r, err := frame.NewRotation[frame.Equatorial, frame.Device](frame.IdentityMatrix())
	require.NoError(t, err)
	return r
}

func reference(t *testing.T) camera.Intrinsics {
	t.Helper()
	k, err := camera.NewIntrinsics(600, 960, 540)
	require.NoError(t, err)
	return k
}

func countDrawn(raster []byte) int {
	n := 0
	for i := 0; i < len(raster); i += Channels {
		if raster[i] == DrawnValue {
			n++
		}
	}
	return n
}

func TestCompose_Deterministic(t *testing.T) {
	opts := Options{StarCount: 10, Variant: Noisy{MaxAngle: 0.002}, Seed: 1234, EdgeTolerance: 0.02}

	a, err := Compose(gridCatalog(), lookingAlongZ(t), reference(t), opts)
	require.NoError(t, err)
	b, err := Compose(gridCatalog(), lookingAlongZ(t), reference(t), opts)
	require.NoError(t, err)

	assert.Equal(t, a.Raster, b.Raster)
	assert.Equal(t, a.Stars, b.Stars)

	opts.Seed = 1235
	c, err := Compose(gridCatalog(), lookingAlongZ(t), reference(t), opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Stars, c.Stars)
}

func TestCompose_AllVisible(t *testing.T) {
	sc, err := Compose(gridCatalog(), lookingAlongZ(t), reference(t), Options{EdgeTolerance: 0.02})
	require.NoError(t, err)

	assert.Equal(t, 35, sc.Visible)
	require.Len(t, sc.Stars, 35)
	assert.Equal(t, 0, sc.Skipped)
	assert.Equal(t, VariantEasy, sc.Variant)
	assert.Equal(t, 35*DefaultPatchSize*DefaultPatchSize, countDrawn(sc.Raster))

	for _, s := range sc.Stars {
		assert.NotContains(t, []int{100, 101}, s.ID)
		assert.True(t, s.Drawn)
		assert.Zero(t, s.NoiseRad)
		assert.Equal(t, [Channels]byte{255, 255, 255}, sc.Pixel(s.U, s.V))
	}
}

func TestCompose_EasyProjectsExactly(t *testing.T) {
	stars := []catalog.Star{star(7, 0, 0, 1), star(8, 0.2, -0.15, 1)}
	sc, err := Compose(stars, lookingAlongZ(t), reference(t), Options{})
	require.NoError(t, err)
	require.Len(t, sc.Stars, 2)

	assert.Equal(t, ProjectedStar{ID: 8, U: 600, V: 180, Drawn: true}, sc.Stars[0])
	assert.Equal(t, ProjectedStar{ID: 7, U: 480, V: 270, Drawn: true}, sc.Stars[1])
	assert.Equal(t, [Channels]byte{}, sc.Pixel(478-1, 270))
	assert.Equal(t, [Channels]byte{255, 255, 255}, sc.Pixel(478, 272))
}

func TestCompose_ScanOrder(t *testing.T) {
	sc, err := Compose(gridCatalog(), lookingAlongZ(t), reference(t), Options{StarCount: 20, Seed: 9})
	require.NoError(t, err)
	for i := 1; i < len(sc.Stars); i++ {
		prev, cur := sc.Stars[i-1], sc.Stars[i]
		assert.True(t, prev.V < cur.V || (prev.V == cur.V && prev.U <= cur.U), "stars %d and %d out of order", i-1, i)
	}
}

func TestCompose_InsufficientStars(t *testing.T) {
	stars := []catalog.Star{star(1, 0, 0, 1), star(2, 0.1, 0, 1), star(3, 0, 0.1, 1), star(4, 0, 0, -1)}

	_, err := Compose(stars, lookingAlongZ(t), reference(t), Options{StarCount: 5, Exact: true})
	assert.ErrorIs(t, err, ErrInsufficientStars)

	sc, err := Compose(stars, lookingAlongZ(t), reference(t), Options{StarCount: 5})
	require.NoError(t, err)
	assert.Len(t, sc.Stars, 3)
}

func TestCompose_OverlapSkipped(t *testing.T) {
	// two pixels apart: the second patch would cover the first
	stars := []catalog.Star{star(1, 0, 0, 1), star(2, 2.0/600, 0, 1)}
	sc, err := Compose(stars, lookingAlongZ(t), reference(t), Options{Seed: 5})
	require.NoError(t, err)

	require.Len(t, sc.Stars, 2)
	assert.Equal(t, 1, sc.Skipped)
	drawn := 0
	for _, s := range sc.Stars {
		if s.Drawn {
			drawn++
		}
	}
	assert.Equal(t, 1, drawn)
	assert.Equal(t, DefaultPatchSize*DefaultPatchSize, countDrawn(sc.Raster))
}

func TestCompose_MinSeparation(t *testing.T) {
	stars := []catalog.Star{star(1, 0, 0, 1), star(2, 0.01, 0, 1), star(3, 0.3, 0, 1)}
	sc, err := Compose(stars, lookingAlongZ(t), reference(t), Options{MinSeparation: 0.05})
	require.NoError(t, err)
	assert.Len(t, sc.Stars, 2)
}

func TestCompose_PatchOutOfBounds(t *testing.T) {
	// visible with zero tolerance, but the patch crosses the right border
	stars := []catalog.Star{star(1, 0.799, 0, 1)}
	_, err := Compose(stars, lookingAlongZ(t), reference(t), Options{EdgeTolerance: 0})
	assert.ErrorIs(t, err, ErrPatchOutOfBounds)

	sc, err := Compose(stars, lookingAlongZ(t), reference(t), Options{EdgeTolerance: camera.DefaultEdgeTolerance})
	require.NoError(t, err)
	assert.Empty(t, sc.Stars)
}

func TestCompose_RejectsEvenPatch(t *testing.T) {
	_, err := Compose(gridCatalog(), lookingAlongZ(t), reference(t), Options{PatchSize: 4})
	assert.Error(t, err)
}

func TestCompose_NoisyStaysNearTruth(t *testing.T) {
	opts := Options{Seed: 77, EdgeTolerance: 0.02}
	easy, err := Compose(gridCatalog(), lookingAlongZ(t), reference(t), opts)
	require.NoError(t, err)

	opts.Variant = Noisy{MaxAngle: 0.005}
	noisy, err := Compose(gridCatalog(), lookingAlongZ(t), reference(t), opts)
	require.NoError(t, err)
	assert.Equal(t, VariantNoisy, noisy.Variant)

	truth := map[int]ProjectedStar{}
	for _, s := range easy.Stars {
		truth[s.ID] = s
	}
	require.Len(t, noisy.Stars, len(easy.Stars))
	for _, s := range noisy.Stars {
		want, ok := truth[s.ID]
		require.True(t, ok)
		assert.LessOrEqual(t, math.Abs(float64(s.U-want.U)), 10.0)
		assert.LessOrEqual(t, math.Abs(float64(s.V-want.V)), 10.0)
		assert.LessOrEqual(t, s.NoiseRad, 0.005)
	}
}

func TestNoisy_RespectsBound(t *testing.T) {
	n := Noisy{MaxAngle: 0.01}
	rng := frame.NewRand(11, 0)
	ray := frame.Vec{0.3, -0.2, 0.9}
	maxSeen := 0.0
	for i := 0; i < 1000; i++ {
		out, realized, err := n.Perturb(ray, rng)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, out.Norm(), 1e-12)
		assert.LessOrEqual(t, frame.AngleBetween(ray, out), 0.01+1e-12)
		maxSeen = math.Max(maxSeen, realized)
	}
	assert.Greater(t, maxSeen, 0.009)
}

func TestVariantByName(t *testing.T) {
	v, err := VariantByName("easy", 0)
	require.NoError(t, err)
	assert.Equal(t, Easy{}, v)

	v, err = VariantByName("Hard", 0.01)
	require.NoError(t, err)
	assert.Equal(t, Noisy{MaxAngle: 0.01}, v)

	_, err = VariantByName("noisy", math.Pi/2)
	assert.Error(t, err)
	_, err = VariantByName("blurry", 0)
	assert.Error(t, err)
}
