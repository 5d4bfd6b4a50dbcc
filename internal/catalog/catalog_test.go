package catalog

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStarDirection(t *testing.T) {
	d, err := Star{ID: 1, X: 0, Y: 5, Z: 0, Dist: 5}.Direction()
	require.NoError(t, err)
	assert.Equal(t, [3]float64{0, 1, 0}, [3]float64(d.Vec()))
}

func TestStarDirection_NormalizesCatalogRounding(t *testing.T) {
	// catalog coordinates are rounded, so x/dist is only close to unit length
	d, err := Star{ID: 1, X: 3.0001, Y: 4, Z: 0, Dist: 5}.Direction()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d.Vec().Norm(), 1e-12)
}

func TestStarDirection_Invalid(t *testing.T) {
	_, err := Star{ID: 0, X: 1, Dist: 1}.Direction()
	assert.ErrorIs(t, err, ErrInvalidStar)

	_, err = Star{ID: 3, X: 1, Dist: 0}.Direction()
	assert.ErrorIs(t, err, ErrInvalidStar)

	_, err = Star{ID: 3, Dist: 1}.Direction()
	assert.ErrorIs(t, err, ErrInvalidStar)
}

func TestMemory_FetchStars(t *testing.T) {
	m := Memory{
		{ID: 5, X: 1, Dist: 1, Mag: 3.9},
		{ID: 2, X: 1, Dist: 1, Mag: 1.2},
		{ID: 0, X: 1, Dist: 1, Mag: 0.5},
		{ID: 7, X: 1, Dist: 1, Mag: 4.0},
		{ID: 9, Dist: 0, Mag: 2},
	}

	stars, err := m.FetchStars(context.Background(), Filter{MaxMagnitude: 4, RequireID: true, RequirePosition: true})
	require.NoError(t, err)
	require.Len(t, stars, 2)
	assert.Equal(t, 2, stars[0].ID)
	assert.Equal(t, 5, stars[1].ID)

	all, err := m.FetchStars(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, 0, all[0].ID)
}

func TestMemory_FetchStars_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Memory{}.FetchStars(ctx, Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadCSV(t *testing.T) {
	in := `hr,proper,x,y,z,dist,mag,ra
424,Polaris,0.0046,0.0072,132.6,132.62,1.97,2.53
2491,Sirius,-0.494,2.476,-0.759,2.637,-1.44,6.75
,,1,2,3,3.74,5.5,0
`
	stars, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, stars, 3)

	assert.Equal(t, 424, stars[0].ID)
	assert.Equal(t, "Polaris", stars[0].Proper)
	assert.InDelta(t, 132.62, stars[0].Dist, 1e-12)
	assert.InDelta(t, -1.44, stars[1].Mag, 1e-12)
	assert.Equal(t, 0, stars[2].ID)
}

func TestReadCSV_BlankMagnitude(t *testing.T) {
	in := "hr,x,y,z,dist,mag\n1,1,0,0,1,\n2,0,1,0,1,0.5\n"
	stars, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, stars, 2)
	assert.True(t, math.IsNaN(stars[0].Mag))

	// no magnitude never passes a magnitude limit
	got, err := Memory(stars).FetchStars(context.Background(), Filter{MaxMagnitude: 4})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ID)

	all, err := Memory(stars).FetchStars(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("hr,x,y,z,mag\n1,1,1,1,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"dist"`)
}

func TestReadCSV_BadNumber(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("hr,x,y,z,dist,mag\n1,abc,1,1,1,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
