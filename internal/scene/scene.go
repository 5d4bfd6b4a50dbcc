// Package scene composes synthetic star-field images: it culls catalog stars
// to the camera's view, picks a reproducible subset, projects and draws them,
// and returns the raster together with per-star ground truth.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starrynight/startracker/internal/camera"
	"github.com/starrynight/startracker/internal/catalog"
	"github.com/starrynight/startracker/internal/frame"
)

var (
	// ErrInsufficientStars is returned when an exact star count was demanded
	// and fewer stars could be chosen.
	ErrInsufficientStars = errors.New("insufficient visible stars")
	// ErrPatchOutOfBounds is returned when a star patch does not fit in the
	// raster. The edge tolerance exists to make this unreachable.
	ErrPatchOutOfBounds = errors.New("star patch outside raster bounds")
	// ErrNoiseBound is returned when a perturbed ray deviates more than the
	// configured maximum.
	ErrNoiseBound = errors.New("noise angle exceeds bound")
)

const (
	// Channels is the number of bytes per raster pixel.
	Channels = 3
	// DrawnValue marks a pixel covered by a star patch.
	DrawnValue byte = 255
	// DefaultPatchSize is the side of the square drawn for each star.
	DefaultPatchSize = 5
)

// rng stream for scene composition; attitude sampling uses its own stream.
const composeStream = 0x5ce4e

// Options controls a single Compose call.
type Options struct {
	// StarCount is the number of stars to place, 0 meaning all visible.
	StarCount int
	// Exact makes a shortfall against StarCount an error.
	Exact bool
	// Variant defaults to Easy.
	Variant Variant
	// Seed drives the shuffle and any noise.
	Seed uint64
	// PatchSize must be odd; 0 selects DefaultPatchSize.
	PatchSize int
	// EdgeTolerance is passed to camera.IsVisible.
	EdgeTolerance float64
	// MinSeparation rejects stars closer than this (radians) to an already
	// chosen star. 0 disables the check.
	MinSeparation float64
	Logger        *slog.Logger
}

// ProjectedStar is the ground truth for one placed star.
type ProjectedStar struct {
	ID       int     `json:"hr"`
	U        int     `json:"u"`
	V        int     `json:"v"`
	NoiseRad float64 `json:"noiseRad,omitempty"`
	// Drawn is false when the star overlapped an earlier patch and was not
	// rendered. It is still reported.
	Drawn bool `json:"drawn"`
}

// Scene is the output of one Compose call. Raster is Height rows of Width
// pixels of Channels bytes each.
type Scene struct {
	Width   int
	Height  int
	Raster  []byte
	Stars   []ProjectedStar
	Variant string
	Seed    uint64
	// Visible is the number of catalog stars that passed the visibility test.
	Visible int
	// Skipped is the number of chosen stars that were not drawn.
	Skipped int
}

// Pixel returns the channel values at column u, row v.
func (s *Scene) Pixel(u, v int) [Channels]byte {
	var px [Channels]byte
	copy(px[:], s.Raster[(v*s.Width+u)*Channels:])
	return px
}

type candidate struct {
	star catalog.Star
	dir  frame.Direction[frame.Equatorial]
}

// Compose renders stars seen through rot with intrinsics k.
func Compose(stars []catalog.Star, rot frame.Rotation[frame.Equatorial, frame.Device], k camera.Intrinsics, opts Options) (*Scene, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	if opts.PatchSize == 0 {
		opts.PatchSize = DefaultPatchSize
	}
	if opts.PatchSize < 0 || opts.PatchSize%2 == 0 {
		return nil, fmt.Errorf("patch size %d must be a positive odd number", opts.PatchSize)
	}
	if opts.StarCount < 0 {
		return nil, fmt.Errorf("star count %d must not be negative", opts.StarCount)
	}
	if opts.Variant == nil {
		opts.Variant = Easy{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	visible := make([]candidate, 0, len(stars))
	for _, s := range stars {
		d, err := s.Direction()
		if err != nil {
			return nil, err
		}
		if camera.IsVisible(d, rot, k, opts.EdgeTolerance) {
			visible = append(visible, candidate{star: s, dir: d})
		}
	}

	rng := frame.NewRand(opts.Seed, composeStream)
	rng.Shuffle(len(visible), func(i, j int) { visible[i], visible[j] = visible[j], visible[i] })

	chosen := choose(visible, opts.StarCount, opts.MinSeparation)
	if opts.Exact && opts.StarCount > 0 && len(chosen) < opts.StarCount {
		return nil, fmt.Errorf("%w: requested %d, %d visible, %d selectable",
			ErrInsufficientStars, opts.StarCount, len(visible), len(chosen))
	}
	log.Debug("Selected stars", "visible", len(visible), "catalog", len(stars), "chosen", len(chosen))

	sc := &Scene{
		Width:   k.Width,
		Height:  k.Height,
		Raster:  make([]byte, k.Width*k.Height*Channels),
		Stars:   make([]ProjectedStar, 0, len(chosen)),
		Variant: opts.Variant.Name(),
		Seed:    opts.Seed,
		Visible: len(visible),
	}

	for _, c := range chosen {
		ray, noise, err := opts.Variant.Perturb(rot.Apply(c.dir).Vec(), rng)
		if err != nil {
			return nil, fmt.Errorf("HR %d: %w", c.star.ID, err)
		}
		if ray[2] <= 0 {
			return nil, fmt.Errorf("HR %d: %w", c.star.ID, camera.ErrBehindCamera)
		}
		u, v := camera.ProjectRay(ray[0]/ray[2], ray[1]/ray[2], k)

		drawn, err := sc.drawPatch(u, v, opts.PatchSize)
		if err != nil {
			return nil, fmt.Errorf("HR %d: %w", c.star.ID, err)
		}
		if !drawn {
			sc.Skipped++
			log.Warn("Star overlaps a previously drawn star, not drawing it", "hr", c.star.ID, "u", u, "v", v)
		}
		sc.Stars = append(sc.Stars, ProjectedStar{ID: c.star.ID, U: u, V: v, NoiseRad: noise, Drawn: drawn})
	}

	SortScanOrder(sc.Stars)
	return sc, nil
}

// choose walks the shuffled candidates and keeps those far enough from the
// ones already kept, stopping at count (0 = no limit).
func choose(visible []candidate, count int, minSeparation float64) []candidate {
	limit := len(visible)
	if count > 0 && count < limit {
		limit = count
	}
	chosen := make([]candidate, 0, limit)
	for _, c := range visible {
		if len(chosen) == limit {
			break
		}
		apart := true
		if minSeparation > 0 {
			for _, kept := range chosen {
				if c.dir.Angle(kept.dir) < minSeparation {
					apart = false
					break
				}
			}
		}
		if apart {
			chosen = append(chosen, c)
		}
	}
	return chosen
}

// drawPatch fills the odd-sized square centered on (u, v). It returns false
// without drawing when any pixel of the square is already drawn.
func (s *Scene) drawPatch(u, v, size int) (bool, error) {
	half := size / 2
	if u-half < 0 || u+half >= s.Width || v-half < 0 || v+half >= s.Height {
		return false, fmt.Errorf("%w: %dx%d patch at (%d, %d) in %dx%d image",
			ErrPatchOutOfBounds, size, size, u, v, s.Width, s.Height)
	}

	for row := v - half; row <= v+half; row++ {
		for col := u - half; col <= u+half; col++ {
			if s.Raster[(row*s.Width+col)*Channels] == DrawnValue {
				return false, nil
			}
		}
	}
	for row := v - half; row <= v+half; row++ {
		start := (row*s.Width + u - half) * Channels
		end := (row*s.Width + u + half + 1) * Channels
		for i := start; i < end; i++ {
			s.Raster[i] = DrawnValue
		}
	}
	return true, nil
}

// SortScanOrder orders stars row-major: by V, then U, then ID.
func SortScanOrder(stars []ProjectedStar) {
	sort.SliceStable(stars, func(i, j int) bool {
		a, b := stars[i], stars[j]
		if a.V != b.V {
			return a.V < b.V
		}
		if a.U != b.U {
			return a.U < b.U
		}
		return a.ID < b.ID
	})
}
