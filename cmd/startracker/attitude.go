package main

import (
	"fmt"
	"time"

	"github.com/starrynight/startracker/internal/config"
	"github.com/starrynight/startracker/internal/frame"
	"github.com/starrynight/startracker/internal/observer"
)

// rng stream for random attitudes, distinct from the scene composer's
const attitudeStream = 0xa771

// referenceAttitude is the catalog-axes attitude of the reference "easy"
// test images, row-major.
var referenceAttitude = frame.Matrix{
	{-0.66091815036411794, -0.17204715507451801, 0.73047037924205882},
	{-0.54617137383538428, -0.55726711295433295, -0.62542001504773703},
	{0.51466885365450366, -0.81231345012273837, 0.27434071850100983},
}

// attitude is a resolved camera pointing.
type attitude struct {
	rot      frame.Rotation[frame.Equatorial, frame.Device]
	observer *frame.Vec // ECEF, observer mode only
}

// fromCatalogAttitude turns an attitude given in catalog axes into the
// catalog to device rotation.
func fromCatalogAttitude(m frame.Matrix) (frame.Rotation[frame.Equatorial, frame.Device], error) {
	cam, err := frame.CameraAttitude(m)
	if err != nil {
		return frame.Rotation[frame.Equatorial, frame.Device]{}, err
	}
	return frame.Compose(frame.EquatorialToCamera(), cam), nil
}

// resolveAttitude picks the camera rotation for one image of a batch.
// Only the random mode depends on seed.
func resolveAttitude(cfg config.AttitudeConfig, seed uint64, now time.Time) (attitude, error) {
	switch cfg.Mode {
	case "", "random":
		rng := frame.NewRand(seed, attitudeStream)
		return attitude{rot: frame.RandomRotation[frame.Equatorial, frame.Device](rng)}, nil

	case "boresight":
		rot, err := frame.FromBoresight(cfg.RA, cfg.Dec, cfg.Roll)
		if err != nil {
			return attitude{}, fmt.Errorf("boresight attitude: %w", err)
		}
		return attitude{rot: rot}, nil

	case "observer":
		obs := observer.Observer{
			Longitude: cfg.Observer.Longitude,
			Latitude:  cfg.Observer.Latitude,
			Height:    cfg.Observer.Height,
		}
		at := cfg.Observer.Time
		if at.IsZero() {
			at = now
		}
		rot, err := obs.Attitude(at, cfg.Roll)
		if err != nil {
			return attitude{}, fmt.Errorf("observer attitude: %w", err)
		}
		ecef, err := obs.ECEF()
		if err != nil {
			return attitude{}, fmt.Errorf("observer position: %w", err)
		}
		return attitude{rot: rot, observer: &ecef}, nil

	case "euler":
		m := frame.FromEulerXYZ[frame.Equatorial, frame.Equatorial](cfg.Euler[0], cfg.Euler[1], cfg.Euler[2]).Matrix()
		rot, err := fromCatalogAttitude(m)
		if err != nil {
			return attitude{}, fmt.Errorf("euler attitude: %w", err)
		}
		return attitude{rot: rot}, nil

	case "matrix":
		m := referenceAttitude
		if len(cfg.Matrix) > 0 {
			if len(cfg.Matrix) != 9 {
				return attitude{}, fmt.Errorf("attitude matrix needs 9 values, got %d", len(cfg.Matrix))
			}
			for i := range 9 {
				m[i/3][i%3] = cfg.Matrix[i]
			}
		}
		rot, err := fromCatalogAttitude(m)
		if err != nil {
			return attitude{}, fmt.Errorf("matrix attitude: %w", err)
		}
		return attitude{rot: rot}, nil

	default:
		return attitude{}, fmt.Errorf("unknown attitude mode %q", cfg.Mode)
	}
}
