// Package convert maps domain values to GORM models and back
package convert

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/starrynight/startracker/internal/angles"
	"github.com/starrynight/startracker/internal/catalog"
	"github.com/starrynight/startracker/internal/frame"
	"github.com/starrynight/startracker/internal/geo"
	"github.com/starrynight/startracker/internal/model"
	"github.com/starrynight/startracker/internal/scene"
	"github.com/starrynight/startracker/internal/storage"
	"gorm.io/datatypes"
)

// StarToGorm converts a catalog star to its row. A NaN magnitude is stored
// as NULL.
func StarToGorm(s catalog.Star) model.Star {
	row := model.Star{HR: s.ID, X: s.X, Y: s.Y, Z: s.Z, Dist: s.Dist, Proper: s.Proper}
	if !math.IsNaN(s.Mag) {
		mag := s.Mag
		row.Mag = &mag
	}
	return row
}

// StarToCatalog converts a row to a catalog star.
func StarToCatalog(s model.Star) catalog.Star {
	star := catalog.Star{ID: s.HR, X: s.X, Y: s.Y, Z: s.Z, Dist: s.Dist, Mag: math.NaN(), Proper: s.Proper}
	if s.Mag != nil {
		star.Mag = *s.Mag
	}
	return star
}

// PairToGorm converts an index pair to its row.
func PairToGorm(p angles.Pair) model.StarAngle {
	return model.StarAngle{
		Star1HR: p.Star1,
		Star2HR: p.Star2,
		Angle:   p.Angle,
		Star1X:  p.V1[0],
		Star1Y:  p.V1[1],
		Star1Z:  p.V1[2],
		Star2X:  p.V2[0],
		Star2Y:  p.V2[1],
		Star2Z:  p.V2[2],
	}
}

// PairToAngles converts a row back to an index pair.
func PairToAngles(a model.StarAngle) angles.Pair {
	return angles.Pair{
		Star1: a.Star1HR,
		Star2: a.Star2HR,
		Angle: a.Angle,
		V1:    frame.Vec{a.Star1X, a.Star1Y, a.Star1Z},
		V2:    frame.Vec{a.Star2X, a.Star2Y, a.Star2Z},
	}
}

// SceneStarToGorm converts one ground-truth entry; ordinal is its position
// in scan order.
func SceneStarToGorm(s scene.ProjectedStar, ordinal int) (model.SceneStar, error) {
	pixel, err := geo.PixelPoint(s.U, s.V)
	if err != nil {
		return model.SceneStar{}, fmt.Errorf("HR %d pixel: %w", s.ID, err)
	}
	return model.SceneStar{
		Ordinal:  ordinal,
		HR:       s.ID,
		Pixel:    pixel,
		NoiseRad: s.NoiseRad,
		Drawn:    s.Drawn,
	}, nil
}

// SceneStarToScene converts a ground-truth row back. Rows whose pixel
// cannot be decoded map to (0, 0).
func SceneStarToScene(s model.SceneStar) scene.ProjectedStar {
	u, v, _ := geo.PixelFromPoint(s.Pixel)
	return scene.ProjectedStar{ID: s.HR, U: u, V: v, NoiseRad: s.NoiseRad, Drawn: s.Drawn}
}

// SceneRunToGorm converts a ledger record with all its stars.
func SceneRunToGorm(rec *storage.SceneRecord) (model.SceneRun, error) {
	if rec == nil || rec.Scene == nil {
		return model.SceneRun{}, fmt.Errorf("scene record is empty")
	}
	sc := rec.Scene

	attitude, err := json.Marshal(rec.Attitude)
	if err != nil {
		return model.SceneRun{}, err
	}
	quaternion, err := json.Marshal([4]float64{rec.Quaternion.Real, rec.Quaternion.Imag, rec.Quaternion.Jmag, rec.Quaternion.Kmag})
	if err != nil {
		return model.SceneRun{}, err
	}
	observer := datatypes.JSON("null")
	if rec.Observer != nil {
		if observer, err = json.Marshal(rec.Observer); err != nil {
			return model.SceneRun{}, err
		}
	}

	run := model.SceneRun{
		Variant:         sc.Variant,
		Seed:            int64(sc.Seed),
		RequestedCount:  rec.RequestedCount,
		Exact:           rec.Exact,
		NoiseMaxAngle:   rec.NoiseMaxAngle,
		FocalLength:     rec.Intrinsics.FocalLength,
		Width:           rec.Intrinsics.Width,
		Height:          rec.Intrinsics.Height,
		Attitude:        attitude,
		Quaternion:      quaternion,
		Observer:        observer,
		Visible:         sc.Visible,
		Drawn:           len(sc.Stars) - sc.Skipped,
		Skipped:         sc.Skipped,
		ImagePath:       rec.ImagePath,
		GroundTruthPath: rec.GroundTruthPath,
		Stars:           make([]model.SceneStar, 0, len(sc.Stars)),
	}
	if !rec.CreatedAt.IsZero() {
		run.CreatedAt = rec.CreatedAt
	}
	for i, s := range sc.Stars {
		row, err := SceneStarToGorm(s, i)
		if err != nil {
			return model.SceneRun{}, err
		}
		run.Stars = append(run.Stars, row)
	}
	return run, nil
}

// SceneRunAttitude decodes the stored attitude matrix.
func SceneRunAttitude(run model.SceneRun) (frame.Matrix, error) {
	var m frame.Matrix
	if err := json.Unmarshal(run.Attitude, &m); err != nil {
		return m, fmt.Errorf("scene run %d attitude: %w", run.ID, err)
	}
	return m, nil
}
