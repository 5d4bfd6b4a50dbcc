package v1

import (
	"math"

	"github.com/soniakeys/unit"
	"github.com/starrynight/startracker/internal/angles"
	"github.com/starrynight/startracker/internal/catalog"
	"github.com/starrynight/startracker/internal/scene"
	"github.com/starrynight/startracker/internal/storage"
)

// LedgerData contains all the data needed to build an export
type LedgerData struct {
	Stars  []catalog.Star
	Pairs  []angles.Pair
	Scenes []*storage.SceneRecord
}

// Build creates an Export from the ledger data
func Build(data *LedgerData) Export {
	export := Export{
		Version: FormatVersion,
		Catalog: buildCatalog(data.Stars),
		Index: Index{
			Pairs: len(data.Pairs),
			Rows:  make([][3]float64, 0, len(data.Pairs)),
		},
		Scenes: make([]Scene, 0, len(data.Scenes)),
	}

	for i, p := range data.Pairs {
		export.Index.Rows = append(export.Index.Rows, [3]float64{float64(p.Star1), float64(p.Star2), p.Angle})
		if i == 0 || p.Angle < export.Index.MinAngle {
			export.Index.MinAngle = p.Angle
		}
		if i == 0 || p.Angle > export.Index.MaxAngle {
			export.Index.MaxAngle = p.Angle
		}
	}

	for _, rec := range data.Scenes {
		if rec == nil || rec.Scene == nil {
			continue
		}
		export.Scenes = append(export.Scenes, SceneFromRecord(rec))
	}
	return export
}

func buildCatalog(stars []catalog.Star) Catalog {
	c := Catalog{Stars: len(stars)}
	seen := false
	for _, s := range stars {
		// no magnitude
		if math.IsNaN(s.Mag) {
			continue
		}
		if !seen {
			c.BrightestMag, c.FaintestMag = s.Mag, s.Mag
			seen = true
			continue
		}
		c.BrightestMag = math.Min(c.BrightestMag, s.Mag)
		c.FaintestMag = math.Max(c.FaintestMag, s.Mag)
	}
	return c
}

// SceneFromRecord builds the ground-truth document for one ledger record.
// rec.Scene must be set.
func SceneFromRecord(rec *storage.SceneRecord) Scene {
	sc := rec.Scene
	q := rec.Quaternion
	out := Scene{
		ID:             rec.ID,
		Variant:        sc.Variant,
		Seed:           sc.Seed,
		RequestedCount: rec.RequestedCount,
		Exact:          rec.Exact,
		NoiseMaxAngle:  unit.Angle(rec.NoiseMaxAngle).Deg(),
		Camera: Camera{
			FocalLength: rec.Intrinsics.FocalLength,
			Width:       rec.Intrinsics.Width,
			Height:      rec.Intrinsics.Height,
			VerticalFOV: unit.Angle(rec.Intrinsics.VerticalFOV()).Deg(),
		},
		Attitude:   rec.Attitude,
		Quaternion: [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
		Visible:    sc.Visible,
		Drawn:      len(sc.Stars) - sc.Skipped,
		Skipped:    sc.Skipped,
		Image:      rec.ImagePath,
		CreatedAt:  rec.CreatedAt,
		Stars:      sc.Stars,
	}
	if out.Stars == nil {
		out.Stars = []scene.ProjectedStar{}
	}
	if rec.Observer != nil {
		o := [3]float64(*rec.Observer)
		out.Observer = &o
	}
	return out
}
