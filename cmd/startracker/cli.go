package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/soniakeys/unit"
	"github.com/spf13/pflag"

	"github.com/starrynight/startracker/internal/angles"
	"github.com/starrynight/startracker/internal/camera"
	"github.com/starrynight/startracker/internal/catalog"
	"github.com/starrynight/startracker/internal/config"
	"github.com/starrynight/startracker/internal/frame"
	"github.com/starrynight/startracker/internal/geo"
	"github.com/starrynight/startracker/internal/identify"
	"github.com/starrynight/startracker/internal/influx"
	"github.com/starrynight/startracker/internal/render"
	"github.com/starrynight/startracker/internal/scene"
	"github.com/starrynight/startracker/internal/storage"
	"github.com/starrynight/startracker/internal/storage/memory"
)

// ErrEmptyCatalog is returned when the catalog filter leaves no stars.
var ErrEmptyCatalog = errors.New("no catalog stars match the filter")

func init() {
	register(command{
		name:    "render",
		summary: "compose synthetic star images with ground truth",
		storage: true,
		flags: func(fs *pflag.FlagSet) map[string]string {
			fs.String("variant", "easy", "scene variant: easy, noisy or hard")
			fs.Uint64("seed", 7, "seed of the first image; image i uses seed+i")
			fs.Int("count", 50, "stars per image, 0 for every visible star")
			fs.Bool("exact", false, "fail when fewer than --count stars are visible")
			fs.Int("batch", 1, "number of images")
			fs.String("output", "./output", "output directory")
			fs.String("attitude", "random", "attitude mode: random, boresight, observer, euler or matrix")
			return map[string]string{
				"variant":  "scene.variant",
				"seed":     "scene.seed",
				"count":    "scene.count",
				"exact":    "scene.exact",
				"batch":    "scene.batch",
				"output":   "scene.outputDir",
				"attitude": "scene.attitude.mode",
			}
		},
		run: runRender,
	})
	register(command{
		name:    "index",
		summary: "build the pairwise angular-distance index",
		storage: true,
		flags: func(fs *pflag.FlagSet) map[string]string {
			fs.Float64("max-angle-deg", 80, "largest separation kept, in degrees")
			fs.Int("workers", 4, "goroutines sharing the pair loop")
			return map[string]string{
				"max-angle-deg": "index.maxAngleDeg",
				"workers":       "index.workers",
			}
		},
		run: runIndex,
	})
	register(command{
		name:    "match",
		summary: "identify three observed stars against the index",
		storage: true,
		flags: func(fs *pflag.FlagSet) map[string]string {
			fs.Float64Slice("angles", nil, "observed separations 0-1, 0-2, 1-2 in degrees")
			fs.String("pixels", "", `three pixel coordinates, e.g. "[[480,270],[500,300],[430,250]]"`)
			fs.Float64("tolerance-deg", 0.1, "full width of the angle window, in degrees")
			return nil
		},
		run: runMatch,
	})
	register(command{
		name:    "import",
		summary: "load a catalog CSV into the configured store",
		storage: true,
		flags: func(fs *pflag.FlagSet) map[string]string {
			fs.String("csv", "", "catalog CSV with hr, x, y, z, dist, mag columns")
			return map[string]string{"csv": "catalog.csv"}
		},
		run: runImport,
	})
}

func catalogFilter() catalog.Filter {
	return catalog.Filter{
		MaxMagnitude:    config.GetCatalogConfig().MaxMagnitude,
		RequireID:       true,
		RequirePosition: true,
	}
}

func intrinsics(cfg config.CameraConfig) (camera.Intrinsics, error) {
	if cfg.VerticalFOV > 0 {
		return camera.IntrinsicsFromFOV(cfg.VerticalFOV.Rad(), cfg.Height, cfg.Aspect)
	}
	return camera.NewIntrinsics(cfg.FocalLength, cfg.Width, cfg.Height)
}

func (a *app) fetchCatalog(ctx context.Context) ([]catalog.Star, error) {
	filter := catalogFilter()
	stars, err := a.storage.FetchStars(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	if len(stars) == 0 {
		return nil, fmt.Errorf("%w (max magnitude %g)", ErrEmptyCatalog, filter.MaxMagnitude)
	}
	a.logger.Info("Fetched catalog", "stars", len(stars), "maxMagnitude", filter.MaxMagnitude)
	return stars, nil
}

// writePoint sends p to InfluxDB when it is enabled.
func (a *app) writePoint(p *influxdb2_write.Point) {
	if !a.influx.IsValid && a.influx.BackupWriter == nil {
		return
	}
	if err := a.influx.WritePoint(p); err != nil {
		a.logger.Warn("Failed to write InfluxDB point", "error", err)
	}
}

func runRender(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	sceneCfg, err := config.GetSceneConfig()
	if err != nil {
		return err
	}
	k, err := intrinsics(config.GetCameraConfig())
	if err != nil {
		return err
	}
	variant, err := scene.VariantByName(sceneCfg.Variant, sceneCfg.NoiseMaxAngle.Rad())
	if err != nil {
		return err
	}
	stars, err := a.fetchCatalog(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(sceneCfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	a.logger.Info("Rendering",
		"variant", sceneCfg.Variant,
		"batch", max(sceneCfg.Batch, 1),
		"attitude", sceneCfg.Attitude.Mode,
		"width", k.Width, "height", k.Height,
		"vfovDeg", unit.Angle(k.VerticalFOV()).Deg(),
	)

	for i := range max(sceneCfg.Batch, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		seed := sceneCfg.Seed + uint64(i)
		name := fmt.Sprintf("img_syn_%s_%d", sceneCfg.Variant, i)
		if err := a.renderOne(ctx, stars, k, variant, sceneCfg, seed, name); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (a *app) renderOne(ctx context.Context, stars []catalog.Star, k camera.Intrinsics, variant scene.Variant, cfg config.SceneConfig, seed uint64, name string) error {
	att, err := resolveAttitude(cfg.Attitude, seed, a.start)
	if err != nil {
		return err
	}

	start := time.Now()
	sc, err := scene.Compose(stars, att.rot, k, scene.Options{
		StarCount:     cfg.Count,
		Exact:         cfg.Exact,
		Variant:       variant,
		Seed:          seed,
		PatchSize:     cfg.PatchSize,
		EdgeTolerance: cfg.EdgeTolerance,
		MinSeparation: cfg.MinSeparation.Rad(),
		Logger:        a.logger.With("image", name),
	})
	if err != nil {
		return err
	}

	imagePath := filepath.Join(cfg.OutputDir, name+".png")
	if err := render.WritePNG(imagePath, sc); err != nil {
		return err
	}
	if cfg.Annotate {
		if err := render.WriteAnnotatedPNG(filepath.Join(cfg.OutputDir, name+"_annotated.png"), sc); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	truthPath := filepath.Join(cfg.OutputDir, name+".json")
	if cfg.CompressGroundTruth {
		truthPath += ".gz"
	}
	var noise float64
	if sc.Variant != scene.VariantEasy {
		noise = cfg.NoiseMaxAngle.Rad()
	}
	rec := &storage.SceneRecord{
		Scene:           sc,
		Intrinsics:      k,
		Attitude:        att.rot.Matrix(),
		Quaternion:      att.rot.Quaternion(),
		RequestedCount:  cfg.Count,
		Exact:           cfg.Exact,
		NoiseMaxAngle:   noise,
		Observer:        att.observer,
		ImagePath:       imagePath,
		GroundTruthPath: truthPath,
		CreatedAt:       time.Now(),
	}
	if err := a.storage.RecordScene(ctx, rec); err != nil {
		return fmt.Errorf("failed to record scene: %w", err)
	}
	if err := render.WriteGroundTruth(truthPath, rec, cfg.CompressGroundTruth); err != nil {
		return err
	}

	a.metrics.ObserveScene(sc, elapsed)
	a.instruments.RecordScene(ctx, sc, elapsed)
	a.writePoint(influx.ScenePoint(rec, elapsed))

	a.logger.Info("Rendered scene",
		"id", rec.ID,
		"image", imagePath,
		"seed", seed,
		"visible", sc.Visible,
		"stars", len(sc.Stars),
		"skipped", sc.Skipped,
		"duration", elapsed,
	)
	fmt.Fprintln(a.out, imagePath)
	return nil
}

func runIndex(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	idxCfg := config.GetIndexConfig()
	stars, err := a.fetchCatalog(ctx)
	if err != nil {
		return err
	}

	pairs, stats, err := angles.Build(ctx, stars, idxCfg.MaxAngle.Rad(), angles.Options{
		Workers: idxCfg.Workers,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	if err := a.storage.WritePairs(ctx, pairs); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	a.metrics.ObserveIndex(stats)
	a.instruments.RecordIndex(ctx, stats.Kept, stats.Elapsed)
	a.writePoint(influx.IndexPoint(stats, idxCfg.MaxAngle.Rad(), time.Now()))

	a.logger.Info("Built angle index",
		"stars", stats.Stars,
		"candidates", stats.Candidates,
		"pairs", stats.Kept,
		"workers", stats.Workers,
		"maxAngleDeg", idxCfg.MaxAngle.Deg(),
		"duration", stats.Elapsed,
	)
	fmt.Fprintf(a.out, "%d pairs from %d stars\n", stats.Kept, stats.Stars)
	return nil
}

func runMatch(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	anglesDeg, _ := fs.GetFloat64Slice("angles")
	pixels, _ := fs.GetString("pixels")
	toleranceDeg, _ := fs.GetFloat64("tolerance-deg")
	tolerance := unit.AngleFromDeg(toleranceDeg).Rad()

	var triads [][3]frame.Vec
	switch {
	case pixels != "" && len(anglesDeg) > 0:
		return errors.New("--angles and --pixels are mutually exclusive")
	case pixels != "":
		px, err := geo.PixelTriad(pixels)
		if err != nil {
			return fmt.Errorf("invalid --pixels: %w", err)
		}
		k, err := intrinsics(config.GetCameraConfig())
		if err != nil {
			return err
		}
		triads = append(triads, identify.RaysFromPixels(px, k))
	case len(anglesDeg) == 3:
		left, right, err := raysFromAngles(
			unit.AngleFromDeg(anglesDeg[0]).Rad(),
			unit.AngleFromDeg(anglesDeg[1]).Rad(),
			unit.AngleFromDeg(anglesDeg[2]).Rad(),
		)
		if err != nil {
			return err
		}
		// separations alone do not fix handedness, try both
		triads = append(triads, left, right)
	default:
		return errors.New("need --pixels or three --angles")
	}

	if err := a.ensureIndex(ctx); err != nil {
		return err
	}

	var matches []identify.Match
	for _, rays := range triads {
		found, err := identify.MatchTriad(ctx, a.storage, rays, tolerance)
		if err != nil {
			return err
		}
		matches = append(matches, found...)
	}
	slices.SortFunc(matches, func(x, y identify.Match) int {
		return cmp.Or(cmp.Compare(x.Star1, y.Star1), cmp.Compare(x.Star2, y.Star2), cmp.Compare(x.Star3, y.Star3))
	})
	matches = slices.Compact(matches)

	a.metrics.ObserveMatch(len(matches))
	a.logger.Info("Matched triad", "candidates", len(matches), "toleranceDeg", toleranceDeg)
	for _, m := range matches {
		fmt.Fprintf(a.out, "HR %d\tHR %d\tHR %d\n", m.Star1, m.Star2, m.Star3)
	}
	if len(matches) == 0 {
		fmt.Fprintln(a.out, "no match")
	}
	return nil
}

// raysFromAngles builds the two mirror-image ray triads with separations
// ab between rays 0-1, ac between 0-2 and bc between 1-2.
func raysFromAngles(ab, ac, bc float64) (left, right [3]frame.Vec, err error) {
	for _, a := range []float64{ab, ac, bc} {
		if !(a > 0 && a < math.Pi) {
			return left, right, fmt.Errorf("separation %g rad out of range (0, π)", a)
		}
	}
	cosPhi := (math.Cos(bc) - math.Cos(ab)*math.Cos(ac)) / (math.Sin(ab) * math.Sin(ac))
	if cosPhi < -1-1e-12 || cosPhi > 1+1e-12 {
		return left, right, errors.New("separations do not form a spherical triangle")
	}
	cosPhi = max(-1, min(1, cosPhi))
	sinPhi := math.Sqrt(1 - cosPhi*cosPhi)

	r0 := frame.Vec{0, 0, 1}
	r1 := frame.Vec{math.Sin(ab), 0, math.Cos(ab)}
	left = [3]frame.Vec{r0, r1, {math.Sin(ac) * cosPhi, math.Sin(ac) * sinPhi, math.Cos(ac)}}
	right = [3]frame.Vec{r0, r1, {math.Sin(ac) * cosPhi, -math.Sin(ac) * sinPhi, math.Cos(ac)}}
	return left, right, nil
}

// ensureIndex builds the index in process for the memory backend, which
// keeps nothing between runs.
func (a *app) ensureIndex(ctx context.Context) error {
	mem, ok := a.storage.(*memory.Backend)
	if !ok {
		return nil
	}
	stars, err := a.fetchCatalog(ctx)
	if err != nil {
		return err
	}
	pairs, stats, err := angles.Build(ctx, stars, config.GetIndexConfig().MaxAngle.Rad(), angles.Options{
		Workers: config.GetIndexConfig().Workers,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	a.logger.Debug("Built in-memory index", "pairs", stats.Kept, "duration", stats.Elapsed)
	mem.LoadIndex(pairs)
	return nil
}

func runImport(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	path := config.GetCatalogConfig().CSVPath
	if path == "" {
		return errors.New("no catalog CSV given, use --csv")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	stars, err := catalog.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := a.storage.ImportStars(ctx, stars); err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}
	a.logger.Info("Imported catalog", "path", path, "stars", len(stars))
	fmt.Fprintf(a.out, "%d stars imported\n", len(stars))
	return nil
}
