// Package gormstorage implements storage.Backend on GORM. The same code
// serves the SQLite and Postgres deployments; the caller picks the dialector.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starrynight/startracker/internal/angles"
	"github.com/starrynight/startracker/internal/catalog"
	"github.com/starrynight/startracker/internal/database"
	"github.com/starrynight/startracker/internal/model"
	"github.com/starrynight/startracker/internal/model/convert"
	"github.com/starrynight/startracker/internal/storage"

	"gorm.io/gorm"
)

// DefaultBatchSize is used when Dependencies.BatchSize is not positive.
const DefaultBatchSize = 2000

// ErrNotInitialized is returned by operations called before Init.
var ErrNotInitialized = errors.New("storage backend not initialized")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB        *gorm.DB
	Table     string // catalog table, defaults to the stars model table
	BatchSize int
	Logger    *slog.Logger
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps    Dependencies
	dbReady bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration, including a catalog table configured under a
// name other than the model's.
func (b *Backend) Init(ctx context.Context) error {
	if b.deps.DB == nil {
		return fmt.Errorf("%w: no database connection", ErrNotInitialized)
	}
	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Name())
	db := b.deps.DB.WithContext(ctx)
	if err := database.Migrate(db); err != nil {
		return err
	}
	if table := b.table(); table != (&model.Star{}).TableName() {
		if err := db.Table(table).AutoMigrate(&model.Star{}); err != nil {
			return fmt.Errorf("failed to migrate catalog table %s: %w", table, err)
		}
	}
	b.dbReady = true
	return nil
}

// Close is a no-op; the connection is owned by the caller.
func (b *Backend) Close() error {
	b.dbReady = false
	return nil
}

func (b *Backend) db(ctx context.Context) (*gorm.DB, error) {
	if !b.dbReady {
		return nil, ErrNotInitialized
	}
	return b.deps.DB.WithContext(ctx), nil
}

func (b *Backend) table() string {
	if b.deps.Table != "" {
		return b.deps.Table
	}
	return (&model.Star{}).TableName()
}

// FetchStars reads the catalog table ordered by HR number.
func (b *Backend) FetchStars(ctx context.Context, filter catalog.Filter) ([]catalog.Star, error) {
	db, err := b.db(ctx)
	if err != nil {
		return nil, err
	}

	q := db.Table(b.table())
	if filter.MaxMagnitude != 0 {
		q = q.Where("mag < ?", filter.MaxMagnitude)
	}
	if filter.RequireID {
		q = q.Where("hr IS NOT NULL AND hr > 0")
	}
	if filter.RequirePosition {
		q = q.Where("dist > 0")
	}

	var rows []model.Star
	if err := q.Order("hr").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch stars from %s: %w", b.table(), err)
	}

	stars := make([]catalog.Star, len(rows))
	for i, r := range rows {
		stars[i] = convert.StarToCatalog(r)
	}
	return stars, nil
}

// ImportStars replaces the catalog table contents.
func (b *Backend) ImportStars(ctx context.Context, stars []catalog.Star) error {
	db, err := b.db(ctx)
	if err != nil {
		return err
	}

	rows := make([]model.Star, len(stars))
	for i, s := range stars {
		rows[i] = convert.StarToGorm(s)
	}

	start := time.Now()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(b.table()).Where("1 = 1").Delete(&model.Star{}).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", b.table(), err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Table(b.table()).CreateInBatches(rows, b.deps.BatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert stars: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.deps.Logger.Info("Imported stars", "table", b.table(), "count", len(rows), "duration", time.Since(start))
	return nil
}

// WritePairs replaces the angle index with pairs.
func (b *Backend) WritePairs(ctx context.Context, pairs []angles.Pair) error {
	db, err := b.db(ctx)
	if err != nil {
		return err
	}

	rows := make([]model.StarAngle, len(pairs))
	for i, p := range pairs {
		rows[i] = convert.PairToGorm(p)
	}

	start := time.Now()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.StarAngle{}).Error; err != nil {
			return fmt.Errorf("failed to clear star_angles: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, b.deps.BatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert star angles: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.deps.Logger.Info("Wrote angle index", "pairs", len(rows), "batchSize", b.deps.BatchSize, "duration", time.Since(start))
	return nil
}

// PairsInRange returns the index rows with lo ≤ angle ≤ hi in index order.
func (b *Backend) PairsInRange(ctx context.Context, lo, hi float64) ([]angles.Pair, error) {
	db, err := b.db(ctx)
	if err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, nil
	}

	var rows []model.StarAngle
	err = db.Where("angle >= ? AND angle <= ?", lo, hi).
		Order("angle, star1_hr, star2_hr").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query star angles: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	pairs := make([]angles.Pair, len(rows))
	for i, r := range rows {
		pairs[i] = convert.PairToAngles(r)
	}
	return pairs, nil
}

// RecordScene inserts the run and its ground truth, then sets rec.ID.
func (b *Backend) RecordScene(ctx context.Context, rec *storage.SceneRecord) error {
	db, err := b.db(ctx)
	if err != nil {
		return err
	}

	run, err := convert.SceneRunToGorm(rec)
	if err != nil {
		return fmt.Errorf("failed to convert scene run: %w", err)
	}
	if err := db.Create(&run).Error; err != nil {
		return fmt.Errorf("failed to insert scene run: %w", err)
	}

	rec.ID = run.ID
	rec.CreatedAt = run.CreatedAt
	b.deps.Logger.Debug("Recorded scene", "id", run.ID, "variant", run.Variant, "stars", len(run.Stars))
	return nil
}

// LoadScene reads back a recorded run with its stars in scan order.
func (b *Backend) LoadScene(ctx context.Context, id uint) (model.SceneRun, error) {
	db, err := b.db(ctx)
	if err != nil {
		return model.SceneRun{}, err
	}
	var run model.SceneRun
	err = db.Preload("Stars", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("ordinal")
	}).First(&run, id).Error
	if err != nil {
		return model.SceneRun{}, fmt.Errorf("failed to load scene run %d: %w", id, err)
	}
	return run, nil
}
