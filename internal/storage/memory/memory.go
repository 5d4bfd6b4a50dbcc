// Package memory implements storage.Backend in process. The catalog is read
// from a CSV file, the index lives in a k-vector and the scene ledger is
// exported as JSON when the backend is closed.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/starrynight/startracker/internal/angles"
	"github.com/starrynight/startracker/internal/catalog"
	"github.com/starrynight/startracker/internal/config"
	"github.com/starrynight/startracker/internal/storage"
)

// Backend keeps the catalog, index and ledger in memory and exports to JSON
type Backend struct {
	cfg config.MemoryConfig

	stars        catalog.Memory
	index        *angles.KVector
	indexWritten bool // set by WritePairs; LoadIndex leaves it alone
	scenes       []*storage.SceneRecord

	idCounter      uint
	lastExportPath string
	now            func() time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg, now: time.Now}
}

// Init loads the catalog CSV when one is configured and present.
func (b *Backend) Init(ctx context.Context) error {
	if b.cfg.CatalogPath == "" {
		return nil
	}
	f, err := os.Open(b.cfg.CatalogPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	stars, err := catalog.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to read catalog %s: %w", b.cfg.CatalogPath, err)
	}
	return b.ImportStars(ctx, stars)
}

// Close exports the ledger when scenes were recorded or an index was written.
// An index from LoadIndex alone does not trigger an export.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.scenes) == 0 && !b.indexWritten {
		return nil
	}
	return b.exportJSON()
}

// ExportedFilePath returns the path of the last export, empty before Close.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// FetchStars returns the matching stars ordered by ID.
func (b *Backend) FetchStars(ctx context.Context, filter catalog.Filter) ([]catalog.Star, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stars.FetchStars(ctx, filter)
}

// ImportStars replaces the catalog.
func (b *Backend) ImportStars(ctx context.Context, stars []catalog.Star) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stars = append(catalog.Memory(nil), stars...)
	return nil
}

// WritePairs replaces the index.
func (b *Backend) WritePairs(ctx context.Context, pairs []angles.Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index = angles.NewKVector(pairs)
	b.indexWritten = true
	return nil
}

// LoadIndex installs pairs as a lookup-only index for this run.
func (b *Backend) LoadIndex(pairs []angles.Pair) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index = angles.NewKVector(pairs)
}

// PairsInRange queries the k-vector. An empty index yields no pairs.
func (b *Backend) PairsInRange(ctx context.Context, lo, hi float64) ([]angles.Pair, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.index == nil {
		return nil, ctx.Err()
	}
	return b.index.PairsInRange(ctx, lo, hi)
}

// RecordScene appends rec to the ledger and sets its ID.
func (b *Backend) RecordScene(ctx context.Context, rec *storage.SceneRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil || rec.Scene == nil {
		return fmt.Errorf("scene record is empty")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	rec.ID = b.idCounter
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = b.now()
	}
	b.scenes = append(b.scenes, rec)
	return nil
}

// Scenes returns the recorded scenes in insertion order.
func (b *Backend) Scenes() []*storage.SceneRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*storage.SceneRecord(nil), b.scenes...)
}
