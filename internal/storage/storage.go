// Package storage defines the persistence boundary: the catalog, the
// angular-distance index and the scene ledger.
package storage

import (
	"context"
	"time"

	"github.com/starrynight/startracker/internal/angles"
	"github.com/starrynight/startracker/internal/camera"
	"github.com/starrynight/startracker/internal/catalog"
	"github.com/starrynight/startracker/internal/frame"
	"github.com/starrynight/startracker/internal/scene"
	"gonum.org/v1/gonum/num/quat"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error

	// Catalog
	catalog.Accessor
	ImportStars(ctx context.Context, stars []catalog.Star) error

	// Angle index; WritePairs replaces the whole index
	WritePairs(ctx context.Context, pairs []angles.Pair) error
	PairsInRange(ctx context.Context, lo, hi float64) ([]angles.Pair, error)

	// Scene ledger
	RecordScene(ctx context.Context, rec *SceneRecord) error
}

// SceneRecord is everything the ledger keeps about one rendered scene.
// ID is assigned by RecordScene.
type SceneRecord struct {
	ID              uint
	Scene           *scene.Scene
	Intrinsics      camera.Intrinsics
	Attitude        frame.Matrix
	Quaternion      quat.Number
	RequestedCount  int
	Exact           bool
	NoiseMaxAngle   float64
	Observer        *frame.Vec
	ImagePath       string
	GroundTruthPath string
	CreatedAt       time.Time
}

// Exportable is an optional interface for backends that write their content
// to a file when closed.
type Exportable interface {
	ExportedFilePath() string
}
