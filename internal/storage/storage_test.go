package storage_test

import (
	"testing"

	"github.com/starrynight/startracker/internal/angles"
	"github.com/starrynight/startracker/internal/identify"
	"github.com/starrynight/startracker/internal/storage"
	gormstorage "github.com/starrynight/startracker/internal/storage/gorm"
	"github.com/starrynight/startracker/internal/storage/memory"
)

// Backends double as identify.PairSource, like the in-memory k-vector.
var (
	_ storage.Backend     = (*gormstorage.Backend)(nil)
	_ storage.Backend     = (*memory.Backend)(nil)
	_ storage.Exportable  = (*memory.Backend)(nil)
	_ identify.PairSource = (storage.Backend)(nil)
	_ identify.PairSource = (*angles.KVector)(nil)
)

func TestBackendsSatisfyInterfaces(t *testing.T) {
	// compile-time assertions above
}
