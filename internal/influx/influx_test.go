package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/starrynight/startracker/internal/angles"
	"github.com/starrynight/startracker/internal/config"
	"github.com/starrynight/startracker/internal/scene"
	"github.com/starrynight/startracker/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.NoError(t, m.Close())
}

func TestWritePoint_NoWriter(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	err := m.WritePoint(IndexPoint(angles.Stats{}, 1, time.Now()))
	assert.Error(t, err)
}

func TestOpenBackup_RequiresPath(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.Error(t, m.OpenBackup())
}

func TestWritePoint_Backup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{BackupPath: path})
	require.NoError(t, m.OpenBackup())

	at := time.Unix(1700000000, 0)
	rec := &storage.SceneRecord{
		Scene: &scene.Scene{
			Variant: "noisy",
			Seed:    21,
			Visible: 10,
			Skipped: 1,
			Stars:   make([]scene.ProjectedStar, 4),
		},
		RequestedCount: 4,
		CreatedAt:      at,
	}
	require.NoError(t, m.WritePoint(ScenePoint(rec, 1500*time.Microsecond)))
	require.NoError(t, m.WritePoint(IndexPoint(angles.Stats{Stars: 3, Kept: 2, Workers: 4}, 1.4, at)))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "scene_render,exact=false,variant=noisy ")
	assert.Contains(t, out, "drawn=3i")
	assert.Contains(t, out, `seed="21"`)
	assert.Contains(t, out, "durationMs=1.5")
	assert.Contains(t, out, "index_build,workers=4 ")
	assert.Contains(t, out, "kept=2i")
	assert.Contains(t, out, " 1700000000000000000\n")
}
