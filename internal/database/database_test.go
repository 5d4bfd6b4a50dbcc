package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/starrynight/startracker/internal/config"
	"github.com/starrynight/startracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DatabaseConfig{
		Host: "db", Port: "5433", Username: "u", Password: "p", Database: "stars",
	})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=stars sslmode=disable", dsn)

	dsn = PostgresDSN(config.DatabaseConfig{Host: "db", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
}

func TestManager_SQLiteFileSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.sqlite3")

	m := NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSQLite(path))
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	require.NoError(t, m.Setup())

	for _, mdl := range model.DatabaseModels {
		assert.True(t, m.DB.Migrator().HasTable(mdl))
	}
	assert.True(t, m.DB.Migrator().HasIndex(&model.StarAngle{}, "idx_star_angles_angle"))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestManager_SetupWithoutConnection(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Setup())
	assert.NoError(t, m.Close())
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	mag := 2.0
	require.NoError(t, db.Create(&model.Star{HR: 424, X: 1, Dist: 1, Mag: &mag}).Error)

	out := filepath.Join(t.TempDir(), "dump.sqlite3")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))
	require.NoError(t, DumpMemoryDBToDisk(db, out))

	disk, err := GetSqliteDB(out)
	require.NoError(t, err)
	var got model.Star
	require.NoError(t, disk.First(&got, "hr = ?", 424).Error)
	require.NotNil(t, got.Mag)
	assert.Equal(t, 2.0, *got.Mag)

	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}
