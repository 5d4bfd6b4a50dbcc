package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"scene": { "variant": "Noisy", "count": 12, "seed": 21 },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", GetDatabaseConfig().Host)
	assert.Equal(t, "5433", GetDatabaseConfig().Port)

	sc, err := GetSceneConfig()
	require.NoError(t, err)
	assert.Equal(t, "noisy", sc.Variant)
	assert.Equal(t, 12, sc.Count)
	assert.Equal(t, uint64(21), sc.Seed)
	// untouched keys keep defaults
	assert.Equal(t, 5, sc.PatchSize)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, "./logs", GetString("logsDir"))

	cat := GetCatalogConfig()
	assert.Equal(t, "stars", cat.Table)
	assert.Equal(t, 4.0, cat.MaxMagnitude)

	cam := GetCameraConfig()
	assert.Equal(t, 600.0, cam.FocalLength)
	assert.Equal(t, 960, cam.Width)
	assert.Equal(t, 540, cam.Height)
	assert.Zero(t, cam.VerticalFOV)
	assert.Equal(t, 2.0, cam.Aspect)

	sc, err := GetSceneConfig()
	require.NoError(t, err)
	assert.Equal(t, "easy", sc.Variant)
	assert.Equal(t, 50, sc.Count)
	assert.False(t, sc.Exact)
	assert.Equal(t, 1, sc.Batch)
	assert.Equal(t, 0.02, sc.EdgeTolerance)
	assert.InDelta(t, 0.5, sc.NoiseMaxAngle.Deg(), 1e-12)
	assert.Equal(t, "random", sc.Attitude.Mode)
	assert.InDelta(t, -70, sc.Attitude.Euler[0].Deg(), 1e-12)
	assert.InDelta(t, 120, sc.Attitude.Euler[1].Deg(), 1e-12)
	assert.InDelta(t, 70, sc.Attitude.Euler[2].Deg(), 1e-12)
	assert.Empty(t, sc.Attitude.Matrix)
	assert.True(t, sc.Attitude.Observer.Time.IsZero())

	idx := GetIndexConfig()
	assert.InDelta(t, 80, idx.MaxAngle.Deg(), 1e-12)
	assert.Equal(t, 4, idx.Workers)
	assert.Equal(t, 2000, idx.BatchSize)

	st := GetStorageConfig()
	assert.Equal(t, "sqlite", st.Type)
	assert.Equal(t, "./stars.sqlite3", st.SQLite.Path)
	assert.Equal(t, "./output", st.Memory.OutputDir)
	assert.True(t, st.Memory.CompressOutput)
	assert.Equal(t, "startracker", st.Postgres.Database)

	assert.False(t, GetOTelConfig().Enabled)
	assert.Equal(t, 5*time.Second, GetOTelConfig().BatchTimeout)
	assert.False(t, GetInfluxConfig().Enabled)
	assert.Equal(t, "startracker-runs", GetInfluxConfig().Bucket)
	assert.Equal(t, "localhost:12201", GetGraylogConfig().Address)
	assert.Empty(t, GetMetricsConfig().TextfilePath)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
	assert.True(t, IsNotFound(err))

	// defaults are still in place
	assert.Equal(t, 50, GetInt("scene.count"))
}

func TestLoad_InvalidJSON(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{not json`))
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestGetSceneConfig_Attitude(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"scene": { "attitude": {
			"mode": "observer",
			"matrix": [1,0,0, 0,1,0, 0,0,1],
			"eulerDeg": [10, 20, 30],
			"observer": { "longitudeDeg": -3.7, "latitudeDeg": 40.4, "time": "2024-03-20T12:00:00Z" }
		}}
	}`)))

	sc, err := GetSceneConfig()
	require.NoError(t, err)
	assert.Equal(t, "observer", sc.Attitude.Mode)
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, sc.Attitude.Matrix)
	assert.InDelta(t, 30, sc.Attitude.Euler[2].Deg(), 1e-12)
	assert.InDelta(t, 40.4, sc.Attitude.Observer.Latitude.Deg(), 1e-12)
	assert.Equal(t, time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC), sc.Attitude.Observer.Time)
}

func TestGetSceneConfig_BadValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{"scene":{"attitude":{"eulerDeg":[1,2]}}}`)))
	_, err := GetSceneConfig()
	assert.ErrorContains(t, err, "eulerDeg")

	viper.Reset()
	require.NoError(t, Load(writeConfig(t, `{"scene":{"attitude":{"observer":{"time":"yesterday"}}}}`)))
	_, err = GetSceneConfig()
	assert.ErrorContains(t, err, "observer.time")
}

func TestBindFlags(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	fs := pflag.NewFlagSet("render", pflag.ContinueOnError)
	fs.Int("count", 50, "")
	fs.String("variant", "easy", "")
	require.NoError(t, BindFlags(fs, map[string]string{
		"count":   "scene.count",
		"variant": "scene.variant",
	}))
	require.NoError(t, fs.Parse([]string{"--count", "8"}))

	sc, err := GetSceneConfig()
	require.NoError(t, err)
	assert.Equal(t, 8, sc.Count)
	assert.Equal(t, "easy", sc.Variant)

	assert.Error(t, BindFlags(fs, map[string]string{"nope": "x"}))
}
