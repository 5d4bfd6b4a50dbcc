package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soniakeys/unit"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "startracker.cfg.json"

// CatalogConfig selects the catalog rows fed to the generator and indexer
type CatalogConfig struct {
	Table        string  // table name in the catalog database
	MaxMagnitude float64 // 0 disables the brightness cut
	CSVPath      string  // import source for `startracker import`
}

// CameraConfig describes the synthetic camera. When VerticalFOV is set it
// wins over FocalLength and Width.
type CameraConfig struct {
	FocalLength float64
	Width       int
	Height      int
	VerticalFOV unit.Angle
	Aspect      float64 // height / width
}

// ObserverConfig points the camera at the zenith of a ground location
type ObserverConfig struct {
	Longitude unit.Angle
	Latitude  unit.Angle
	Height    float64
	Time      time.Time // zero means now
}

// AttitudeConfig selects how the camera attitude is chosen
type AttitudeConfig struct {
	Mode     string // random, boresight, observer, euler, matrix
	RA       unit.Angle
	Dec      unit.Angle
	Roll     unit.Angle
	Euler    [3]unit.Angle
	Matrix   []float64 // 9 values, row-major, catalog frame -> device
	Observer ObserverConfig
}

// SceneConfig holds the render settings
type SceneConfig struct {
	Variant             string
	Count               int
	Exact               bool
	Seed                uint64
	Batch               int
	PatchSize           int
	EdgeTolerance       float64
	MinSeparation       unit.Angle
	NoiseMaxAngle       unit.Angle
	OutputDir           string
	Annotate            bool
	CompressGroundTruth bool
	Attitude            AttitudeConfig
}

// IndexConfig holds the angle index build settings
type IndexConfig struct {
	MaxAngle  unit.Angle
	Workers   int
	BatchSize int
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	CatalogPath    string `json:"catalogPath" mapstructure:"catalogPath"`
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path     string // empty means in-memory
	DumpPath string // VACUUM INTO target on close, in-memory only
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type     string // sqlite, postgres, memory
	SQLite   SQLiteConfig
	Memory   MemoryConfig
	Postgres DatabaseConfig
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
	Metrics      bool
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled    bool
	Host       string
	Port       string
	Protocol   string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// GraylogConfig holds GELF output settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// MetricsConfig holds the Prometheus textfile settings
type MetricsConfig struct {
	TextfilePath string
}

// SetDefaults registers every default value. Load calls it; tests and the CLI
// may call it on their own when no file is read.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("catalog.table", "stars")
	viper.SetDefault("catalog.maxMagnitude", 4.0)
	viper.SetDefault("catalog.csv", "")

	viper.SetDefault("camera.focalLength", 600.0)
	viper.SetDefault("camera.width", 960)
	viper.SetDefault("camera.height", 540)
	viper.SetDefault("camera.verticalFovDeg", 0.0)
	viper.SetDefault("camera.aspect", 2.0)

	viper.SetDefault("scene.variant", "easy")
	viper.SetDefault("scene.count", 50)
	viper.SetDefault("scene.exact", false)
	viper.SetDefault("scene.seed", 7)
	viper.SetDefault("scene.batch", 1)
	viper.SetDefault("scene.patchSize", 5)
	viper.SetDefault("scene.edgeTolerance", 0.02)
	viper.SetDefault("scene.minSeparationDeg", 0.0)
	viper.SetDefault("scene.noiseMaxAngleDeg", 0.5)
	viper.SetDefault("scene.outputDir", "./output")
	viper.SetDefault("scene.annotate", true)
	viper.SetDefault("scene.compressGroundTruth", false)
	viper.SetDefault("scene.attitude.mode", "random")
	viper.SetDefault("scene.attitude.raDeg", 0.0)
	viper.SetDefault("scene.attitude.decDeg", 0.0)
	viper.SetDefault("scene.attitude.rollDeg", 0.0)
	viper.SetDefault("scene.attitude.eulerDeg", []float64{-70, 120, 70})
	viper.SetDefault("scene.attitude.matrix", []float64{})
	viper.SetDefault("scene.attitude.observer.longitudeDeg", 0.0)
	viper.SetDefault("scene.attitude.observer.latitudeDeg", 0.0)
	viper.SetDefault("scene.attitude.observer.height", 0.0)
	viper.SetDefault("scene.attitude.observer.time", "")

	viper.SetDefault("index.maxAngleDeg", 80.0)
	viper.SetDefault("index.workers", 4)
	viper.SetDefault("index.batchSize", 2000)

	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.sqlite.path", "./stars.sqlite3")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.memory.catalogPath", "./stars.csv")
	viper.SetDefault("storage.memory.outputDir", "./output")
	viper.SetDefault("storage.memory.compressOutput", true)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "startracker")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "startracker")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metrics", false)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "startracker")
	viper.SetDefault("influx.bucket", "startracker-runs")
	viper.SetDefault("influx.backupPath", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("metrics.textfile", "")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// IsNotFound reports whether err from Load means there was no file to read.
func IsNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

// BindFlags binds each command-line flag to the config key of the same name,
// so a flag given on the command line overrides the file.
func BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := flags.Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %q: %w", flag, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

func degrees(key string) unit.Angle {
	return unit.AngleFromDeg(viper.GetFloat64(key))
}

// GetCatalogConfig returns the catalog settings.
func GetCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Table:        viper.GetString("catalog.table"),
		MaxMagnitude: viper.GetFloat64("catalog.maxMagnitude"),
		CSVPath:      viper.GetString("catalog.csv"),
	}
}

// GetCameraConfig returns the camera settings.
func GetCameraConfig() CameraConfig {
	return CameraConfig{
		FocalLength: viper.GetFloat64("camera.focalLength"),
		Width:       viper.GetInt("camera.width"),
		Height:      viper.GetInt("camera.height"),
		VerticalFOV: degrees("camera.verticalFovDeg"),
		Aspect:      viper.GetFloat64("camera.aspect"),
	}
}

// GetSceneConfig returns the render settings. An unparsable observer time is
// an error; every other value falls back to its default.
func GetSceneConfig() (SceneConfig, error) {
	cfg := SceneConfig{
		Variant:             strings.ToLower(viper.GetString("scene.variant")),
		Count:               viper.GetInt("scene.count"),
		Exact:               viper.GetBool("scene.exact"),
		Seed:                viper.GetUint64("scene.seed"),
		Batch:               viper.GetInt("scene.batch"),
		PatchSize:           viper.GetInt("scene.patchSize"),
		EdgeTolerance:       viper.GetFloat64("scene.edgeTolerance"),
		MinSeparation:       degrees("scene.minSeparationDeg"),
		NoiseMaxAngle:       degrees("scene.noiseMaxAngleDeg"),
		OutputDir:           viper.GetString("scene.outputDir"),
		Annotate:            viper.GetBool("scene.annotate"),
		CompressGroundTruth: viper.GetBool("scene.compressGroundTruth"),
		Attitude: AttitudeConfig{
			Mode:   strings.ToLower(viper.GetString("scene.attitude.mode")),
			RA:     degrees("scene.attitude.raDeg"),
			Dec:    degrees("scene.attitude.decDeg"),
			Roll:   degrees("scene.attitude.rollDeg"),
			Matrix: floats("scene.attitude.matrix"),
			Observer: ObserverConfig{
				Longitude: degrees("scene.attitude.observer.longitudeDeg"),
				Latitude:  degrees("scene.attitude.observer.latitudeDeg"),
				Height:    viper.GetFloat64("scene.attitude.observer.height"),
			},
		},
	}

	euler := floats("scene.attitude.eulerDeg")
	if len(euler) != 3 {
		return cfg, fmt.Errorf("scene.attitude.eulerDeg needs 3 values, got %d", len(euler))
	}
	for i, d := range euler {
		cfg.Attitude.Euler[i] = unit.AngleFromDeg(d)
	}

	if ts := viper.GetString("scene.attitude.observer.time"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return cfg, fmt.Errorf("scene.attitude.observer.time: %w", err)
		}
		cfg.Attitude.Observer.Time = t
	}
	return cfg, nil
}

// GetIndexConfig returns the angle index settings.
func GetIndexConfig() IndexConfig {
	return IndexConfig{
		MaxAngle:  degrees("index.maxAngleDeg"),
		Workers:   viper.GetInt("index.workers"),
		BatchSize: viper.GetInt("index.batchSize"),
	}
}

// GetDatabaseConfig returns the Postgres connection settings.
func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
		SSLMode:  viper.GetString("db.sslmode"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	var mem MemoryConfig
	_ = viper.UnmarshalKey("storage.memory", &mem)
	return StorageConfig{
		Type: strings.ToLower(viper.GetString("storage.type")),
		SQLite: SQLiteConfig{
			Path:     viper.GetString("storage.sqlite.path"),
			DumpPath: viper.GetString("storage.sqlite.dumpPath"),
		},
		Memory:   mem,
		Postgres: GetDatabaseConfig(),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
		Metrics:      viper.GetBool("otel.metrics"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Protocol:   viper.GetString("influx.protocol"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns the GELF output settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetMetricsConfig returns the Prometheus textfile settings.
func GetMetricsConfig() MetricsConfig {
	return MetricsConfig{TextfilePath: viper.GetString("metrics.textfile")}
}

// floats reads a numeric list; JSON arrays arrive as []interface{}.
func floats(key string) []float64 {
	raw := viper.Get(key)
	switch v := raw.(type) {
	case []float64:
		return v
	case []interface{}:
		out := make([]float64, 0, len(v))
		for _, x := range v {
			switch n := x.(type) {
			case float64:
				out = append(out, n)
			case int:
				out = append(out, float64(n))
			}
		}
		return out
	case string:
		var out []float64
		for _, part := range strings.Split(v, ",") {
			var f float64
			if _, err := fmt.Sscanf(strings.TrimSpace(part), "%g", &f); err == nil {
				out = append(out, f)
			}
		}
		return out
	default:
		return nil
	}
}
