package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/starrynight/startracker/internal/config"
	"github.com/starrynight/startracker/internal/database"
	"github.com/starrynight/startracker/internal/influx"
	"github.com/starrynight/startracker/internal/logging"
	"github.com/starrynight/startracker/internal/metrics"
	intOtel "github.com/starrynight/startracker/internal/otel"
	"github.com/starrynight/startracker/internal/storage"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "startracker"
)

// command is one subcommand. flags registers its flags on fs and returns
// the flag to config key bindings.
type command struct {
	name    string
	summary string
	storage bool
	flags   func(fs *pflag.FlagSet) map[string]string
	run     func(ctx context.Context, a *app, fs *pflag.FlagSet) error
}

var commands = map[string]command{}

func register(c command) {
	commands[c.name] = c
}

// app carries the services shared by every command for one run.
type app struct {
	command string
	start   time.Time
	out     io.Writer

	slogManager *logging.SlogManager
	logger      *slog.Logger
	dbLogger    zerolog.Logger
	logFile     *os.File
	gelfWriter  *gelf.Writer

	otelProvider *intOtel.Provider
	instruments  *intOtel.Instruments

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	influx   *influx.Manager

	db      *database.Manager
	storage storage.Backend
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "%s %s (built %s)\n\nUsage: %s <command> [flags]\n\nCommands:\n", AppName, Version, BuildDate, AppName)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	name := strings.ToLower(args[0])
	cmd, ok := commands[name]
	if !ok {
		if name != "help" && name != "-h" && name != "--help" {
			fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		}
		usage(stderr)
		return 2
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("logs-dir", "./logs", "directory for the per-run log file, empty disables it")
	fs.String("storage", "sqlite", "storage backend: sqlite, postgres or memory")
	bindings := map[string]string{
		"log-level": "logLevel",
		"logs-dir":  "logsDir",
		"storage":   "storage.type",
	}
	if cmd.flags != nil {
		for flag, key := range cmd.flags(fs) {
			bindings[flag] = key
		}
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := config.Load(*configDir); err != nil && !config.IsNotFound(err) {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := config.BindFlags(fs, bindings); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	a := newApp(ctx, name, stdout, stderr)
	defer a.close()

	if cmd.storage {
		if err := a.initStorage(ctx); err != nil {
			return 1
		}
	}

	if err := cmd.run(ctx, a, fs); err != nil {
		a.logger.Error("Command failed", "error", err)
		return 1
	}
	a.logger.Info("Command finished", "duration", time.Since(a.start))
	return 0
}

// newApp wires logging, telemetry and metrics. Outputs that cannot be opened
// are logged and skipped; only storage failures abort a command.
func newApp(ctx context.Context, command string, stdout, stderr io.Writer) *app {
	a := &app{
		command:     command,
		start:       time.Now(),
		out:         stdout,
		slogManager: logging.NewSlogManager(),
	}
	level := config.GetString("logLevel")

	// console only until the other outputs exist
	a.slogManager.Setup(logging.Options{Console: stderr, Level: level})
	a.logger = a.slogManager.Logger()

	var fileOut io.Writer
	if logsDir := config.GetString("logsDir"); logsDir != "" {
		path := logging.LogFilePath(logsDir, AppName, command, a.start)
		f, err := logging.OpenLogFile(path)
		if err != nil {
			a.logger.Warn("Failed to open log file, logging to console only", "error", err)
		} else {
			a.logFile = f
			fileOut = f
		}
	}
	a.dbLogger = logging.NewZerolog(stderr, fileOut, level)

	var gelfHandler *logging.GelfHandler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGelfWriter(gl.Address, AppName)
		if err != nil {
			a.logger.Warn("Graylog output disabled", "error", err)
		} else {
			a.gelfWriter = w
			gelfHandler = logging.NewGelfHandler(w, a.slogManager.Level())
		}
	}

	otelCfg := config.GetOTelConfig()
	var metricOut io.Writer
	if otelCfg.Metrics {
		metricOut = fileOut
		if metricOut == nil {
			metricOut = stderr
		}
	}
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    fileOut,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
		MetricWriter: metricOut,
	})
	if err != nil {
		a.logger.Error("Failed to initialize OTel provider", "error", err)
		provider, _ = intOtel.New(intOtel.Config{})
	}
	a.otelProvider = provider

	a.slogManager.Setup(logging.Options{
		Console:  stderr,
		File:     fileOut,
		Level:    level,
		Provider: provider.LoggerProvider(),
		Gelf:     gelfHandler,
		Service:  otelCfg.ServiceName,
	})
	a.logger = a.slogManager.Logger().With("command", command)
	if a.logFile != nil {
		a.logger.Info("Logging to file", "path", a.logFile.Name())
	}

	a.instruments, err = intOtel.NewInstruments(provider.Meter(AppName))
	if err != nil {
		a.logger.Warn("Failed to create OTel instruments", "error", err)
		a.instruments, _ = intOtel.NewInstruments(noop.Meter{})
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector())
	a.metrics = metrics.New(a.registry)

	a.influx = influx.NewManager(a.dbLogger, config.GetInfluxConfig())
	if err := a.influx.Connect(ctx); err != nil && !errors.Is(err, influx.ErrDisabled) {
		a.logger.Warn("InfluxDB output disabled", "error", err)
	}

	return a
}

// close releases everything newApp and initStorage opened, in reverse.
func (a *app) close() {
	a.closeStorage()

	if err := a.influx.Close(); err != nil {
		a.logger.Warn("Failed to close InfluxDB output", "error", err)
	}

	if path := config.GetMetricsConfig().TextfilePath; path != "" {
		if err := metrics.WriteTextfile(path, a.registry); err != nil {
			a.logger.Warn("Failed to write metrics", "error", err)
		} else {
			a.logger.Debug("Wrote metrics", "path", path)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.otelProvider.Shutdown(ctx); err != nil {
		a.logger.Warn("Failed to shut down OTel provider", "error", err)
	}

	if a.gelfWriter != nil {
		_ = a.gelfWriter.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
