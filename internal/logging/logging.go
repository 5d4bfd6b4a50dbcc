package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogFilePath builds the per-run log file path, e.g.
// logs/startracker.render.20260212_213836.log.
func LogFilePath(logsDir, app, command string, runStart time.Time) string {
	name := app
	if command != "" {
		name += "." + command
	}
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", name, runStart.Format("20060102_150405")))
}

// OpenLogFile creates the logs directory if needed and opens path for
// appending.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
