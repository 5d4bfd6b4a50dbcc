package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	v1 "github.com/starrynight/startracker/internal/storage/memory/export/v1"
)

// exportJSON writes the ledger to OutputDir. Caller holds b.mu.
func (b *Backend) exportJSON() error {
	data := &v1.LedgerData{Stars: b.stars, Scenes: b.scenes}
	if b.indexWritten {
		data.Pairs = b.index.Pairs()
	}
	export := v1.Build(data)
	export.ExportedAt = b.now().UTC()

	timestamp := export.ExportedAt.Format("20060102_150405")
	filename := fmt.Sprintf("startracker_%s.json", timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)
	if err := WriteJSON(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

// WriteJSON encodes data to path, gzip-compressed when compress is set.
func WriteJSON(path string, data any, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gzWriter *gzip.Writer
	if compress {
		gzWriter = gzip.NewWriter(f)
		w = gzWriter
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if gzWriter != nil {
		if err := gzWriter.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	return f.Close()
}
