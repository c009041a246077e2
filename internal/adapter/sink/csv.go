// Package sink writes statistics records to their tabular
// destinations.
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
)

// CSVWriter writes one row per statistics record with the fixed
// export column selector.
type CSVWriter struct {
	path   string
	logger *slog.Logger
}

// NewCSVWriter creates a CSV sink targeting path.
func NewCSVWriter(path string, logger *slog.Logger) *CSVWriter {
	return &CSVWriter{path: path, logger: logger}
}

// WriteRecords writes the header and all records in output order,
// replacing any previous file.
func (w *CSVWriter) WriteRecords(_ context.Context, records []domain.StatisticsRecord) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(domain.ExportColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("write record tank=%d week=%s: %w", r.TankID, r.Week, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	w.logger.Info("csv export complete", "path", w.path, "records", len(records))
	return nil
}
