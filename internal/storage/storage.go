// Package storage exports a run's records to local files.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maltedev/phone-catalog-scraper/internal/models"
)

// Exporter writes records to a file in one format.
type Exporter interface {
	Format() string
	Export(ctx context.Context, path string, records []models.ProductRecord) error
}

// NewExporter returns the exporter for format: json, csv or sqlite.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return JSONExporter{}, nil
	case "csv":
		return CSVExporter{}, nil
	case "sqlite":
		return SQLiteExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// FileName is "<site>_<UTC timestamp>.<ext>".
func FileName(site string, at time.Time, format string) string {
	ext := strings.ToLower(format)
	if ext == "sqlite" {
		ext = "db"
	}
	return fmt.Sprintf("%s_%s.%s", site, at.UTC().Format("20060102T150405Z"), ext)
}

// ExportAll writes records in every format to dir and returns the written
// paths. A format that fails does not prevent the others.
func ExportAll(ctx context.Context, dir, site string, at time.Time, formats []string, records []models.ProductRecord) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	var paths []string
	var errs []string
	for _, format := range formats {
		exp, err := NewExporter(format)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		path := filepath.Join(dir, FileName(site, at, exp.Format()))
		if err := exp.Export(ctx, path, records); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		paths = append(paths, path)
	}

	if len(errs) > 0 {
		return paths, fmt.Errorf("export failed: %s", strings.Join(errs, "; "))
	}
	return paths, nil
}

// writeAtomic writes through a temp file in the target directory and renames
// it into place.
func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename export: %w", err)
	}
	return nil
}
