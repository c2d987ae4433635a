package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/maltedev/phone-catalog-scraper/internal/models"
)

// JSONExporter writes records as an indented JSON array.
type JSONExporter struct{}

// Format returns the format name.
func (JSONExporter) Format() string { return "json" }

// Export writes records to path atomically.
func (JSONExporter) Export(_ context.Context, path string, records []models.ProductRecord) error {
	if records == nil {
		records = []models.ProductRecord{}
	}

	return writeAtomic(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("failed to encode json export: %w", err)
		}
		return nil
	})
}
