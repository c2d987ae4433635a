package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/maltedev/phone-catalog-scraper/internal/models"
)

var csvHeader = []string{
	"store", "category", "title", "normalized_title", "price", "currency", "link",
	"brand", "series", "brand_or_model", "model", "suffix",
	"query_term", "locale", "origin", "country", "scraped_at",
}

// CSVExporter writes records as CSV with a header row.
type CSVExporter struct{}

// Format returns the format name.
func (CSVExporter) Format() string { return "csv" }

// Export writes records to path atomically.
func (CSVExporter) Export(_ context.Context, path string, records []models.ProductRecord) error {
	return writeAtomic(path, func(f *os.File) error {
		// BOM so spreadsheet tools read the Arabic titles as UTF-8
		if _, err := f.WriteString("\ufeff"); err != nil {
			return fmt.Errorf("failed to write csv export: %w", err)
		}

		w := csv.NewWriter(f)
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
		for i := range records {
			if err := w.Write(csvRow(&records[i])); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("failed to flush csv export: %w", err)
		}
		return nil
	})
}

func csvRow(r *models.ProductRecord) []string {
	price := ""
	if v, ok := r.PriceValue(); ok {
		price = strconv.FormatFloat(v, 'f', 2, 64)
	}
	return []string{
		r.Store, r.Category, r.Title, r.NormalizedTitle, price, r.Currency, r.Link,
		r.Brand, r.Series, r.BrandOrModel(), r.Model, r.Suffix,
		r.QueryTerm, r.Locale, string(r.Origin), r.Country, r.ScrapedAt.UTC().Format(time.RFC3339),
	}
}
