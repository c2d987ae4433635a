package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maltedev/phone-catalog-scraper/internal/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE listings (
	store            TEXT NOT NULL,
	category         TEXT NOT NULL,
	title            TEXT NOT NULL,
	normalized_title TEXT NOT NULL,
	price            REAL,
	currency         TEXT,
	link             TEXT,
	brand            TEXT,
	series           TEXT,
	brand_or_model   TEXT,
	model            TEXT,
	suffix           TEXT,
	query_term       TEXT,
	locale           TEXT,
	origin           TEXT,
	country          TEXT,
	scraped_at       TEXT NOT NULL
)`

const sqliteInsert = `
INSERT INTO listings (
	store, category, title, normalized_title, price, currency, link,
	brand, series, brand_or_model, model, suffix,
	query_term, locale, origin, country, scraped_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteExporter writes a standalone database file with one listings table.
type SQLiteExporter struct{}

// Format returns the format name.
func (SQLiteExporter) Format() string { return "sqlite" }

// Export replaces path with a fresh database holding records.
func (SQLiteExporter) Export(ctx context.Context, path string, records []models.ProductRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()

	if err := writeSQLite(ctx, tmpName, records); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename export: %w", err)
	}
	return nil
}

func writeSQLite(ctx context.Context, path string, records []models.ProductRecord) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite export: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close sqlite export: %w", cerr)
		}
	}()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sqlite transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return fmt.Errorf("failed to prepare sqlite insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		row := csvRow(r)
		var price any
		if v, ok := r.PriceValue(); ok {
			price = v
		}

		args := make([]any, len(row))
		for j, v := range row {
			args[j] = v
		}
		args[4] = price

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert sqlite row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sqlite export: %w", err)
	}
	return nil
}
