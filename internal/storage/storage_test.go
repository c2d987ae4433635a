package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maltedev/phone-catalog-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []models.ProductRecord {
	price := 54999.0
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.ProductRecord{
		{
			Title:           "ايفون 15 برو ماكس 256 جيجا",
			NormalizedTitle: "iPhone 15 Pro Max 256 GB",
			Price:           &price,
			Currency:        "EGP",
			Link:            "https://2b.com.eg/ar/iphone-15-pro-max.html",
			Store:           "2B",
			Category:        "mobiles",
			Brand:           "apple",
			Model:           "15 Pro Max",
			Suffix:          "256GB",
			Locale:          "ar",
			Origin:          models.OriginCategory,
			Country:         "EG",
			ScrapedAt:       at,
		},
		{
			Title:           "Samsung Galaxy A05, 4GB RAM",
			NormalizedTitle: "Samsung Galaxy A05, 4GB RAM",
			Currency:        "EGP",
			Store:           "B.TECH",
			Category:        "mobiles",
			Brand:           "samsung",
			Series:          "galaxy",
			Model:           "A05",
			Suffix:          "4GB RAM",
			QueryTerm:       "samsung",
			Locale:          "en",
			Origin:          models.OriginSearch,
			Country:         "EG",
			ScrapedAt:       at,
		},
	}
}

func TestNewExporter(t *testing.T) {
	for _, f := range []string{"json", "CSV", " sqlite "} {
		exp, err := NewExporter(f)
		require.NoError(t, err, f)
		assert.NotEmpty(t, exp.Format())
	}

	_, err := NewExporter("xml")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 30, 0, 0, time.FixedZone("EET", 2*3600))
	assert.Equal(t, "noon_20250301T103000Z.json", FileName("noon", at, "json"))
	assert.Equal(t, "noon_20250301T103000Z.db", FileName("noon", at, "sqlite"))
}

func TestJSONExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, JSONExporter{}.Export(context.Background(), path, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []models.ProductRecord
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "15 Pro Max", got[0].Model)
	assert.Nil(t, got[1].Price)
	assert.Contains(t, string(data), "ايفون")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestJSONExporter_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, JSONExporter{}.Export(context.Background(), path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestCSVExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, CSVExporter{}.Export(context.Background(), path, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\ufeff")))

	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff")))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "54999.00", rows[1][4])
	assert.Equal(t, "Apple", rows[1][9])
	assert.Equal(t, "", rows[2][4])
	assert.Equal(t, "Samsung Galaxy", rows[2][9])
	assert.Equal(t, "2025-03-01T12:00:00Z", rows[2][16])
}

func TestSQLiteExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	require.NoError(t, SQLiteExporter{}.Export(context.Background(), path, sampleRecords()))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM listings`).Scan(&n))
	assert.Equal(t, 2, n)

	var price sql.NullFloat64
	require.NoError(t, db.QueryRow(`SELECT price FROM listings WHERE store = 'B.TECH'`).Scan(&price))
	assert.False(t, price.Valid)

	require.NoError(t, db.QueryRow(`SELECT price FROM listings WHERE store = '2B'`).Scan(&price))
	assert.Equal(t, 54999.0, price.Float64)
}

func TestExportAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	paths, err := ExportAll(context.Background(), dir, "jumia", at, []string{"json", "csv", "xml"}, sampleRecords())
	assert.Error(t, err)
	assert.Len(t, paths, 2)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}
