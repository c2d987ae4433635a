package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
)

const upsertListingSQL = `
	INSERT INTO catalog_listings (
		store, natural_ref, category, query,
		title, normalized_title, price, currency, link,
		brand, series, brand_or_model, model, suffix,
		locale, origin, country, scraped_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
	)
	ON CONFLICT (store, natural_ref, category, query) DO UPDATE SET
		title = EXCLUDED.title,
		normalized_title = EXCLUDED.normalized_title,
		price = EXCLUDED.price,
		currency = EXCLUDED.currency,
		link = EXCLUDED.link,
		brand = EXCLUDED.brand,
		series = EXCLUDED.series,
		brand_or_model = EXCLUDED.brand_or_model,
		model = EXCLUDED.model,
		suffix = EXCLUDED.suffix,
		locale = EXCLUDED.locale,
		origin = EXCLUDED.origin,
		scraped_at = EXCLUDED.scraped_at,
		last_seen = NOW()`

// ListingStore persists accepted records keyed by
// (store, natural_ref, category, query).
type ListingStore struct {
	db *DB
}

// NewListingStore creates a new listing store
func NewListingStore(db *DB) *ListingStore {
	return &ListingStore{db: db}
}

// UpsertTx queues one statement per record and runs them as a single batch
// inside tx. It returns the number of affected rows.
func (s *ListingStore) UpsertTx(ctx context.Context, tx pgx.Tx, records []models.ProductRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	b := &pgx.Batch{}
	for i := range records {
		r := &records[i]
		b.Queue(upsertListingSQL,
			r.Store, r.NaturalRef(), r.Category, r.QueryTerm,
			r.Title, r.NormalizedTitle, r.Price, r.Currency, r.Link,
			r.Brand, r.Series, r.BrandOrModel(), r.Model, r.Suffix,
			r.Locale, string(r.Origin), r.Country, r.ScrapedAt,
		)
	}

	br := tx.SendBatch(ctx, b)

	var affected int64
	for range records {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return affected, fmt.Errorf("failed to upsert listing: %w", err)
		}
		affected += tag.RowsAffected()
	}

	if err := br.Close(); err != nil {
		return affected, fmt.Errorf("failed to close batch: %w", err)
	}
	return affected, nil
}

// ListingStats counts stored listings per store.
type ListingStats struct {
	Total  int64            `json:"total"`
	Stores map[string]int64 `json:"stores"`
}

// Stats returns listing counts grouped by store.
func (s *ListingStore) Stats(ctx context.Context) (*ListingStats, error) {
	rows, err := s.db.Query(ctx, `SELECT store, COUNT(*) FROM catalog_listings GROUP BY store ORDER BY store`)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}
	defer rows.Close()

	stats := &ListingStats{Stores: make(map[string]int64)}
	for rows.Next() {
		var store string
		var n int64
		if err := rows.Scan(&store, &n); err != nil {
			return nil, fmt.Errorf("failed to scan listing count: %w", err)
		}
		stats.Stores[store] = n
		stats.Total += n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return stats, nil
}
