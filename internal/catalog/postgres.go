package catalog

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/phone-catalog-scraper/internal/events"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
)

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// ListingUpserter stores records within a transaction.
type ListingUpserter interface {
	UpsertTx(ctx context.Context, tx pgx.Tx, records []models.ProductRecord) (int64, error)
}

// EventPublisher writes a batch event to the outbox within a transaction.
type EventPublisher interface {
	PublishWithTx(ctx context.Context, tx pgx.Tx, payload *events.ListingsUpsertedPayload) error
}

// PostgresWriter stores each batch and its outbox event in one transaction.
type PostgresWriter struct {
	db        TxRunner
	listings  ListingUpserter
	publisher EventPublisher
	runID     string
	batch     *atomic.Int64
}

// NewPostgresWriter builds a writer; publisher may be nil to skip events.
func NewPostgresWriter(db TxRunner, listings ListingUpserter, publisher EventPublisher) *PostgresWriter {
	return &PostgresWriter{
		db:        db,
		listings:  listings,
		publisher: publisher,
		batch:     new(atomic.Int64),
	}
}

// ForRun returns a writer whose events carry runID. Batch numbers restart
// for each run.
func (w *PostgresWriter) ForRun(runID string) Writer {
	return &PostgresWriter{
		db:        w.db,
		listings:  w.listings,
		publisher: w.publisher,
		runID:     runID,
		batch:     new(atomic.Int64),
	}
}

// Upsert stores records and their batch event atomically.
func (w *PostgresWriter) Upsert(ctx context.Context, records []models.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := int(w.batch.Add(1))

	err := w.db.Transaction(ctx, func(tx pgx.Tx) error {
		written, err := w.listings.UpsertTx(ctx, tx, records)
		if err != nil {
			return err
		}

		if w.publisher == nil {
			return nil
		}
		return w.publisher.PublishWithTx(ctx, tx, events.NewListingsUpserted(w.runID, batch, records, written))
	})
	if err != nil {
		return fmt.Errorf("failed to store batch %d: %w", batch, err)
	}
	return nil
}
