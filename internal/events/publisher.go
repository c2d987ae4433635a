package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/phone-catalog-scraper/internal/database"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
)

// EventType names an event on the catalog stream.
type EventType string

const (
	// EventTypeListingsUpserted is written once per stored batch.
	EventTypeListingsUpserted EventType = "LISTINGS_UPSERTED"

	AggregateListingBatch = "listing_batch"
)

// ListingsUpsertedPayload describes one stored batch.
type ListingsUpsertedPayload struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Batch     int       `json:"batch"`
	Store     string    `json:"store"`
	Records   int       `json:"records"`
	Written   int64     `json:"written"`
	Brands    []string  `json:"brands,omitempty"`
	Locales   []string  `json:"locales,omitempty"`
	Source    string    `json:"source"`
}

// NewListingsUpserted summarizes one batch of records.
func NewListingsUpserted(runID string, batch int, records []models.ProductRecord, written int64) *ListingsUpsertedPayload {
	p := &ListingsUpsertedPayload{
		RunID:   runID,
		Batch:   batch,
		Records: len(records),
		Written: written,
	}
	for i := range records {
		r := &records[i]
		if p.Store == "" {
			p.Store = r.Store
		}
		if r.Brand != "" && !slices.Contains(p.Brands, r.Brand) {
			p.Brands = append(p.Brands, r.Brand)
		}
		if r.Locale != "" && !slices.Contains(p.Locales, r.Locale) {
			p.Locales = append(p.Locales, r.Locale)
		}
	}
	slices.Sort(p.Brands)
	slices.Sort(p.Locales)
	return p
}

// OutboxWriter inserts outbox rows within a transaction.
type OutboxWriter interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, event *database.OutboxEvent) error
}

// Publisher writes events into the outbox inside the caller's transaction;
// the relay moves them to Redis after commit.
type Publisher struct {
	outbox OutboxWriter
	stream string
	logger *slog.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(outbox OutboxWriter, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = database.DefaultTargetStream
	}
	return &Publisher{
		outbox: outbox,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishWithTx writes the batch event to the outbox in tx
func (p *Publisher) PublishWithTx(ctx context.Context, tx pgx.Tx, payload *ListingsUpsertedPayload) error {
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypeListingsUpserted)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}
	if payload.Source == "" {
		payload.Source = "crawler"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	event := &database.OutboxEvent{
		AggregateType: AggregateListingBatch,
		AggregateID:   payload.RunID + ":" + strconv.Itoa(payload.Batch),
		EventType:     payload.EventType,
		Payload:       data,
		TargetStream:  p.stream,
	}

	if err := p.outbox.InsertWithTx(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	p.logger.Debug("event written to outbox",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"store", payload.Store,
		"records", payload.Records,
		"outbox_id", event.ID,
	)

	return nil
}
