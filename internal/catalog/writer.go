// Package catalog writes accepted records to the catalog store in bounded
// batches.
package catalog

import (
	"context"
	"log/slog"

	"github.com/maltedev/phone-catalog-scraper/internal/models"
)

// DefaultBatchSize is used when no batch size is configured.
const DefaultBatchSize = 500

// Writer stores one batch of records.
type Writer interface {
	Upsert(ctx context.Context, records []models.ProductRecord) error
}

// RunWriter is a Writer that tags what it stores with the crawl run.
type RunWriter interface {
	Writer
	ForRun(runID string) Writer
}

// Summary counts the outcome of a BatchWriter.Write call.
type Summary struct {
	Batches int `json:"batches"`
	Failed  int `json:"failed"`
	Written int `json:"written"`
}

// BatchWriter splits records into chunks of at most size records. A failed
// chunk is logged and skipped; later chunks are still attempted.
type BatchWriter struct {
	writer Writer
	size   int
	logger *slog.Logger
}

// NewBatchWriter creates a batch writer. A non-positive size falls back to
// DefaultBatchSize.
func NewBatchWriter(w Writer, size int, logger *slog.Logger) *BatchWriter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchWriter{
		writer: w,
		size:   size,
		logger: logger.With("component", "batch_writer"),
	}
}

// Write stores records chunk by chunk and reports how many chunks failed.
func (b *BatchWriter) Write(ctx context.Context, records []models.ProductRecord) Summary {
	var sum Summary

	for start := 0; start < len(records); start += b.size {
		if ctx.Err() != nil {
			b.logger.Warn("write cancelled", "remaining", len(records)-start, "error", ctx.Err())
			break
		}

		end := min(start+b.size, len(records))
		batch := records[start:end]
		sum.Batches++

		if err := b.writer.Upsert(ctx, batch); err != nil {
			sum.Failed++
			b.logger.Error("batch upsert failed",
				"batch", sum.Batches,
				"records", len(batch),
				"error", err)
			continue
		}
		sum.Written += len(batch)
	}

	b.logger.Info("catalog write finished",
		"batches", sum.Batches,
		"failed", sum.Failed,
		"written", sum.Written)

	return sum
}

// LogWriter stores nothing. It backs the "none" sink for dry runs.
type LogWriter struct {
	logger *slog.Logger
}

// NewLogWriter creates a writer that only logs.
func NewLogWriter(logger *slog.Logger) *LogWriter {
	return &LogWriter{logger: logger.With("component", "log_writer")}
}

// Upsert logs the batch size and drops the records.
func (w *LogWriter) Upsert(_ context.Context, records []models.ProductRecord) error {
	w.logger.Info("dry run, records not stored", "records", len(records))
	return nil
}
