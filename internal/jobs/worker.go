package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/maltedev/phone-catalog-scraper/internal/scraper"
	"github.com/maltedev/phone-catalog-scraper/internal/sites"
)

// StartWorker polls for pending jobs until ctx is cancelled. Jobs run one at
// a time; a queue backlog is drained before waiting for the next tick.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started", "poll_interval", m.pollInterval)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		for m.processNextJob(ctx) {
			if ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			m.logger.Info("job worker stopping")
			return
		case <-ticker.C:
		}
	}
}

// processNextJob runs one pending job and reports whether there was one.
func (m *Manager) processNextJob(ctx context.Context) bool {
	job, err := m.store.ClaimNext(ctx)
	if err != nil {
		m.logger.Error("failed to claim job", "error", err)
		return false
	}
	if job == nil {
		return false
	}

	m.logger.Info("processing job", "id", job.ID, "site", job.Site)

	progress, err := m.processJob(ctx, job)

	// the final status must be written even when shutdown interrupted the run
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err != nil {
		m.logger.Error("job failed", "id", job.ID, "error", err)
		if ferr := m.store.Fail(writeCtx, job.ID, progress, err); ferr != nil {
			m.logger.Error("failed to mark job as failed", "id", job.ID, "error", ferr)
		}
		return true
	}

	if err := m.store.Complete(writeCtx, job.ID, progress); err != nil {
		m.logger.Error("failed to mark job as completed", "id", job.ID, "error", err)
	}

	m.logger.Info("job completed",
		"id", job.ID,
		"pages", progress.Pages,
		"kept", progress.Kept,
		"stored", progress.Stored,
		"failed_batches", progress.FailedBatches)
	return true
}

func (m *Manager) processJob(ctx context.Context, job *Job) (Progress, error) {
	site, err := sites.Lookup(job.Site)
	if err != nil {
		return Progress{}, err
	}

	result, err := m.runner.Run(ctx, site, scraper.RunOptions{
		RunID:             job.ID,
		Locales:           job.Locales,
		MaxPages:          job.MaxPages,
		Search:            job.Search,
		Terms:             job.Terms,
		FilterAccessories: m.defaults.FilterAccessories,
		Export:            m.defaults.Export,
	})

	var progress Progress
	if result != nil {
		progress = Progress{
			Pages:         result.Pages,
			Cards:         result.Cards,
			Kept:          len(result.Records),
			Stored:        result.Write.Written,
			FailedBatches: result.Write.Failed,
		}
	}
	if err != nil {
		return progress, fmt.Errorf("run failed: %w", err)
	}
	if result.Write.Failed > 0 {
		m.logger.Warn("catalog batches dropped",
			"id", job.ID,
			"failed", result.Write.Failed,
			"batches", result.Write.Batches)
	}
	return progress, nil
}
