package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/phone-catalog-scraper/internal/database"
)

const jobColumns = `
	id, site, locales, search, terms, max_pages, status,
	pages_fetched, cards_seen, records_kept, records_stored, batches_failed,
	error, created_at, started_at, completed_at`

// PostgresStore keeps jobs in the crawl_jobs table.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new job store
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func scanJob(row pgx.Row) (*Job, error) {
	job := &Job{}
	err := row.Scan(
		&job.ID, &job.Site, &job.Locales, &job.Search, &job.Terms, &job.MaxPages, &job.Status,
		&job.PagesFetched, &job.CardsSeen, &job.RecordsKept, &job.RecordsStored, &job.BatchesFailed,
		&job.Error, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	return job, err
}

// Create inserts a new job
func (s *PostgresStore) Create(ctx context.Context, job *Job) error {
	query := `
		INSERT INTO crawl_jobs
		(id, site, locales, search, terms, max_pages, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	terms := job.Terms
	if terms == nil {
		terms = []string{}
	}

	_, err := s.db.Exec(ctx, query,
		job.ID, job.Site, job.Locales, job.Search, terms, job.MaxPages, job.Status, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Get returns a job by ID
func (s *PostgresStore) Get(ctx context.Context, id string) (*Job, error) {
	job, err := scanJob(s.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM crawl_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// List returns the newest jobs first
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Job, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+jobColumns+` FROM crawl_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return jobs, nil
}

// ClaimNext locks the oldest pending job with SKIP LOCKED and marks it running.
func (s *PostgresStore) ClaimNext(ctx context.Context) (*Job, error) {
	query := `
		UPDATE crawl_jobs
		SET status = $1, started_at = NOW()
		WHERE id = (
			SELECT id FROM crawl_jobs
			WHERE status = $2
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRow(ctx, query, StatusRunning, StatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

// Complete records a finished run
func (s *PostgresStore) Complete(ctx context.Context, id string, p Progress) error {
	return s.finish(ctx, id, StatusCompleted, p, "")
}

// Fail records a failed run with its cause
func (s *PostgresStore) Fail(ctx context.Context, id string, p Progress, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return s.finish(ctx, id, StatusFailed, p, msg)
}

func (s *PostgresStore) finish(ctx context.Context, id, status string, p Progress, errMsg string) error {
	query := `
		UPDATE crawl_jobs
		SET status = $1, pages_fetched = $2, cards_seen = $3, records_kept = $4,
			records_stored = $5, batches_failed = $6, error = $7, completed_at = NOW()
		WHERE id = $8`

	tag, err := s.db.Exec(ctx, query, status, p.Pages, p.Cards, p.Kept, p.Stored, p.FailedBatches, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Stats returns job statistics
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'running'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(SUM(records_stored), 0)
		FROM crawl_jobs`

	stats := &Stats{}
	err := s.db.QueryRow(ctx, query).Scan(
		&stats.TotalJobs, &stats.PendingJobs, &stats.RunningJobs,
		&stats.CompletedJobs, &stats.FailedJobs, &stats.RecordsStored,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	if finished := stats.CompletedJobs + stats.FailedJobs; finished > 0 {
		stats.SuccessRate = float64(stats.CompletedJobs) / float64(finished) * 100
	}
	return stats, nil
}
