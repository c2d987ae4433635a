// Package jobs queues crawl requests in Postgres and runs them one at a time.
package jobs

import (
	"context"
	"errors"
	"time"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrInvalidJob  = errors.New("invalid job")
)

// Job is a queued or finished crawl.
type Job struct {
	ID            string     `json:"id"`
	Site          string     `json:"site"`
	Locales       []string   `json:"locales"`
	Search        bool       `json:"search"`
	Terms         []string   `json:"terms"`
	MaxPages      int        `json:"max_pages"`
	Status        string     `json:"status"`
	PagesFetched  int        `json:"pages_fetched"`
	CardsSeen     int        `json:"cards_seen"`
	RecordsKept   int        `json:"records_kept"`
	RecordsStored int        `json:"records_stored"`
	BatchesFailed int        `json:"batches_failed"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Progress is what a finished run reports back to its job row. Failed
// batches are dropped and counted; they do not fail the job.
type Progress struct {
	Pages         int
	Cards         int
	Kept          int
	Stored        int
	FailedBatches int
}

// Stats summarizes all jobs.
type Stats struct {
	TotalJobs     int     `json:"total_jobs"`
	PendingJobs   int     `json:"pending_jobs"`
	RunningJobs   int     `json:"running_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	FailedJobs    int     `json:"failed_jobs"`
	RecordsStored int64   `json:"records_stored"`
	SuccessRate   float64 `json:"success_rate"`
}

// Store persists jobs.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, limit int) ([]*Job, error)
	// ClaimNext marks the oldest pending job running and returns it, or nil
	// when the queue is empty.
	ClaimNext(ctx context.Context) (*Job, error)
	Complete(ctx context.Context, id string, p Progress) error
	Fail(ctx context.Context, id string, p Progress, cause error) error
	Stats(ctx context.Context) (*Stats, error)
}
