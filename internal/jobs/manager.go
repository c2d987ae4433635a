package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/phone-catalog-scraper/internal/scraper"
	"github.com/maltedev/phone-catalog-scraper/internal/sites"
)

const (
	listLimit   = 100
	maxMaxPages = 100
)

// Runner executes one crawl.
type Runner interface {
	Run(ctx context.Context, site *sites.Site, opts scraper.RunOptions) (*scraper.RunResult, error)
}

// Defaults fill in what a job request leaves out.
type Defaults struct {
	Locales           []string
	MaxPages          int
	Search            bool
	FilterAccessories bool
	Export            bool
}

// Spec is a crawl request. Nil or empty fields take the defaults.
type Spec struct {
	Site     string   `json:"site"`
	Locales  []string `json:"locales,omitempty"`
	Search   *bool    `json:"search,omitempty"`
	Terms    []string `json:"terms,omitempty"`
	MaxPages int      `json:"max_pages,omitempty"`
}

// Manager validates job requests and runs queued jobs one at a time.
type Manager struct {
	store        Store
	runner       Runner
	defaults     Defaults
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewManager creates a new job manager
func NewManager(store Store, runner Runner, defaults Defaults, pollInterval time.Duration, logger *slog.Logger) *Manager {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &Manager{
		store:        store,
		runner:       runner,
		defaults:     defaults,
		pollInterval: pollInterval,
		logger:       logger.With("component", "job_manager"),
	}
}

// CreateJob validates spec, fills in defaults and queues the job.
func (m *Manager) CreateJob(ctx context.Context, spec Spec) (*Job, error) {
	site, err := sites.Lookup(spec.Site)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	locales := spec.Locales
	if len(locales) == 0 {
		locales = m.defaults.Locales
	}
	var supported []string
	for _, l := range locales {
		l = strings.ToLower(strings.TrimSpace(l))
		if site.SupportsLocale(l) && !slices.Contains(supported, l) {
			supported = append(supported, l)
		}
	}
	if len(supported) == 0 {
		return nil, fmt.Errorf("%w: site %s supports locales %v", ErrInvalidJob, site.Name, site.Locales())
	}

	maxPages := spec.MaxPages
	if maxPages == 0 {
		maxPages = m.defaults.MaxPages
	}
	if maxPages < 1 || maxPages > maxMaxPages {
		return nil, fmt.Errorf("%w: max_pages must be between 1 and %d", ErrInvalidJob, maxMaxPages)
	}

	search := m.defaults.Search
	if spec.Search != nil {
		search = *spec.Search
	}

	job := &Job{
		ID:        uuid.New().String(),
		Site:      site.Name,
		Locales:   supported,
		Search:    search,
		Terms:     spec.Terms,
		MaxPages:  maxPages,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := m.store.Create(ctx, job); err != nil {
		return nil, err
	}

	m.logger.Info("job created", "id", job.ID, "site", job.Site, "locales", job.Locales)
	return job, nil
}

// GetJob returns a job by ID
func (m *Manager) GetJob(ctx context.Context, id string) (*Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrJobNotFound
	}
	return m.store.Get(ctx, id)
}

// ListJobs returns the most recent jobs
func (m *Manager) ListJobs(ctx context.Context) ([]*Job, error) {
	return m.store.List(ctx, listLimit)
}

// GetStats returns job statistics
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	return m.store.Stats(ctx)
}
