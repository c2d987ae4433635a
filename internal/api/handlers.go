package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/phone-catalog-scraper/internal/database"
	"github.com/maltedev/phone-catalog-scraper/internal/jobs"
	"github.com/maltedev/phone-catalog-scraper/internal/sites"
)

const (
	outboxPendingWarn   = 1000
	outboxDeadLetterErr = 100
)

// JobService is the part of the job manager the API drives.
type JobService interface {
	CreateJob(ctx context.Context, spec jobs.Spec) (*jobs.Job, error)
	GetJob(ctx context.Context, id string) (*jobs.Job, error)
	ListJobs(ctx context.Context) ([]*jobs.Job, error)
	GetStats(ctx context.Context) (*jobs.Stats, error)
}

// ListingCounter reports stored listing totals.
type ListingCounter interface {
	Stats(ctx context.Context) (*database.ListingStats, error)
}

// OutboxCounter reports outbox backlog for the health check.
type OutboxCounter interface {
	Counts(ctx context.Context) (*database.OutboxCounts, error)
}

// Handlers serves the job API.
type Handlers struct {
	jobs     JobService
	listings ListingCounter
	outbox   OutboxCounter
	logger   *slog.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(jobs JobService, listings ListingCounter, outbox OutboxCounter, logger *slog.Logger) *Handlers {
	return &Handlers{
		jobs:     jobs,
		listings: listings,
		outbox:   outbox,
		logger:   logger.With("component", "api"),
	}
}

// Routes mounts the job API and the health check on a fresh router.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", h.CreateJob)
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{jobID}", h.GetJob)
		r.Get("/sites", h.ListSites)
		r.Get("/stats", h.GetStats)
	})
	return r
}

// CreateJobResponse is returned when a job is queued.
type CreateJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreateJob handles POST /api/v1/jobs
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var spec jobs.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if spec.Site == "" {
		h.respondError(w, http.StatusBadRequest, "site is required")
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), spec)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidJob) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Job created successfully",
	})
}

// GetJob handles GET /api/v1/jobs/{jobID}
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			h.respondError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("failed to get job", "id", jobID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if list == nil {
		list = []*jobs.Job{}
	}

	h.respondJSON(w, http.StatusOK, list)
}

// SiteInfo describes a registered storefront.
type SiteInfo struct {
	Name        string   `json:"name"`
	Store       string   `json:"store"`
	Country     string   `json:"country"`
	Currency    string   `json:"currency"`
	Locales     []string `json:"locales"`
	SearchTerms []string `json:"search_terms"`
}

// ListSites handles GET /api/v1/sites
func (h *Handlers) ListSites(w http.ResponseWriter, r *http.Request) {
	all := sites.All()
	out := make([]SiteInfo, 0, len(all))
	for _, s := range all {
		out = append(out, SiteInfo{
			Name:        s.Name,
			Store:       s.Store,
			Country:     s.Country,
			Currency:    s.Currency,
			Locales:     s.Locales(),
			SearchTerms: s.SearchTerms,
		})
	}
	h.respondJSON(w, http.StatusOK, out)
}

// StatsResponse combines job and listing statistics.
type StatsResponse struct {
	Jobs     *jobs.Stats            `json:"jobs"`
	Listings *database.ListingStats `json:"listings,omitempty"`
	Outbox   *database.OutboxCounts `json:"outbox,omitempty"`
}

// GetStats handles GET /api/v1/stats
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.jobs.GetStats(ctx)
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	resp := StatsResponse{Jobs: stats}

	if h.listings != nil {
		ls, err := h.listings.Stats(ctx)
		if err != nil {
			h.logger.Error("failed to get listing stats", "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to get stats")
			return
		}
		resp.Listings = ls
	}

	if h.outbox != nil {
		oc, err := h.outbox.Counts(ctx)
		if err != nil {
			h.logger.Error("failed to get outbox counts", "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to get stats")
			return
		}
		resp.Outbox = oc
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Health reports ok unless the outbox has backed up.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{"status": "ok"}
	status := http.StatusOK

	if h.outbox != nil {
		counts, err := h.outbox.Counts(r.Context())
		if err != nil {
			h.logger.Error("failed to get outbox counts", "error", err)
			health["status"] = "error"
			health["message"] = "outbox unavailable"
			h.respondJSON(w, http.StatusServiceUnavailable, health)
			return
		}

		health["outbox"] = counts
		if counts.Pending > outboxPendingWarn {
			health["status"] = "warning"
			health["message"] = "High number of pending outbox events"
		}
		if counts.DeadLetter > outboxDeadLetterErr {
			health["status"] = "error"
			health["message"] = "High number of dead letter events"
			status = http.StatusServiceUnavailable
		}
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
