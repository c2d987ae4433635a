// Package app assembles the crawl stack from configuration for the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/phone-catalog-scraper/internal/browser"
	"github.com/maltedev/phone-catalog-scraper/internal/catalog"
	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/database"
	"github.com/maltedev/phone-catalog-scraper/internal/events"
	"github.com/maltedev/phone-catalog-scraper/internal/fetch"
	"github.com/maltedev/phone-catalog-scraper/internal/ratelimit"
	"github.com/maltedev/phone-catalog-scraper/internal/retry"
	"github.com/maltedev/phone-catalog-scraper/internal/scraper"
)

// Stack holds everything a crawl needs. Close releases it in reverse order.
type Stack struct {
	Pipeline *scraper.Pipeline
	DB       *database.DB
	Listings *database.ListingStore
	Outbox   *database.OutboxRepository

	closers []func()
}

// Options tweak how the stack is built.
type Options struct {
	// DryRun logs accepted records instead of writing them to the catalog.
	DryRun bool
}

// Build loads the rules and wires fetcher, writer and pipeline from cfg.
// Call Close on the returned stack to release its connections.
func Build(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (*Stack, error) {
	s := &Stack{}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	fetcher, err := s.buildFetcher(cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	writer, err := s.buildWriter(ctx, cfg, opts, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Pipeline = scraper.NewPipeline(fetcher, scraper.NewRecordBuilder(rules), writer, scraper.Config{
		BatchSize:     cfg.Scraper.BatchSize,
		ExportDir:     cfg.Export.Dir,
		ExportFormats: cfg.Export.Formats,
	}, logger)

	return s, nil
}

// Close releases everything Build opened, in reverse order.
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func (s *Stack) buildFetcher(cfg *config.Config, logger *slog.Logger) (*fetch.Fetcher, error) {
	var transport fetch.Transport
	switch cfg.Scraper.Transport {
	case "browser":
		b, err := browser.New(browser.OptionsFromConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		s.closers = append(s.closers, func() {
			if err := b.Close(); err != nil {
				logger.Error("failed to close browser", "error", err)
			}
		})
		transport = browser.NewTransport(b)
	default:
		t, err := fetch.NewHTTPTransport(fetch.HTTPOptions{
			Timeout: cfg.Scraper.RequestTimeout,
			Proxy:   cfg.Scraper.Proxy,
			NoProxy: cfg.ProxyExclusions(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create http transport: %w", err)
		}
		transport = t
	}

	opts := []fetch.Option{
		fetch.WithLimiter(ratelimit.NewAdaptive(cfg.Scraper.MinDelay, cfg.Scraper.MaxDelay)),
		fetch.WithPolicy(retry.Policy{
			MaxAttempts: cfg.Scraper.MaxAttempts,
			BaseDelay:   cfg.Scraper.BackoffBase,
			MaxDelay:    cfg.Scraper.BackoffMax,
			Multiplier:  2,
		}),
		fetch.WithIdentity(fetch.NewIdentityPool(cfg.Scraper.UserAgents)),
		fetch.WithLogger(logger),
	}
	if cfg.Scraper.RespectRobots {
		opts = append(opts, fetch.WithRobots(fetch.NewRobotsPolicy(transport)))
	}

	return fetch.New(transport, opts...), nil
}

func (s *Stack) buildWriter(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (catalog.Writer, error) {
	if opts.DryRun || cfg.Sink == "none" {
		return catalog.NewLogWriter(logger), nil
	}

	db, err := database.New(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s.closers = append(s.closers, db.Close)

	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	s.DB = db
	s.Listings = database.NewListingStore(db)
	s.Outbox = database.NewOutboxRepository(db)

	publisher := events.NewPublisher(s.Outbox, cfg.Redis.Stream, logger)
	return catalog.NewPostgresWriter(db, s.Listings, publisher), nil
}
