package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maltedev/phone-catalog-scraper/internal/app"
	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/scraper"
	"github.com/maltedev/phone-catalog-scraper/internal/sites"
	"github.com/maltedev/phone-catalog-scraper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var (
		siteName = flag.String("site", "", "Storefront to crawl: "+strings.Join(sites.Names(), ", "))
		locales  = flag.String("locales", strings.Join(cfg.Scraper.Locales, ","), "Comma-separated locales")
		maxPages = flag.Int("max-pages", cfg.Scraper.MaxPages, "Maximum pages per category or search crawl")
		search   = flag.Bool("search", cfg.Scraper.SearchSweep, "Run the search sweep after the category crawl")
		terms    = flag.String("terms", strings.Join(cfg.Scraper.SearchTerms, ","), "Comma-separated search terms (default: the site's brand list)")
		export   = flag.Bool("export", true, "Write local export files")
		dryRun   = flag.Bool("dry-run", false, "Log accepted records instead of storing them")
	)
	flag.Parse()

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	site, err := sites.Lookup(*siteName)
	if err != nil {
		log.Error("invalid site", "site", *siteName, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := scraper.RunOptions{
		Locales:           splitList(*locales),
		MaxPages:          *maxPages,
		Search:            *search,
		Terms:             splitList(*terms),
		FilterAccessories: cfg.Scraper.FilterAccessories,
		Export:            *export,
	}

	if err := crawl(ctx, cfg, site, opts, *dryRun, log); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("crawl interrupted")
		} else {
			log.Error("crawl failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

func crawl(ctx context.Context, cfg *config.Config, site *sites.Site, opts scraper.RunOptions, dryRun bool, log *slog.Logger) error {
	stack, err := app.Build(ctx, cfg, app.Options{DryRun: dryRun}, log)
	if err != nil {
		return fmt.Errorf("failed to build crawl stack: %w", err)
	}
	defer stack.Close()

	return execute(ctx, stack.Pipeline, site, opts, os.Stdout, log)
}

type pipelineRunner interface {
	Run(ctx context.Context, site *sites.Site, opts scraper.RunOptions) (*scraper.RunResult, error)
}

// execute runs one crawl and prints its summary. Dropped catalog batches are
// reported but do not fail the crawl.
func execute(ctx context.Context, p pipelineRunner, site *sites.Site, opts scraper.RunOptions, out io.Writer, log *slog.Logger) error {
	result, err := p.Run(ctx, site, opts)
	if result != nil {
		summary, merr := json.MarshalIndent(result, "", "  ")
		if merr == nil {
			fmt.Fprintln(out, string(summary))
		}
	}
	if err != nil {
		return err
	}

	if result.Write.Failed > 0 {
		log.Warn("catalog batches dropped",
			"failed", result.Write.Failed,
			"batches", result.Write.Batches,
			"written", result.Write.Written)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
