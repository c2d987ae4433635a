package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/maltedev/phone-catalog-scraper/internal/catalog"
	"github.com/maltedev/phone-catalog-scraper/internal/classify"
	"github.com/maltedev/phone-catalog-scraper/internal/dedupe"
	"github.com/maltedev/phone-catalog-scraper/internal/fetch"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
	"github.com/maltedev/phone-catalog-scraper/internal/sites"
	"github.com/maltedev/phone-catalog-scraper/internal/storage"
)

// Config holds pipeline settings
type Config struct {
	BatchSize     int
	ExportDir     string
	ExportFormats []string
}

// RunOptions select what a single run crawls.
type RunOptions struct {
	RunID             string
	Locales           []string
	MaxPages          int
	Search            bool
	Terms             []string
	FilterAccessories bool
	Export            bool
}

// RunResult is the summary of a run.
type RunResult struct {
	RunID      string                 `json:"run_id"`
	Site       string                 `json:"site"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Pages      int                    `json:"pages"`
	Cards      int                    `json:"cards"`
	Kept       int                    `json:"kept"`
	Skipped    int                    `json:"skipped"`
	Rejected   map[string]int         `json:"rejected"`
	Invalid    int                    `json:"invalid"`
	Duplicates int                    `json:"duplicates"`
	Unresolved []string               `json:"unresolved,omitempty"`
	Crawls     map[string]CrawlStats  `json:"crawls"`
	Exports    []string               `json:"exports,omitempty"`
	Write      catalog.Summary        `json:"write"`
	Records    []models.ProductRecord `json:"-"`
}

// Pipeline crawls one site per Run. It keeps no state between runs.
type Pipeline struct {
	fetcherFor func(site *sites.Site) PageFetcher
	builder    *RecordBuilder
	writer     catalog.Writer
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline wires the pipeline; writer may be nil to skip storing.
func NewPipeline(fetcher *fetch.Fetcher, builder *RecordBuilder, writer catalog.Writer, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = catalog.DefaultBatchSize
	}
	return &Pipeline{
		fetcherFor: func(site *sites.Site) PageFetcher {
			return fetcher.ForSite(site.Alternate)
		},
		builder: builder,
		writer:  writer,
		cfg:     cfg,
		logger:  logger.With("component", "pipeline"),
		now:     time.Now,
	}
}

// run is the mutable state of one Run call.
type run struct {
	site    *sites.Site
	opts    RunOptions
	result  *RunResult
	seen    *dedupe.Set
	builder *RecordBuilder
	now     func() time.Time
}

// Run crawls the site. Fetch, parse and store problems are logged and
// counted, never returned; an error means the options were unusable or ctx
// ended.
func (p *Pipeline) Run(ctx context.Context, site *sites.Site, opts RunOptions) (*RunResult, error) {
	if site == nil {
		return nil, fmt.Errorf("site is required")
	}

	locales := make([]string, 0, len(opts.Locales))
	for _, l := range opts.Locales {
		if site.SupportsLocale(l) {
			locales = append(locales, l)
		} else {
			p.logger.Warn("locale not supported by site, skipping", "site", site.Name, "locale", l)
		}
	}
	if len(locales) == 0 {
		return nil, fmt.Errorf("%w for %s (has %v)", ErrNoLocales, site.Name, site.Locales())
	}

	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	if len(opts.Terms) == 0 {
		opts.Terms = site.SearchTerms
	}

	logger := p.logger.With("site", site.Name, "run_id", opts.RunID)
	r := &run{
		site: site,
		opts: opts,
		result: &RunResult{
			RunID:     opts.RunID,
			Site:      site.Name,
			StartedAt: p.now(),
			Rejected:  make(map[string]int),
			Crawls:    make(map[string]CrawlStats),
		},
		seen:    dedupe.NewSet(),
		builder: p.builder,
		now:     p.now,
	}

	logger.Info("run started",
		"locales", locales,
		"max_pages", opts.MaxPages,
		"search", opts.Search,
		"terms", len(opts.Terms))

	fetcher := p.fetcherFor(site)
	resolver := NewResolver(site, fetcher, logger)
	paginator := NewPaginator(site, fetcher, opts.MaxPages, logger)

	for _, locale := range locales {
		if ctx.Err() != nil {
			break
		}

		target, doc, err := resolver.Resolve(ctx, locale)
		if err != nil {
			if errors.Is(err, ErrCategoryUnresolved) {
				logger.Warn("category unresolved, continuing", "locale", locale)
			}
			r.result.Unresolved = append(r.result.Unresolved, locale)
			continue
		}

		stats := paginator.Crawl(ctx, target, doc, r.visit)
		r.result.Crawls["category/"+locale] = stats
		logger.Info("category crawl finished",
			"locale", locale,
			"pages", stats.Pages,
			"kept", stats.Kept,
			"stop", stats.Stop)
	}

	if opts.Search {
		p.sweep(ctx, r, locales, paginator, logger)
	}

	if err := ctx.Err(); err != nil {
		r.result.FinishedAt = p.now()
		logger.Warn("run cancelled", "records", len(r.result.Records), "error", err)
		return r.result, err
	}

	if len(r.result.Records) == 0 {
		logger.Warn("run produced no records", "unresolved", r.result.Unresolved)
	}

	if opts.Export && len(p.cfg.ExportFormats) > 0 {
		paths, err := storage.ExportAll(ctx, p.cfg.ExportDir, site.Name, r.result.StartedAt, p.cfg.ExportFormats, r.result.Records)
		if err != nil {
			logger.Error("export failed", "error", err)
		}
		r.result.Exports = paths
	}

	if p.writer != nil && len(r.result.Records) > 0 {
		w := p.writer
		if rw, ok := w.(catalog.RunWriter); ok {
			w = rw.ForRun(opts.RunID)
		}
		r.result.Write = catalog.NewBatchWriter(w, p.cfg.BatchSize, logger).Write(ctx, r.result.Records)
	}

	r.result.FinishedAt = p.now()
	logger.Info("run finished",
		"pages", r.result.Pages,
		"cards", r.result.Cards,
		"records", len(r.result.Records),
		"duplicates", r.result.Duplicates,
		"written", r.result.Write.Written,
		"duration", r.result.FinishedAt.Sub(r.result.StartedAt))

	return r.result, nil
}

func (p *Pipeline) sweep(ctx context.Context, r *run, locales []string, paginator *Paginator, logger *slog.Logger) {
	for _, locale := range locales {
		for _, term := range r.opts.Terms {
			if ctx.Err() != nil {
				return
			}

			u, err := r.site.SearchURL(locale, term, 1)
			if err != nil {
				logger.Warn("search unavailable", "locale", locale, "error", err)
				return
			}

			target := models.FetchTarget{
				URL:    u,
				Locale: locale,
				Origin: models.OriginSearch,
				Page:   1,
				Query:  term,
			}
			stats := paginator.Crawl(ctx, target, nil, r.visit)
			r.result.Crawls["search/"+locale+"/"+term] = stats
		}
	}
}

// visit extracts every card on a page. Kept counts cards that passed
// classification, including ones already seen earlier in the run.
func (r *run) visit(doc *goquery.Document, target models.FetchTarget) PageResult {
	cards := r.site.Locator().Locate(doc)
	r.result.Pages++
	r.result.Cards += len(cards)

	extractor, err := r.site.Extractor(target.Locale)
	if err != nil {
		return PageResult{Cards: len(cards)}
	}

	cc := CardContext{
		Site:              r.site,
		Target:            target,
		FilterAccessories: r.opts.FilterAccessories,
		ScrapedAt:         r.now().UTC(),
	}

	kept := 0
	for _, card := range cards {
		fields, ok := extractor.Extract(card)
		if !ok {
			r.result.Skipped++
			continue
		}

		rec, verdict := r.builder.Build(fields, cc)
		if verdict != classify.Matching {
			r.result.Rejected[verdict.String()]++
			continue
		}
		if problems := rec.Validate(); len(problems) > 0 {
			r.result.Invalid++
			continue
		}
		kept++

		if !r.seen.Add(&rec) {
			r.result.Duplicates++
			continue
		}
		r.result.Records = append(r.result.Records, rec)
	}

	r.result.Kept += kept
	return PageResult{Cards: len(cards), Kept: kept}
}
