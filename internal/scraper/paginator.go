package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
	"github.com/maltedev/phone-catalog-scraper/internal/parser"
	"github.com/maltedev/phone-catalog-scraper/internal/sites"
)

// StopReason records why a crawl stopped paging.
type StopReason string

const (
	StopMaxPages    StopReason = "max_pages"
	StopNoCards     StopReason = "no_cards"
	StopNothingKept StopReason = "nothing_kept"
	StopLastPage    StopReason = "last_page"
	StopFetchError  StopReason = "fetch_error"
	StopCancelled   StopReason = "cancelled"
)

// consecutiveEmptyLimit pages in a row without a kept card end the crawl.
const consecutiveEmptyLimit = 2

// PageResult counts the cards a visit found and kept.
type PageResult struct {
	Cards int
	Kept  int
}

// VisitFunc processes one fetched page.
type VisitFunc func(doc *goquery.Document, target models.FetchTarget) PageResult

// CrawlStats summarizes one paginated crawl.
type CrawlStats struct {
	Pages int        `json:"pages"`
	Cards int        `json:"cards"`
	Kept  int        `json:"kept"`
	Stop  StopReason `json:"stop"`
}

// Paginator follows next links until a stop condition is hit.
type Paginator struct {
	site     *sites.Site
	fetcher  PageFetcher
	maxPages int
	logger   *slog.Logger
}

// NewPaginator creates a paginator. maxPages below one is treated as one.
func NewPaginator(site *sites.Site, fetcher PageFetcher, maxPages int, logger *slog.Logger) *Paginator {
	return &Paginator{
		site:     site,
		fetcher:  fetcher,
		maxPages: max(maxPages, 1),
		logger:   logger.With("component", "paginator", "site", site.Name),
	}
}

// Crawl visits start and the pages after it. first, when non-nil, is the
// already fetched document for start.
func (p *Paginator) Crawl(ctx context.Context, start models.FetchTarget, first *goquery.Document, visit VisitFunc) CrawlStats {
	var stats CrawlStats
	visited := make(map[string]bool)

	target, doc := start, first
	if target.Page < 1 {
		target.Page = 1
	}
	emptyRun := 0

	for {
		if ctx.Err() != nil {
			stats.Stop = StopCancelled
			return stats
		}

		if doc == nil {
			var err error
			doc, err = p.fetcher.Fetch(ctx, target)
			if err != nil {
				p.logger.Warn("page fetch failed, stopping",
					"url", target.URL,
					"page", target.Page,
					"error", err)
				stats.Stop = StopFetchError
				return stats
			}
		}
		visited[target.URL] = true

		res := visit(doc, target)
		stats.Pages++
		stats.Cards += res.Cards
		stats.Kept += res.Kept

		p.logger.Debug("page visited",
			"url", target.URL,
			"page", target.Page,
			"cards", res.Cards,
			"kept", res.Kept)

		if res.Cards == 0 {
			stats.Stop = StopNoCards
			return stats
		}

		if res.Kept == 0 {
			emptyRun++
		} else {
			emptyRun = 0
		}
		if emptyRun >= consecutiveEmptyLimit {
			stats.Stop = StopNothingKept
			return stats
		}

		if stats.Pages >= p.maxPages {
			stats.Stop = StopMaxPages
			return stats
		}

		next, ok := p.Next(doc, target)
		if !ok || visited[next.URL] {
			stats.Stop = StopLastPage
			return stats
		}
		target, doc = next, nil
	}
}

// Next finds the following page: a next link from the site's selectors, or
// for search targets the next page number.
func (p *Paginator) Next(doc *goquery.Document, current models.FetchTarget) (models.FetchTarget, bool) {
	next := current
	next.Page = current.Page + 1

	if base, err := url.Parse(current.URL); err == nil {
		for _, sel := range p.site.Selectors.Next {
			if u, ok := nextLink(doc, sel, base); ok && u != current.URL {
				next.URL = u
				return next, true
			}
		}
	}

	if current.Origin == models.OriginSearch && current.Query != "" {
		u, err := p.site.SearchURL(current.Locale, current.Query, next.Page)
		if err == nil && u != current.URL {
			next.URL = u
			return next, true
		}
	}

	return models.FetchTarget{}, false
}

func nextLink(doc *goquery.Document, selector string, base *url.URL) (string, bool) {
	var found string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if disabled(s) {
			return true
		}
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		if u, ok := parser.ResolveURL(base, href); ok {
			found = u
			return false
		}
		return true
	})
	return found, found != ""
}

func disabled(s *goquery.Selection) bool {
	if v, _ := s.Attr("aria-disabled"); v == "true" {
		return true
	}
	if s.HasClass("disabled") || s.Parent().HasClass("disabled") {
		return true
	}
	class, _ := s.Attr("class")
	return strings.Contains(class, "disabled")
}
