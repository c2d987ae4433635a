package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
	"github.com/maltedev/phone-catalog-scraper/internal/parser"
	"github.com/maltedev/phone-catalog-scraper/internal/sites"
)

const maxNavCandidates = 5

// Resolver finds the phone category URL for a locale.
type Resolver struct {
	site    *sites.Site
	fetcher PageFetcher
	logger  *slog.Logger
}

// NewResolver creates a category resolver for site.
func NewResolver(site *sites.Site, fetcher PageFetcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		site:    site,
		fetcher: fetcher,
		logger:  logger.With("component", "category_resolver", "site", site.Name),
	}
}

// Resolve tries the known candidate URLs in order, then category links found
// in the home page navigation. The first page that loads wins and is
// returned with its target so the caller does not fetch it twice.
func (r *Resolver) Resolve(ctx context.Context, locale string) (models.FetchTarget, *goquery.Document, error) {
	tried := make(map[string]bool)

	for _, u := range r.site.CategoryCandidates(locale) {
		tried[u] = true
		if target, doc, ok := r.try(ctx, locale, u); ok {
			return target, doc, nil
		}
		if ctx.Err() != nil {
			return models.FetchTarget{}, nil, ctx.Err()
		}
	}

	for _, u := range r.navCandidates(ctx, locale) {
		if tried[u] {
			continue
		}
		tried[u] = true
		if target, doc, ok := r.try(ctx, locale, u); ok {
			r.logger.Info("category resolved from navigation", "locale", locale, "url", u)
			return target, doc, nil
		}
		if ctx.Err() != nil {
			return models.FetchTarget{}, nil, ctx.Err()
		}
	}

	return models.FetchTarget{}, nil, fmt.Errorf("%w: %s/%s", ErrCategoryUnresolved, r.site.Name, locale)
}

func (r *Resolver) try(ctx context.Context, locale, u string) (models.FetchTarget, *goquery.Document, bool) {
	target := models.FetchTarget{
		URL:    u,
		Locale: locale,
		Origin: models.OriginCategory,
		Page:   1,
	}

	doc, err := r.fetcher.Fetch(ctx, target)
	if err != nil {
		r.logger.Debug("category candidate rejected", "url", u, "error", err)
		return target, nil, false
	}
	return target, doc, true
}

// navCandidates scans home page links whose text or href carries one of the
// site's category keywords for the locale.
func (r *Resolver) navCandidates(ctx context.Context, locale string) []string {
	root, err := r.site.Root(locale)
	if err != nil {
		return nil
	}

	home := models.FetchTarget{URL: root.String(), Locale: locale, Origin: models.OriginCategory, Page: 1}
	doc, err := r.fetcher.Fetch(ctx, home)
	if err != nil {
		r.logger.Warn("failed to load home page for navigation scan", "url", home.URL, "error", err)
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !r.site.MatchesNav(locale, strings.TrimSpace(a.Text()), href) {
			return true
		}
		u, ok := parser.ResolveURL(root, href)
		if !ok || seen[u] || u == home.URL {
			return true
		}
		seen[u] = true
		out = append(out, u)
		return len(out) < maxNavCandidates
	})

	return out
}
