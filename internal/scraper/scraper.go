// Package scraper runs one crawl of a storefront: category resolution,
// pagination, an optional search sweep and record assembly.
package scraper

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
)

var (
	ErrCategoryUnresolved = errors.New("category unresolved")
	ErrNoLocales          = errors.New("no supported locale requested")
)

// PageFetcher loads and parses one page.
type PageFetcher interface {
	Fetch(ctx context.Context, target models.FetchTarget) (*goquery.Document, error)
}
