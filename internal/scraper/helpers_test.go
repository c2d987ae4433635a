package scraper

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/fetch"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
	"github.com/maltedev/phone-catalog-scraper/internal/sites"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned HTML by URL; unknown URLs are not found.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, t models.FetchTarget) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, t.URL)
	html, ok := f.pages[t.URL]
	f.mu.Unlock()

	if !ok {
		return nil, &fetch.StatusError{Code: 404, URL: t.URL}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func testSite(root string) *sites.Site {
	return &sites.Site{
		Name:     "teststore",
		Store:    "TestStore",
		Country:  "EG",
		Currency: "EGP",
		Roots:    map[string]string{"en": root},
		CategoryPaths: []string{
			"a/",
			"b/",
			"c/",
		},
		NavKeywords: map[string][]string{"en": {"mobile phones"}},
		SearchPath:  "search?q={query}&page={page}",
		Selectors: sites.Selectors{
			Cards: []string{"div.card"},
			Title: []string{"h2"},
			Link:  []string{"a.link"},
			Price: []string{".price"},
			Next:  []string{"a.next"},
		},
	}
}

func testBuilder(t *testing.T) *RecordBuilder {
	t.Helper()
	rules, err := config.DefaultRules()
	require.NoError(t, err)
	return NewRecordBuilder(rules)
}

func card(title, href, price string) string {
	return `<div class="card"><a class="link" href="` + href + `"><h2>` + title + `</h2></a><span class="price">` + price + `</span></div>`
}

func page(body string) string {
	return `<html><body>` + body + `</body></html>`
}
