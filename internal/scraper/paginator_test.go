package scraper

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countVisit treats div.card as a card and div.card.keep as a kept one.
func countVisit(visited *[]string) VisitFunc {
	return func(doc *goquery.Document, target models.FetchTarget) PageResult {
		*visited = append(*visited, target.URL)
		return PageResult{
			Cards: doc.Find("div.card").Length(),
			Kept:  doc.Find("div.card.keep").Length(),
		}
	}
}

func chain(n int, kept bool) map[string]string {
	pages := make(map[string]string)
	class := "card"
	if kept {
		class = "card keep"
	}
	for i := 1; i <= n; i++ {
		body := `<div class="` + class + `">phone</div>`
		if i < n {
			body += `<a class="next" href="?p=` + strconv.Itoa(i+1) + `">next</a>`
		}
		u := root + "phones/"
		if i > 1 {
			u += "?p=" + strconv.Itoa(i)
		}
		pages[u] = page(body)
	}
	return pages
}

func categoryStart() models.FetchTarget {
	return models.FetchTarget{URL: root + "phones/", Locale: "en", Origin: models.OriginCategory, Page: 1}
}

func TestPaginator_Crawl(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		pages     map[string]string
		maxPages  int
		wantPages int
		wantStop  StopReason
	}{
		{"follows next links to the last page", chain(3, true), 10, 3, StopLastPage},
		{"stops at max pages", chain(5, true), 2, 2, StopMaxPages},
		{"two pages with nothing kept", chain(5, false), 10, 2, StopNothingKept},
		{"page without cards", map[string]string{root + "phones/": page(`<p>empty</p>`)}, 10, 1, StopNoCards},
		{"missing start page", map[string]string{}, 10, 0, StopFetchError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{pages: tt.pages}
			var visited []string

			stats := NewPaginator(testSite(root), f, tt.maxPages, slog.Default()).
				Crawl(ctx, categoryStart(), nil, countVisit(&visited))

			assert.Equal(t, tt.wantStop, stats.Stop)
			assert.Equal(t, tt.wantPages, stats.Pages)
			assert.Len(t, visited, tt.wantPages)
		})
	}
}

func TestPaginator_KeptResetsEmptyRun(t *testing.T) {
	pages := map[string]string{
		root + "phones/":     page(`<div class="card">x</div><a class="next" href="?p=2">n</a>`),
		root + "phones/?p=2": page(`<div class="card keep">x</div><a class="next" href="?p=3">n</a>`),
		root + "phones/?p=3": page(`<div class="card">x</div><a class="next" href="?p=4">n</a>`),
		root + "phones/?p=4": page(`<div class="card">x</div><a class="next" href="?p=5">n</a>`),
		root + "phones/?p=5": page(`<div class="card keep">x</div>`),
	}
	var visited []string

	stats := NewPaginator(testSite(root), &fakeFetcher{pages: pages}, 10, slog.Default()).
		Crawl(context.Background(), categoryStart(), nil, countVisit(&visited))

	assert.Equal(t, StopNothingKept, stats.Stop)
	assert.Equal(t, 4, stats.Pages)
	assert.Equal(t, 1, stats.Kept)
}

func TestPaginator_UsesPrefetchedFirstPage(t *testing.T) {
	first, err := goquery.NewDocumentFromReader(strings.NewReader(page(`<div class="card keep">x</div>`)))
	require.NoError(t, err)

	f := &fakeFetcher{}
	var visited []string
	stats := NewPaginator(testSite(root), f, 5, slog.Default()).
		Crawl(context.Background(), categoryStart(), first, countVisit(&visited))

	assert.Equal(t, 1, stats.Pages)
	assert.Empty(t, f.calls)
}

func TestPaginator_Next(t *testing.T) {
	p := NewPaginator(testSite(root), &fakeFetcher{}, 5, slog.Default())

	doc := func(html string) *goquery.Document {
		d, err := goquery.NewDocumentFromReader(strings.NewReader(page(html)))
		require.NoError(t, err)
		return d
	}

	t.Run("next link", func(t *testing.T) {
		next, ok := p.Next(doc(`<a class="next" href="/en/phones/?p=2#top">Next</a>`), categoryStart())
		require.True(t, ok)
		assert.Equal(t, root+"phones/?p=2", next.URL)
		assert.Equal(t, 2, next.Page)
		assert.Equal(t, models.OriginCategory, next.Origin)
	})

	t.Run("disabled next link", func(t *testing.T) {
		_, ok := p.Next(doc(`<a class="next disabled" href="/en/phones/?p=2">Next</a>`), categoryStart())
		assert.False(t, ok)

		_, ok = p.Next(doc(`<a class="next" aria-disabled="true" href="/en/phones/?p=2">Next</a>`), categoryStart())
		assert.False(t, ok)
	})

	t.Run("search falls back to page parameter", func(t *testing.T) {
		current := models.FetchTarget{
			URL:    root + "search?q=redmi&page=1",
			Locale: "en",
			Origin: models.OriginSearch,
			Page:   1,
			Query:  "redmi",
		}
		next, ok := p.Next(doc(`<div class="card">x</div>`), current)
		require.True(t, ok)
		assert.Equal(t, root+"search?q=redmi&page=2", next.URL)
		assert.Equal(t, "redmi", next.Query)
	})

	t.Run("category without next link ends", func(t *testing.T) {
		_, ok := p.Next(doc(`<div class="card">x</div>`), categoryStart())
		assert.False(t, ok)
	})
}
