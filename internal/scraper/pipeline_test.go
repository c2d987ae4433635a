package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/maltedev/phone-catalog-scraper/internal/fetch"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
	"github.com/maltedev/phone-catalog-scraper/internal/ratelimit"
	"github.com/maltedev/phone-catalog-scraper/internal/retry"
	"github.com/maltedev/phone-catalog-scraper/internal/sites"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	mu      sync.Mutex
	batches [][]models.ProductRecord
}

func (w *captureWriter) Upsert(_ context.Context, records []models.ProductRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]models.ProductRecord(nil), records...))
	return nil
}

func (w *captureWriter) all() []models.ProductRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []models.ProductRecord
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

func storefront(t *testing.T) (*httptest.Server, *sites.Site) {
	t.Helper()

	categoryPage1 := page(
		card("Apple iPhone 15 Pro 256GB", "/en/p/iphone-15-pro?ref=cat", "EGP 59,999") +
			card("Silicone Case for iPhone 13", "/en/p/case", "EGP 199") +
			card("Samsung Galaxy S24 Ultra", "/en/p/s24-ultra", "64,999 EGP") +
			`<div class="card"><h2>Xiaomi Redmi Note 13</h2></div>` +
			`<a class="next" href="?p=2">Next</a>`)

	categoryPage2 := page(
		card("Apple iPhone 15 Pro 256GB", "/en/p/iphone-15-pro", "EGP 58,999") +
			card("Xiaomi Redmi Note 13 Pro 8GB RAM 256GB", "/en/p/redmi-note-13-pro", "EGP 17,499"))

	searchPage1 := page(card("Xiaomi Redmi 13C 4GB RAM 128GB", "/en/p/redmi-13c", "EGP 6,299"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case r.URL.Path == "/en/b/" && q.Get("p") == "":
			w.Write([]byte(categoryPage1))
		case r.URL.Path == "/en/b/" && q.Get("p") == "2":
			w.Write([]byte(categoryPage2))
		case r.URL.Path == "/en/search" && q.Get("q") == "redmi" && q.Get("page") == "1":
			w.Write([]byte(searchPage1))
		case r.URL.Path == "/en/search":
			w.Write([]byte(page(`<p>No results</p>`)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return srv, testSite(srv.URL + "/en/")
}

func newTestPipeline(t *testing.T, writer *captureWriter, cfg Config) *Pipeline {
	t.Helper()

	transport, err := fetch.NewHTTPTransport(fetch.HTTPOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)

	fetcher := fetch.New(transport,
		fetch.WithPolicy(retry.Policy{MaxAttempts: 1}),
		fetch.WithLimiter(ratelimit.NewJitter(0, 0)),
	)

	return NewPipeline(fetcher, testBuilder(t), writer, cfg, slog.Default())
}

func TestPipeline_Run(t *testing.T) {
	srv, site := storefront(t)
	writer := &captureWriter{}
	exportDir := t.TempDir()

	p := newTestPipeline(t, writer, Config{BatchSize: 3, ExportDir: exportDir, ExportFormats: []string{"json"}})

	result, err := p.Run(context.Background(), site, RunOptions{
		Locales:           []string{"en", "ar"},
		MaxPages:          5,
		Search:            true,
		Terms:             []string{"redmi"},
		FilterAccessories: true,
		Export:            true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 4, result.Pages)
	assert.Equal(t, 1, result.Rejected["accessory"])
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Duplicates)
	assert.Empty(t, result.Unresolved)
	assert.Equal(t, StopLastPage, result.Crawls["category/en"].Stop)
	assert.Equal(t, StopNoCards, result.Crawls["search/en/redmi"].Stop)

	require.Len(t, result.Records, 4)
	byModel := make(map[string]models.ProductRecord)
	for _, r := range result.Records {
		byModel[r.Model] = r
		assert.NotContains(t, r.NormalizedTitle, "Case", "accessory emitted")
	}

	iphone := byModel["15 Pro"]
	assert.Equal(t, srv.URL+"/en/p/iphone-15-pro", iphone.Link)
	require.NotNil(t, iphone.Price)
	assert.Equal(t, 59999.0, *iphone.Price, "first occurrence wins")
	assert.Equal(t, CategoryMobiles, iphone.Category)

	assert.Contains(t, byModel, "S24 Ultra")
	assert.Equal(t, "8GB RAM / 256GB", byModel["Note 13 Pro"].Suffix)

	redmi := byModel["13C"]
	assert.Equal(t, "redmi", redmi.QueryTerm)
	assert.Equal(t, "xiaomi", redmi.Brand)

	assert.Len(t, writer.batches, 2)
	assert.Len(t, writer.all(), 4)
	assert.Equal(t, 4, result.Write.Written)
	assert.Equal(t, 0, result.Write.Failed)

	require.Len(t, result.Exports, 1)
	assert.FileExists(t, result.Exports[0])
}

func TestPipeline_NothingToCrawl(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	writer := &captureWriter{}
	p := newTestPipeline(t, writer, Config{})

	result, err := p.Run(context.Background(), testSite(srv.URL+"/en/"), RunOptions{
		Locales:  []string{"en"},
		MaxPages: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"en"}, result.Unresolved)
	assert.Empty(t, result.Records)
	assert.Empty(t, writer.batches)
}

func TestPipeline_NoSupportedLocale(t *testing.T) {
	p := newTestPipeline(t, &captureWriter{}, Config{})

	_, err := p.Run(context.Background(), testSite("https://shop.test/en/"), RunOptions{Locales: []string{"fr"}})
	assert.ErrorIs(t, err, ErrNoLocales)
}

func TestPipeline_Cancelled(t *testing.T) {
	_, site := storefront(t)
	writer := &captureWriter{}
	p := newTestPipeline(t, writer, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Run(ctx, site, RunOptions{Locales: []string{"en"}, MaxPages: 2})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Empty(t, writer.batches)
}
