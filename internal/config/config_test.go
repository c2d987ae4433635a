package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Scraper.MinDelay)
	assert.Equal(t, 5*time.Second, cfg.Scraper.MaxDelay)
	assert.Equal(t, 3, cfg.Scraper.MaxAttempts)
	assert.Equal(t, []string{"ar", "en"}, cfg.Scraper.Locales)
	assert.Equal(t, 500, cfg.Scraper.BatchSize)
	assert.True(t, cfg.Scraper.SearchSweep)
	assert.True(t, cfg.Scraper.FilterAccessories)
	assert.Equal(t, "http", cfg.Scraper.Transport)
	assert.NotEmpty(t, cfg.Scraper.UserAgents)
	assert.Equal(t, "postgres", cfg.Sink)
	assert.Equal(t, []string{"json", "csv"}, cfg.Export.Formats)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SCRAPER_MAX_PAGES", "7")
	t.Setenv("SCRAPER_LOCALES", "en")
	t.Setenv("SCRAPER_SEARCH_TERMS", "iphone,redmi")
	t.Setenv("SCRAPER_PROXY", "http://proxy.local:3128")
	t.Setenv("DB_HOST", "catalog.internal")
	t.Setenv("CATALOG_SINK", "none")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Scraper.MaxPages)
	assert.Equal(t, []string{"en"}, cfg.Scraper.Locales)
	assert.Equal(t, []string{"iphone", "redmi"}, cfg.Scraper.SearchTerms)
	assert.Equal(t, "http://proxy.local:3128", cfg.Scraper.Proxy)
	assert.Equal(t, "catalog.internal", cfg.Database.Host)
	assert.Equal(t, "none", cfg.Sink)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"delay range inverted", func(c *Config) { c.Scraper.MinDelay = 10 * time.Second }},
		{"zero attempts", func(c *Config) { c.Scraper.MaxAttempts = 0 }},
		{"zero pages", func(c *Config) { c.Scraper.MaxPages = 0 }},
		{"zero batch", func(c *Config) { c.Scraper.BatchSize = 0 }},
		{"no locales", func(c *Config) { c.Scraper.Locales = nil }},
		{"unknown transport", func(c *Config) { c.Scraper.Transport = "carrier-pigeon" }},
		{"unknown sink", func(c *Config) { c.Sink = "mongo" }},
		{"unknown export", func(c *Config) { c.Export.Formats = []string{"xml"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestProxyExclusions_AlwaysContainsStoreHost(t *testing.T) {
	cfg := &Config{
		Scraper:  ScraperConfig{NoProxy: []string{"metadata.internal", " catalog.internal "}},
		Database: DatabaseConfig{Host: "catalog.internal"},
		Redis:    RedisConfig{Addr: "redis.internal:6379"},
	}

	got := cfg.ProxyExclusions()
	assert.Equal(t, []string{"metadata.internal", "catalog.internal", "redis.internal"}, got)
}

func TestDefaultRules(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)
	require.NoError(t, rules.Validate())

	assert.Equal(t, 800.0, rules.Price.Min)
	assert.Equal(t, 1000000.0, rules.Price.Max)
	assert.NotEmpty(t, rules.Substitutions)
	assert.NotEmpty(t, rules.Classification.Accessories)
	assert.Equal(t, "iphone", rules.Brands[0].Keyword)
}

func TestLoadRules_OverridesAndFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
price:
  min: 1000
  max: 200000
brands:
  - { keyword: fairphone, brand: fairphone }
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, rules.Price.Min)
	assert.Equal(t, 200000.0, rules.Price.Max)
	require.Len(t, rules.Brands, 1)
	assert.Equal(t, "fairphone", rules.Brands[0].Brand)
	assert.NotEmpty(t, rules.Classification.Accessories, "missing sections fall back to defaults")
	assert.NotEmpty(t, rules.Price.CurrencyTokens)
}

func TestLoadRules_RejectsUnknownPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
classification:
  accessories:
    - match: fuzzy
      terms: [case]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadRules(path)
	assert.ErrorContains(t, err, "unknown match policy")
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
