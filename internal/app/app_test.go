package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("CATALOG_SINK", "none")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestBuild_DryRunSkipsDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sink = "postgres"

	s, err := Build(context.Background(), cfg, Options{DryRun: true}, slog.Default())
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.Pipeline)
	assert.Nil(t, s.DB)
	assert.Nil(t, s.Listings)
	assert.Nil(t, s.Outbox)
}

func TestBuild_RobotsAndProxy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scraper.RespectRobots = true
	cfg.Scraper.Proxy = "http://proxy.internal:3128"

	s, err := Build(context.Background(), cfg, Options{}, slog.Default())
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.Pipeline)
}

func TestBuild_BadRulesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.RulesFile = "does-not-exist.yaml"

	_, err := Build(context.Background(), cfg, Options{}, slog.Default())
	assert.Error(t, err)
}
