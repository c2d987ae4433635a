package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Scraper  ScraperConfig  `envconfig:"SCRAPER"`
	Browser  BrowserConfig  `envconfig:"BROWSER"`
	Database DatabaseConfig `envconfig:"DB"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Export   ExportConfig   `envconfig:"EXPORT"`
	Logging  LoggingConfig  `envconfig:"LOG"`

	// Sink selects where accepted records go: postgres or none.
	Sink      string `envconfig:"CATALOG_SINK" default:"postgres"`
	RulesFile string `split_words:"true"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `split_words:"true" default:"8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	PollInterval    time.Duration `split_words:"true" default:"10s"`
	AllowedOrigins  []string      `split_words:"true" default:"http://localhost:*,https://localhost:*"`
}

// ScraperConfig holds crawl pacing and identity configuration
type ScraperConfig struct {
	MinDelay          time.Duration `split_words:"true" default:"2s"`
	MaxDelay          time.Duration `split_words:"true" default:"5s"`
	MaxAttempts       int           `split_words:"true" default:"3"`
	BackoffBase       time.Duration `split_words:"true" default:"2s"`
	BackoffMax        time.Duration `split_words:"true" default:"30s"`
	RequestTimeout    time.Duration `split_words:"true" default:"25s"`
	UserAgents        []string      `split_words:"true"`
	Proxy             string        `split_words:"true"`
	NoProxy           []string      `split_words:"true"`
	RespectRobots     bool          `split_words:"true" default:"false"`
	Transport         string        `split_words:"true" default:"http"`
	Locales           []string      `split_words:"true" default:"ar,en"`
	MaxPages          int           `split_words:"true" default:"20"`
	SearchSweep       bool          `split_words:"true" default:"true"`
	SearchTerms       []string      `split_words:"true"`
	FilterAccessories bool          `split_words:"true" default:"true"`
	BatchSize         int           `split_words:"true" default:"500"`
}

// BrowserConfig holds headless browser configuration
type BrowserConfig struct {
	Headless       bool          `split_words:"true" default:"true"`
	Timeout        time.Duration `split_words:"true" default:"30s"`
	ViewportWidth  int           `split_words:"true" default:"1920"`
	ViewportHeight int           `split_words:"true" default:"1080"`
	TimezoneID     string        `split_words:"true" default:"Africa/Cairo"`
	Locale         string        `split_words:"true" default:"ar-EG"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `split_words:"true" default:"localhost"`
	Port     int    `split_words:"true" default:"5432"`
	User     string `split_words:"true" default:"postgres"`
	Password string `split_words:"true"`
	Name     string `split_words:"true" default:"phone_catalog"`
	SSLMode  string `split_words:"true" default:"disable"`
	MaxConns int32  `split_words:"true" default:"4"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr         string        `split_words:"true" default:"localhost:6379"`
	Password     string        `split_words:"true"`
	DB           int           `split_words:"true" default:"0"`
	Stream       string        `split_words:"true" default:"stream:catalog_listings"`
	RelayEnabled bool          `split_words:"true" default:"false"`
	PollInterval time.Duration `split_words:"true" default:"5s"`
}

// ExportConfig holds file export configuration
type ExportConfig struct {
	Dir     string   `split_words:"true" default:"exports"`
	Formats []string `split_words:"true" default:"json,csv"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `split_words:"true" default:"info"`
	Format string `split_words:"true" default:"json"`
}

var (
	validTransports    = []string{"http", "browser"}
	validSinks         = []string{"postgres", "none"}
	validExportFormats = []string{"json", "csv", "sqlite"}
)

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			slog.Warn("failed to load .env file", "error", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if len(cfg.Scraper.UserAgents) == 0 {
		cfg.Scraper.UserAgents = defaultUserAgents()
	}

	return &cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Scraper.MinDelay > c.Scraper.MaxDelay {
		return fmt.Errorf("SCRAPER_MIN_DELAY cannot be greater than SCRAPER_MAX_DELAY")
	}

	if c.Scraper.MaxAttempts < 1 {
		return fmt.Errorf("SCRAPER_MAX_ATTEMPTS must be at least 1")
	}

	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("SCRAPER_MAX_PAGES must be at least 1")
	}

	if c.Scraper.BatchSize < 1 {
		return fmt.Errorf("SCRAPER_BATCH_SIZE must be at least 1")
	}

	if len(c.Scraper.Locales) == 0 {
		return fmt.Errorf("SCRAPER_LOCALES must name at least one locale")
	}

	if !slices.Contains(validTransports, c.Scraper.Transport) {
		return fmt.Errorf("SCRAPER_TRANSPORT must be one of %v, got %q", validTransports, c.Scraper.Transport)
	}

	if !slices.Contains(validSinks, c.Sink) {
		return fmt.Errorf("CATALOG_SINK must be one of %v, got %q", validSinks, c.Sink)
	}

	for _, f := range c.Export.Formats {
		if !slices.Contains(validExportFormats, strings.ToLower(strings.TrimSpace(f))) {
			return fmt.Errorf("EXPORT_FORMATS contains unsupported format %q", f)
		}
	}

	return nil
}

// ProxyExclusions returns the configured no-proxy list plus the catalog store
// and event stream hosts, which are never reached through the forward proxy.
func (c *Config) ProxyExclusions() []string {
	out := make([]string, 0, len(c.Scraper.NoProxy)+2)
	add := func(h string) {
		h = strings.TrimSpace(h)
		if h != "" && !slices.Contains(out, h) {
			out = append(out, h)
		}
	}

	for _, h := range c.Scraper.NoProxy {
		add(h)
	}
	add(c.Database.Host)
	if host, _, err := net.SplitHostPort(c.Redis.Addr); err == nil {
		add(host)
	}

	return out
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	}
}
