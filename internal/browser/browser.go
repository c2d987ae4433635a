package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/fetch"
	"github.com/playwright-community/playwright-go"
)

// Browser wraps a playwright browser and its single shared context.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    *Options
	logger  *slog.Logger
}

// Options configures the headless browser.
type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	TimezoneID     string
	Locale         string
	ProxyServer    string
	ProxyBypass    []string
}

// DefaultOptions returns the default browser options
func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		TimezoneID:     "Africa/Cairo",
		Locale:         "ar-EG",
	}
}

// OptionsFromConfig maps the browser and proxy settings onto launch options.
func OptionsFromConfig(cfg *config.Config) *Options {
	opts := DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.Locale = cfg.Browser.Locale
	opts.ProxyServer = cfg.Scraper.Proxy
	opts.ProxyBypass = cfg.ProxyExclusions()
	if len(cfg.Scraper.UserAgents) > 0 {
		opts.UserAgent = cfg.Scraper.UserAgents[0]
	}
	return opts
}

// New launches chromium with the given options.
func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
		if len(opts.ProxyBypass) > 0 {
			launchOpts.Proxy.Bypass = playwright.String(strings.Join(opts.ProxyBypass, ","))
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		context: context,
		opts:    opts,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

// NewPage opens a page in the shared context.
func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))

	return page, nil
}

// Close shuts down the context, the browser and playwright.
func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// Transport renders pages in the shared browser context. Pages are loaded
// one at a time.
type Transport struct {
	browser *Browser
	mu      sync.Mutex
}

var _ fetch.Transport = (*Transport)(nil)

// NewTransport creates a transport backed by b.
func NewTransport(b *Browser) *Transport {
	return &Transport{browser: b}
}

// Do renders req.URL and returns the page content.
func (t *Transport) Do(ctx context.Context, req fetch.Request) (*fetch.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := t.browser.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	headers := make(map[string]string, len(req.Headers)+1)
	for k, v := range req.Headers {
		headers[k] = v
	}
	if req.UserAgent != "" {
		headers["User-Agent"] = req.UserAgent
	}
	if err := page.SetExtraHTTPHeaders(headers); err != nil {
		return nil, fmt.Errorf("failed to set headers: %w", err)
	}

	resp, err := page.Goto(req.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(t.browser.opts.Timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	status := 200
	if resp != nil {
		status = resp.Status()
	}

	if status < 400 {
		if dismissed, err := t.browser.DismissInterstitial(page); err != nil {
			t.browser.logger.Warn("failed to check interstitial", "url", req.URL, "error", err)
		} else if dismissed {
			t.browser.logger.Info("interstitial dismissed", "url", req.URL)
		}
		t.browser.LoadLazyCards(ctx, page)
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to get page content: %w", err)
	}

	return &fetch.Response{StatusCode: status, URL: page.URL(), Body: []byte(content)}, nil
}

var interstitialMarkers = []string{
	"Continue shopping",
	"متابعة التسوق",
	"Enter the characters you see below",
}

var interstitialButtons = []string{
	`button:has-text("Continue shopping")`,
	`button:has-text("متابعة التسوق")`,
	`input[type="submit"][value*="Continue"]`,
	`.a-button-primary`,
	`#onetrust-accept-btn-handler`,
}

// DismissInterstitial clicks through "continue shopping" and cookie walls.
func (b *Browser) DismissInterstitial(page playwright.Page) (bool, error) {
	content, err := page.Content()
	if err != nil {
		return false, fmt.Errorf("failed to get page content: %w", err)
	}

	found := false
	for _, marker := range interstitialMarkers {
		if strings.Contains(content, marker) {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}

	for _, selector := range interstitialButtons {
		button := page.Locator(selector).First()

		count, err := button.Count()
		if err != nil || count == 0 {
			continue
		}

		b.logger.Debug("found interstitial button", "selector", selector)

		if err := button.Click(); err != nil {
			b.logger.Warn("failed to click button", "selector", selector, "error", err)
			continue
		}

		if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State: playwright.LoadStateDomcontentloaded,
		}); err != nil {
			return false, fmt.Errorf("failed to wait after interstitial: %w", err)
		}
		return true, nil
	}

	return false, fmt.Errorf("could not find button to leave interstitial")
}

// LoadLazyCards scrolls down in steps so listing grids that render on
// scroll are present in the captured content.
func (b *Browser) LoadLazyCards(ctx context.Context, page playwright.Page) {
	for i := 0; i < 4; i++ {
		if _, err := page.Evaluate(`window.scrollBy(0, window.innerHeight)`); err != nil {
			b.logger.Debug("scroll failed", "error", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(300+i*100) * time.Millisecond):
		}
	}
}
