// Package fetch loads storefront pages with identity rotation, jittered
// pacing, retry and a one-shot alternate-locale fallback on denial.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
	"github.com/maltedev/phone-catalog-scraper/internal/ratelimit"
	"github.com/maltedev/phone-catalog-scraper/internal/retry"
)

// AlternateFunc maps a denied target to the same page under the other locale.
type AlternateFunc func(target models.FetchTarget) (models.FetchTarget, bool)

type feedback interface {
	RecordSuccess()
	RecordError()
}

// Fetcher loads storefront pages politely. It waits on the limiter, honors
// robots.txt and retries transient failures with a fresh identity.
type Fetcher struct {
	transport Transport
	identity  *IdentityPool
	limiter   ratelimit.RateLimiter
	policy    retry.Policy
	robots    *RobotsPolicy
	alternate AlternateFunc
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLimiter sets the pacing limiter.
func WithLimiter(l ratelimit.RateLimiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithPolicy sets the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(f *Fetcher) { f.policy = p }
}

// WithIdentity sets the user agent pool.
func WithIdentity(pool *IdentityPool) Option {
	return func(f *Fetcher) { f.identity = pool }
}

// WithRobots enables robots.txt checks.
func WithRobots(r *RobotsPolicy) Option {
	return func(f *Fetcher) { f.robots = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a fetcher over transport. Without options it uses a single
// user agent, no delay and the default retry policy.
func New(transport Transport, opts ...Option) *Fetcher {
	f := &Fetcher{
		transport: transport,
		identity:  NewIdentityPool(nil),
		limiter:   ratelimit.NewJitter(0, 0),
		policy:    retry.DefaultPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "fetcher")
	return f
}

// ForSite returns a fetcher sharing transport, identity and pacing that
// uses alt for the denial fallback. Without one, the same URL is retried
// once with the other locale's headers.
func (f *Fetcher) ForSite(alt AlternateFunc) *Fetcher {
	cp := *f
	cp.alternate = alt
	return &cp
}

// Fetch loads target and parses it as HTML.
func (f *Fetcher) Fetch(ctx context.Context, target models.FetchTarget) (*goquery.Document, error) {
	if err := f.checkRobots(ctx, target.URL); err != nil {
		return nil, err
	}

	doc, err := f.fetchWithRetry(ctx, target)
	if err == nil || !errors.Is(err, ErrAccessDenied) {
		return doc, err
	}

	f.identity.Rotate()
	f.recordError()

	alt, ok := f.alternateTarget(target)
	if !ok {
		return nil, fmt.Errorf("failed to fetch %s: %w", target.URL, err)
	}

	f.logger.Warn("access denied, retrying with alternate locale",
		"url", target.URL,
		"alternate", alt.URL,
		"locale", alt.Locale,
	)

	if err := f.checkRobots(ctx, alt.URL); err != nil {
		return nil, err
	}

	doc, altErr := f.fetchWithRetry(ctx, alt)
	if altErr != nil {
		return nil, fmt.Errorf("failed to fetch %s after locale fallback: %w", target.URL, altErr)
	}
	return doc, nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, target models.FetchTarget) (*goquery.Document, error) {
	var doc *goquery.Document

	err := f.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			f.identity.Rotate()
			f.logger.Info("retrying fetch", "url", target.URL, "attempt", attempt)
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		resp, err := f.transport.Do(ctx, Request{
			URL:       target.URL,
			UserAgent: f.identity.Current(),
			Headers:   LocaleHeaders(target.Locale),
		})
		if err != nil {
			f.logger.Warn("fetch failed", "url", target.URL, "attempt", attempt, "error", err)
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := &StatusError{Code: resp.StatusCode, URL: target.URL}
			if statusErr.Retryable() {
				f.recordError()
				f.logger.Warn("fetch throttled or failed upstream", "url", target.URL, "status", resp.StatusCode, "attempt", attempt)
				return statusErr
			}
			return retry.Permanent(statusErr)
		}

		if len(bytes.TrimSpace(resp.Body)) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyBody, target.URL)
		}

		parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
		if err != nil {
			return fmt.Errorf("%w: failed to parse page: %v", ErrTransient, err)
		}

		f.recordSuccess()
		doc = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func (f *Fetcher) alternateTarget(target models.FetchTarget) (models.FetchTarget, bool) {
	if f.alternate != nil {
		return f.alternate(target)
	}
	// same page, other language headers
	target.Locale = AlternateLocale(target.Locale)
	return target, true
}

func (f *Fetcher) checkRobots(ctx context.Context, rawURL string) error {
	if f.robots == nil || f.robots.Allowed(ctx, rawURL) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
}

func (f *Fetcher) recordSuccess() {
	if fb, ok := f.limiter.(feedback); ok {
		fb.RecordSuccess()
	}
}

func (f *Fetcher) recordError() {
	if fb, ok := f.limiter.(feedback); ok {
		fb.RecordError()
	}
}
