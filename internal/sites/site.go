// Package sites describes the storefronts the crawler knows: locale roots,
// where the phone category lives, how search URLs look and which selectors
// find listing cards.
package sites

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/maltedev/phone-catalog-scraper/internal/models"
	"github.com/maltedev/phone-catalog-scraper/internal/parser"
)

// ErrUnknownSite is returned by Lookup for unregistered names.
var ErrUnknownSite = errors.New("unknown site")

// Selectors lists CSS selectors per field, tried in order.
type Selectors struct {
	Cards []string
	Title []string
	Link  []string
	Price []string
	Next  []string
}

// Site describes one storefront.
type Site struct {
	Name     string
	Store    string
	Country  string
	Currency string

	// Roots maps a locale to the storefront root for that language.
	Roots map[string]string
	// CategoryPaths are tried in order, relative to the locale root.
	CategoryPaths []string
	// NavKeywords identify the phone category among home-page links.
	NavKeywords map[string][]string
	// SearchPath is relative to the locale root; {query} and {page} are
	// substituted.
	SearchPath string

	Selectors    Selectors
	LinkOptional bool
	SearchTerms  []string
}

// Locales returns the supported locales, sorted.
func (s *Site) Locales() []string {
	out := make([]string, 0, len(s.Roots))
	for l := range s.Roots {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// SupportsLocale reports whether the site has a root for locale.
func (s *Site) SupportsLocale(locale string) bool {
	_, ok := s.Roots[locale]
	return ok
}

// Root returns the storefront root for locale.
func (s *Site) Root(locale string) (*url.URL, error) {
	raw, ok := s.Roots[locale]
	if !ok {
		return nil, fmt.Errorf("site %s has no %q locale", s.Name, locale)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse root for %s/%s: %w", s.Name, locale, err)
	}
	return u, nil
}

// CategoryCandidates returns the absolute category URLs for a locale in
// priority order.
func (s *Site) CategoryCandidates(locale string) []string {
	root, err := s.Root(locale)
	if err != nil {
		return nil
	}

	out := make([]string, 0, len(s.CategoryPaths))
	for _, p := range s.CategoryPaths {
		if u, ok := parser.ResolveURL(root, p); ok {
			out = append(out, u)
		}
	}
	return out
}

// SearchURL builds the search page URL for query.
func (s *Site) SearchURL(locale, query string, page int) (string, error) {
	if s.SearchPath == "" {
		return "", fmt.Errorf("site %s has no search", s.Name)
	}
	root, err := s.Root(locale)
	if err != nil {
		return "", err
	}

	path := strings.NewReplacer(
		"{query}", url.QueryEscape(query),
		"{page}", strconv.Itoa(max(page, 1)),
	).Replace(s.SearchPath)

	u, ok := parser.ResolveURL(root, path)
	if !ok {
		return "", fmt.Errorf("failed to build search url for %s", s.Name)
	}
	return u, nil
}

// Alternate maps a target to the same path under the other locale root.
func (s *Site) Alternate(target models.FetchTarget) (models.FetchTarget, bool) {
	from, ok := s.Roots[target.Locale]
	if !ok || !strings.HasPrefix(target.URL, from) {
		return models.FetchTarget{}, false
	}

	for _, locale := range s.Locales() {
		if locale == target.Locale {
			continue
		}
		to := s.Roots[locale]
		if to == from {
			continue
		}
		alt := target
		alt.URL = to + strings.TrimPrefix(target.URL, from)
		alt.Locale = locale
		return alt, true
	}
	return models.FetchTarget{}, false
}

// Locator returns a card locator for the site's card selectors.
func (s *Site) Locator() *parser.Locator {
	return &parser.Locator{CardSelectors: s.Selectors.Cards}
}

// Extractor returns a field extractor resolving links against the locale root.
func (s *Site) Extractor(locale string) (*parser.Extractor, error) {
	root, err := s.Root(locale)
	if err != nil {
		return nil, err
	}

	return &parser.Extractor{
		TitleSelectors: s.Selectors.Title,
		LinkSelectors:  s.Selectors.Link,
		PriceSelectors: s.Selectors.Price,
		Root:           root,
		MinTitleLen:    parser.DefaultMinTitleLen,
		LinkOptional:   s.LinkOptional,
	}, nil
}

// MatchesNav reports whether a navigation link text or href names the phone
// category for the locale.
func (s *Site) MatchesNav(locale, text, href string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	href = strings.ToLower(href)
	for _, kw := range s.NavKeywords[locale] {
		kw = strings.ToLower(kw)
		if strings.Contains(text, kw) || strings.Contains(href, kw) {
			return true
		}
	}
	return false
}

// Validate checks that the definition is usable. Registration panics on an
// invalid site.
func (s *Site) Validate() error {
	if s.Name == "" {
		return errors.New("site name is required")
	}
	if len(s.Roots) == 0 {
		return fmt.Errorf("site %s has no locale roots", s.Name)
	}
	if len(s.Selectors.Cards) == 0 || len(s.Selectors.Title) == 0 {
		return fmt.Errorf("site %s needs card and title selectors", s.Name)
	}
	for locale, root := range s.Roots {
		if !strings.HasSuffix(root, "/") {
			return fmt.Errorf("site %s root for %s must end with /", s.Name, locale)
		}
	}
	return nil
}

var registry = map[string]*Site{}

func register(s *Site) *Site {
	if err := s.Validate(); err != nil {
		panic(err)
	}
	registry[s.Name] = s
	return s
}

// Lookup returns the site registered under name, ignoring case.
func Lookup(name string) (*Site, error) {
	s, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownSite, name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names returns the registered site names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// All returns every registered site ordered by name.
func All() []*Site {
	out := make([]*Site, 0, len(registry))
	for _, n := range Names() {
		out = append(out, registry[n])
	}
	return out
}

// brandTerms is the default search sweep: Latin brand names plus Arabic
// spellings for storefronts that index titles in one script only.
var brandTerms = []string{
	"iphone", "apple", "samsung", "galaxy", "xiaomi", "redmi", "poco", "oppo", "reno", "realme",
	"huawei", "honor", "vivo", "nokia", "oneplus", "motorola", "infinix", "tecno", "sony",
	"ايفون", "ابل", "سامسونج", "شاومي", "ريدمي", "بوكو", "اوبو", "ريلمي", "هواوي", "هونر", "فيفو",
	"نوكيا", "انفنيكس", "تكنو", "سوني",
}
