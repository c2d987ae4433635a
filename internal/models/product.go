package models

import (
	"strings"
	"time"
	"unicode"
)

// Origin says whether a page came from the category listing or a search.
type Origin string

const (
	OriginCategory Origin = "category"
	OriginSearch   Origin = "search"
)

// DefaultCountry is stamped on every record.
const DefaultCountry = "EG"

// FetchTarget is one page request issued by a crawl.
type FetchTarget struct {
	URL    string `json:"url"`
	Locale string `json:"locale"`
	Origin Origin `json:"origin"`
	Page   int    `json:"page"`
	Query  string `json:"query,omitempty"`
}

// ProductRecord is one accepted listing.
type ProductRecord struct {
	Title           string    `json:"title"`
	NormalizedTitle string    `json:"normalized_title"`
	Price           *float64  `json:"price"`
	Currency        string    `json:"currency"`
	Link            string    `json:"link"`
	Store           string    `json:"store"`
	Category        string    `json:"category"`
	Brand           string    `json:"brand"`
	Series          string    `json:"series,omitempty"`
	Model           string    `json:"model"`
	Suffix          string    `json:"suffix"`
	QueryTerm       string    `json:"query_term,omitempty"`
	Locale          string    `json:"locale"`
	Origin          Origin    `json:"origin"`
	Country         string    `json:"country"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// BrandOrModel renders "Brand Series" title-cased, e.g. "Xiaomi Redmi".
func (p *ProductRecord) BrandOrModel() string {
	parts := make([]string, 0, 2)
	for _, s := range []string{p.Brand, p.Series} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, titleCase(s))
		}
	}
	return strings.Join(parts, " ")
}

// NaturalRef identifies the listing within its store: the link, or the
// normalized title for cards that carry no link.
func (p *ProductRecord) NaturalRef() string {
	if p.Link != "" {
		return p.Link
	}
	return p.NormalizedTitle
}

// PriceValue returns the price and whether one was found.
func (p *ProductRecord) PriceValue() (float64, bool) {
	if p.Price == nil {
		return 0, false
	}
	return *p.Price, true
}

// Validate returns the problems that keep a record out of the catalog.
func (p *ProductRecord) Validate() []string {
	var errors []string

	if strings.TrimSpace(p.NormalizedTitle) == "" {
		errors = append(errors, "normalized title is required")
	}

	if p.Store == "" {
		errors = append(errors, "store is required")
	}

	if p.Link != "" && !strings.HasPrefix(p.Link, "http") {
		errors = append(errors, "link must be absolute")
	}

	if p.Link != "" && strings.ContainsAny(p.Link, "?#") {
		errors = append(errors, "link must not carry a query or fragment")
	}

	return errors
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
