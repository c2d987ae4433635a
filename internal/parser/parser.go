// Package parser locates listing cards on a category or search page and
// pulls title, link and price text out of each card.
package parser

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMinTitleLen is the shortest title, in runes, an Extractor accepts.
const DefaultMinTitleLen = 3

// Fields are the raw values read from one card.
type Fields struct {
	Title     string
	Link      string
	PriceText string
}

// Locator tries card selectors in order; the first one matching at least one
// node defines the cards of the page.
type Locator struct {
	CardSelectors []string
}

// Locate returns the cards of doc, or nil when no selector matches.
func (l *Locator) Locate(doc *goquery.Document) []*goquery.Selection {
	for _, selector := range l.CardSelectors {
		found := doc.Find(selector)
		if found.Length() == 0 {
			continue
		}

		cards := make([]*goquery.Selection, 0, found.Length())
		found.Each(func(_ int, s *goquery.Selection) {
			cards = append(cards, s)
		})
		return cards
	}
	return nil
}

// Extractor reads Fields from a card. Selectors are tried in order and the
// first non-empty value wins.
type Extractor struct {
	TitleSelectors []string
	LinkSelectors  []string
	PriceSelectors []string
	Root           *url.URL
	MinTitleLen    int
	// LinkOptional keeps cards whose storefront renders no product anchor.
	LinkOptional bool
}

// Extract reports false when the card has no usable title, or no link
// unless LinkOptional is set.
func (e *Extractor) Extract(card *goquery.Selection) (Fields, bool) {
	title := e.title(card)
	if title == "" {
		return Fields{}, false
	}

	link := e.link(card)
	if link == "" && !e.LinkOptional {
		return Fields{}, false
	}

	return Fields{Title: title, Link: link, PriceText: e.priceText(card)}, true
}

func (e *Extractor) title(card *goquery.Selection) string {
	minLen := e.MinTitleLen
	if minLen <= 0 {
		minLen = DefaultMinTitleLen
	}

	for _, selector := range e.TitleSelectors {
		node := card.Find(selector).First()
		if node.Length() == 0 {
			continue
		}

		if text := collapse(node.Text()); utf8.RuneCountInString(text) >= minLen {
			return text
		}
		if attr, ok := node.Attr("title"); ok {
			if text := collapse(attr); utf8.RuneCountInString(text) >= minLen {
				return text
			}
		}
	}

	if attr, ok := card.Attr("title"); ok {
		if text := collapse(attr); utf8.RuneCountInString(text) >= minLen {
			return text
		}
	}
	return ""
}

func (e *Extractor) link(card *goquery.Selection) string {
	if goquery.NodeName(card) == "a" {
		if href, ok := card.Attr("href"); ok {
			if link, ok := ResolveLink(e.Root, href); ok {
				return link
			}
		}
	}

	selectors := make([]string, 0, len(e.LinkSelectors)+1)
	selectors = append(selectors, e.LinkSelectors...)
	selectors = append(selectors, "a[href]")

	for _, selector := range selectors {
		href, ok := card.Find(selector).First().Attr("href")
		if !ok {
			continue
		}
		if link, ok := ResolveLink(e.Root, href); ok {
			return link
		}
	}
	return ""
}

func (e *Extractor) priceText(card *goquery.Selection) string {
	for _, selector := range e.PriceSelectors {
		node := card.Find(selector).First()
		if text := collapse(node.Text()); text != "" {
			return text
		}
		if attr, ok := node.Attr("data-price-amount"); ok && attr != "" {
			return attr
		}
	}
	return ""
}

// ResolveLink makes href absolute against root and strips query and fragment.
func ResolveLink(root *url.URL, href string) (string, bool) {
	u, ok := resolve(root, href)
	if !ok {
		return "", false
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

// ResolveURL is ResolveLink without the query stripping, for pagination links.
func ResolveURL(root *url.URL, href string) (string, bool) {
	u, ok := resolve(root, href)
	if !ok {
		return "", false
	}

	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

func resolve(root *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return nil, false
	}

	u, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	if root != nil {
		u = root.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
