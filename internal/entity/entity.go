// Package entity extracts brand, series, model and variant suffix from a
// normalized listing title.
package entity

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/textnorm"
)

// Entities are the brand, series, model and suffix found in a title.
type Entities struct {
	Brand  string `json:"brand"`
	Series string `json:"series,omitempty"`
	Model  string `json:"model"`
	Suffix string `json:"suffix"`
}

type brandEntry struct {
	keyword []string
	brand   string
	series  string
}

// Parser extracts Entities from normalized titles using the brand rules.
type Parser struct {
	norm   *textnorm.Normalizer
	brands []brandEntry
}

// resolved is the state shared by the model rules.
type resolved struct {
	tokens  []string
	text    string
	brand   string
	series  string
	keyword []string
	at      int
}

type modelRule struct {
	name    string
	applies func(r resolved) bool
	extract func(r resolved) string
}

// Brand-specific rules come first; the first non-empty model wins.
var modelRules = []modelRule{
	{
		name:    "generation",
		applies: func(r resolved) bool { return indexOf(r.tokens, "iphone") >= 0 },
		extract: generationModel,
	},
	{
		name:    "flagship",
		applies: func(r resolved) bool { return r.series == "galaxy" && r.at >= 0 },
		extract: flagshipModel,
	},
	{
		name:    "subline",
		applies: func(r resolved) bool { return r.series != "" && r.at >= 0 },
		extract: sublineModel,
	},
	{
		name:    "brand-token",
		applies: func(r resolved) bool { return r.brand != "" && r.at >= 0 },
		extract: brandTokenModel,
	},
	{
		name:    "bare",
		applies: func(r resolved) bool { return true },
		extract: bareModel,
	},
}

var (
	gluedKeyword   = regexp.MustCompile(`\b(iphone|galaxy|redmi|poco|reno|pixel|note|fold|flip)(\d)`)
	gluedQualifier = regexp.MustCompile(`(\d)(promax|pro|plus|ultra|max|lite|mini)\b`)

	generationToken = regexp.MustCompile(`^\d{1,2}e?$`)
	flagshipToken   = regexp.MustCompile(`^[a-z]{1,2}\d{1,3}[a-z]?\+?$`)
	sublineToken    = regexp.MustCompile(`^[a-z]{0,2}\d{1,3}[a-z]{0,2}\+?$`)
	genericToken    = regexp.MustCompile(`^[a-z]{0,3}\d{1,4}[a-z]{0,3}\+?$`)
	bareToken       = regexp.MustCompile(`\b([a-z]{1,2}\d{1,3}[a-z+]{0,4})\b`)
	yearToken       = regexp.MustCompile(`^(19|20)\d{2}$`)
	specToken       = regexp.MustCompile(`^(\d+(gb|tb|mb|g|mah|w|hz|mp|mm|inch)|4g|5g|lte|ram|rom|gb|tb)$`)
	wordToken       = regexp.MustCompile(`^[a-z]{2,}$`)
)

var (
	generationQualifiers = map[string]string{
		"pro": "Pro", "promax": "Pro Max", "max": "Max", "plus": "Plus",
		"ultra": "Ultra", "air": "Air", "mini": "Mini",
	}
	flagshipQualifiers = map[string]string{
		"ultra": "Ultra", "plus": "Plus", "+": "+", "fe": "FE", "edge": "Edge",
		"lite": "Lite", "pro": "Pro",
	}
	sublineQualifiers = map[string]string{
		"pro": "Pro", "pro+": "Pro+", "+": "+", "promax": "Pro Max", "max": "Max",
		"plus": "Plus", "ultra": "Ultra", "lite": "Lite", "neo": "Neo", "fe": "FE",
		"turbo": "Turbo", "prime": "Prime", "s": "S", "f": "F",
	}
	lineWords = map[string]string{
		"note": "Note", "nord": "Nord", "ce": "CE", "find": "Find",
	}
)

// New creates a parser. Brand keywords are folded with norm so they match
// normalized titles.
func New(brands []config.BrandRule, norm *textnorm.Normalizer) *Parser {
	entries := make([]brandEntry, 0, len(brands))
	for _, b := range brands {
		kw := tokenize(norm.Fold(b.Keyword))
		if len(kw) == 0 {
			continue
		}
		entries = append(entries, brandEntry{
			keyword: kw,
			brand:   strings.ToLower(b.Brand),
			series:  strings.ToLower(b.Series),
		})
	}
	return &Parser{norm: norm, brands: entries}
}

// Parse never fails; parts it cannot determine are left empty.
func (p *Parser) Parse(title string) Entities {
	text := prepare(p.norm.Fold(title))
	tokens := tokenize(text)

	r := resolved{tokens: tokens, text: text, at: -1}
	for _, b := range p.brands {
		if at := indexSeq(tokens, b.keyword); at >= 0 {
			r.brand, r.series, r.keyword, r.at = b.brand, b.series, b.keyword, at
			break
		}
	}

	var model string
	for _, rule := range modelRules {
		if !rule.applies(r) {
			continue
		}
		if model = rule.extract(r); model != "" {
			break
		}
	}

	return Entities{
		Brand:  r.brand,
		Series: r.series,
		Model:  model,
		Suffix: Suffix(text),
	}
}

func prepare(text string) string {
	text = gluedKeyword.ReplaceAllString(text, "$1 $2")
	return gluedQualifier.ReplaceAllString(text, "$1 $2")
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+'
	})
}

func generationModel(r resolved) string {
	at := indexOf(r.tokens, "iphone")
	rest := r.tokens[at+1:]
	if len(rest) == 0 {
		return ""
	}

	switch {
	case generationToken.MatchString(rest[0]):
		parts := append([]string{rest[0]}, qualifiers(rest[1:], generationQualifiers)...)
		return joinModel(parts)
	case rest[0] == "se":
		if len(rest) > 1 && yearToken.MatchString(rest[1]) {
			return "SE " + rest[1]
		}
		return "SE"
	}

	return joinModel(qualifiers(rest, generationQualifiers))
}

func flagshipModel(r resolved) string {
	rest := r.tokens[r.at+len(r.keyword):]
	if len(rest) >= 2 && rest[0] == "z" && (rest[1] == "fold" || rest[1] == "flip") {
		parts := []string{"Z", titleWord(rest[1])}
		if len(rest) > 2 && isDigits(rest[2]) {
			parts = append(parts, rest[2])
		}
		return joinModel(parts)
	}

	var parts []string
	if len(rest) > 0 && rest[0] == "note" {
		parts = append(parts, "Note")
		rest = rest[1:]
	}
	if len(rest) == 0 || !modelToken(flagshipToken, rest[0]) {
		if len(parts) > 0 && len(rest) > 0 && modelToken(sublineToken, rest[0]) {
			return joinModel(append(parts, formatToken(rest[0])))
		}
		return ""
	}

	parts = append(parts, formatToken(rest[0]))
	parts = append(parts, qualifiers(rest[1:], flagshipQualifiers)...)
	return joinModel(parts)
}

func sublineModel(r resolved) string {
	rest := r.tokens[r.at+len(r.keyword):]

	var parts []string
	for len(rest) > 0 && len(parts) < 2 {
		w, ok := lineWords[rest[0]]
		if !ok {
			break
		}
		parts = append(parts, w)
		rest = rest[1:]
	}

	if len(rest) == 0 || !modelToken(sublineToken, rest[0]) {
		return ""
	}

	parts = append(parts, formatToken(rest[0]))
	parts = append(parts, qualifiers(rest[1:], sublineQualifiers)...)
	return joinModel(parts)
}

func brandTokenModel(r resolved) string {
	rest := r.tokens[r.at+len(r.keyword):]
	if len(rest) == 0 {
		return ""
	}

	if modelToken(genericToken, rest[0]) {
		return joinModel(append([]string{formatToken(rest[0])}, qualifiers(rest[1:], sublineQualifiers)...))
	}

	// one naming word is allowed before the number: "edge 50", "spark 20"
	if len(rest) > 1 && wordToken.MatchString(rest[0]) && modelToken(genericToken, rest[1]) {
		parts := []string{titleWord(rest[0]), formatToken(rest[1])}
		return joinModel(append(parts, qualifiers(rest[2:], sublineQualifiers)...))
	}

	return ""
}

func bareModel(r resolved) string {
	for _, m := range bareToken.FindAllStringSubmatch(r.text, -1) {
		if !specToken.MatchString(m[1]) {
			return formatToken(m[1])
		}
	}
	return ""
}

func modelToken(re *regexp.Regexp, tok string) bool {
	return re.MatchString(tok) && strings.IndexFunc(tok, unicode.IsDigit) >= 0 && !specToken.MatchString(tok)
}

// qualifiers consumes up to two leading qualifier tokens; "pro" "max" merges.
func qualifiers(tokens []string, allowed map[string]string) []string {
	var out []string
	for i := 0; i < len(tokens) && len(out) < 2; i++ {
		tok := tokens[i]
		if tok == "pro" && i+1 < len(tokens) && tokens[i+1] == "max" {
			if q, ok := allowed["promax"]; ok {
				out = append(out, q)
				i++
				continue
			}
		}
		q, ok := allowed[tok]
		if !ok {
			break
		}
		out = append(out, q)
	}
	return out
}

func joinModel(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 && p != "+" {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

func formatToken(tok string) string {
	if strings.IndexFunc(tok, unicode.IsDigit) >= 0 {
		return strings.ToUpper(tok)
	}
	return titleWord(tok)
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	runes := []rune(w)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func indexOf(tokens []string, tok string) int {
	for i, t := range tokens {
		if t == tok {
			return i
		}
	}
	return -1
}

func indexSeq(tokens, seq []string) int {
	if len(seq) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(seq) <= len(tokens); i++ {
		for k, s := range seq {
			if tokens[i+k] != s {
				continue outer
			}
		}
		return i
	}
	return -1
}

func isDigits(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
}
