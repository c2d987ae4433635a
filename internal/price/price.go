// Package price extracts a plausible numeric price from noisy, localized
// listing text.
package price

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/textnorm"
)

// grouped numerals first ("12,999.00", "12 999", "1.299.000"), then plain ones
var candidatePattern = regexp.MustCompile(`\d{1,3}(?:[ .,]\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)

// Parser finds prices within the configured bounds.
type Parser struct {
	min      float64
	max      float64
	currency []string
}

// New creates a price parser from the price rules.
func New(rules config.PriceRules) *Parser {
	tokens := make([]string, 0, len(rules.CurrencyTokens))
	for _, t := range rules.CurrencyTokens {
		if t = strings.ToLower(textnorm.Canonicalize(t)); t != "" {
			tokens = append(tokens, t)
		}
	}
	sort.SliceStable(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })

	return &Parser{min: rules.Min, max: rules.Max, currency: tokens}
}

// Parse returns the first numeral in text that falls inside the plausibility
// bounds. Unit counts, ratings and stray digits fall outside and are skipped.
func (p *Parser) Parse(text string) (float64, bool) {
	s := strings.ToLower(textnorm.Canonicalize(text))
	if s == "" {
		return 0, false
	}

	for _, tok := range p.currency {
		s = strings.ReplaceAll(s, tok, " ")
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == ',' || r == ' ' {
			return r
		}
		return ' '
	}, s)

	for _, cand := range candidatePattern.FindAllString(s, -1) {
		v, ok := parseNumeral(cand)
		if !ok {
			continue
		}
		if v >= p.min && v <= p.max {
			return v, true
		}
	}

	return 0, false
}

func parseNumeral(raw string) (float64, bool) {
	c := strings.NewReplacer(",", "", " ", "").Replace(raw)

	switch parts := strings.Split(c, "."); {
	case len(parts) == 2:
		// "12.999" is twelve thousand, "1.299" stays a decimal
		if len(parts[1]) == 3 && len(parts[0])+3 >= 5 {
			c = parts[0] + parts[1]
		}
	case len(parts) > 2:
		for _, g := range parts[1:] {
			if len(g) != 3 {
				return 0, false
			}
		}
		c = strings.Join(parts, "")
	}

	v, err := strconv.ParseFloat(c, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
