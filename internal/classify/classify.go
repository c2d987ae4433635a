// Package classify decides whether a listing title is a phone, an accessory
// or a non-phone series, using the declarative keyword tables from the rules.
package classify

import (
	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/textnorm"
)

// Verdict is the outcome of classifying a title.
type Verdict int

const (
	Matching Verdict = iota
	Accessory
	ExcludedSeries
	// Unrecognized is returned when a phone hint was required and none was found.
	Unrecognized
)

// String returns the verdict name used in logs and summaries.
func (v Verdict) String() string {
	switch v {
	case Matching:
		return "matching"
	case Accessory:
		return "accessory"
	case ExcludedSeries:
		return "excluded_series"
	case Unrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

type keywordSet struct {
	policy string
	terms  []string
}

// Classifier decides whether a normalized title is a phone worth keeping.
type Classifier struct {
	norm        *textnorm.Normalizer
	excluded    []keywordSet
	accessories []keywordSet
	hints       []keywordSet
}

// New creates a classifier from the classification rules. Terms are
// normalized with norm so they match normalized titles.
func New(rules config.ClassificationRules, norm *textnorm.Normalizer) *Classifier {
	return &Classifier{
		norm:        norm,
		excluded:    compile(rules.ExcludedSeries, norm),
		accessories: compile(rules.Accessories, norm),
		hints:       compile(rules.PhoneHints, norm),
	}
}

func compile(sets []config.KeywordSet, norm *textnorm.Normalizer) []keywordSet {
	out := make([]keywordSet, 0, len(sets))
	for _, s := range sets {
		ks := keywordSet{policy: s.Match}
		for _, t := range s.Terms {
			if f := norm.Fold(t); f != "" {
				ks.terms = append(ks.terms, f)
			}
		}
		out = append(out, ks)
	}
	return out
}

// Classify applies the rules in order: excluded series, accessories, then the
// phone-hint requirement when requireHint is set.
func (c *Classifier) Classify(title string, requireHint bool) Verdict {
	v, _ := c.Explain(title, requireHint)
	return v
}

// Explain is Classify plus the term that decided the verdict.
func (c *Classifier) Explain(title string, requireHint bool) (Verdict, string) {
	folded := c.norm.Fold(title)

	if term, ok := firstMatch(folded, c.excluded); ok {
		return ExcludedSeries, term
	}
	if term, ok := firstMatch(folded, c.accessories); ok {
		return Accessory, term
	}
	if !requireHint {
		return Matching, ""
	}
	if term, ok := firstMatch(folded, c.hints); ok {
		return Matching, term
	}
	return Unrecognized, ""
}

func firstMatch(text string, sets []keywordSet) (string, bool) {
	for _, s := range sets {
		for _, term := range s.terms {
			if textnorm.Contains(text, term, s.policy) {
				return term, true
			}
		}
	}
	return "", false
}
