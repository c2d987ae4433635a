package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Match policies for keyword sets.
const (
	MatchWord      = "word"
	MatchPrefix    = "prefix"
	MatchSubstring = "substring"
)

//go:embed rules.yaml
var defaultRules []byte

// Rules holds the curated keyword and brand tables. They are loaded once at
// startup and passed to the components that need them.
type Rules struct {
	Price          PriceRules          `yaml:"price"`
	Substitutions  []Substitution      `yaml:"substitutions"`
	Classification ClassificationRules `yaml:"classification"`
	Brands         []BrandRule         `yaml:"brands"`
}

// PriceRules bound plausible prices and list currency tokens to strip.
type PriceRules struct {
	Min            float64  `yaml:"min"`
	Max            float64  `yaml:"max"`
	CurrencyTokens []string `yaml:"currency_tokens"`
}

// Substitution rewrites one term during title normalization.
type Substitution struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ClassificationRules groups the keyword sets the classifier checks.
type ClassificationRules struct {
	ExcludedSeries []KeywordSet `yaml:"excluded_series"`
	Accessories    []KeywordSet `yaml:"accessories"`
	PhoneHints     []KeywordSet `yaml:"phone_hints"`
}

// KeywordSet is a list of terms sharing one match policy.
type KeywordSet struct {
	Match string   `yaml:"match"`
	Terms []string `yaml:"terms"`
}

// BrandRule maps a title keyword to a brand and optional series.
type BrandRule struct {
	Keyword string `yaml:"keyword"`
	Brand   string `yaml:"brand"`
	Series  string `yaml:"series,omitempty"`
}

// DefaultRules returns the embedded rule tables.
func DefaultRules() (*Rules, error) {
	return parseRules(defaultRules)
}

// LoadRules reads a rule file. An empty path yields the embedded defaults.
// Sections missing from the file fall back to the defaults.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules, err := parseRules(data)
	if err != nil {
		return nil, err
	}

	defaults, err := DefaultRules()
	if err != nil {
		return nil, err
	}
	rules.applyDefaults(defaults)

	return rules, rules.Validate()
}

func parseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return &r, nil
}

func (r *Rules) applyDefaults(d *Rules) {
	if r.Price.Min <= 0 && r.Price.Max <= 0 {
		r.Price.Min, r.Price.Max = d.Price.Min, d.Price.Max
	}
	if len(r.Price.CurrencyTokens) == 0 {
		r.Price.CurrencyTokens = d.Price.CurrencyTokens
	}
	if len(r.Substitutions) == 0 {
		r.Substitutions = d.Substitutions
	}
	if len(r.Classification.ExcludedSeries) == 0 {
		r.Classification.ExcludedSeries = d.Classification.ExcludedSeries
	}
	if len(r.Classification.Accessories) == 0 {
		r.Classification.Accessories = d.Classification.Accessories
	}
	if len(r.Classification.PhoneHints) == 0 {
		r.Classification.PhoneHints = d.Classification.PhoneHints
	}
	if len(r.Brands) == 0 {
		r.Brands = d.Brands
	}
}

// Validate rejects rule files the pipeline cannot use.
func (r *Rules) Validate() error {
	if r.Price.Min < 0 || r.Price.Max <= r.Price.Min {
		return fmt.Errorf("price bounds invalid: min=%v max=%v", r.Price.Min, r.Price.Max)
	}

	sets := map[string][]KeywordSet{
		"excluded_series": r.Classification.ExcludedSeries,
		"accessories":     r.Classification.Accessories,
		"phone_hints":     r.Classification.PhoneHints,
	}
	for name, group := range sets {
		for i, set := range group {
			switch set.Match {
			case MatchWord, MatchPrefix, MatchSubstring:
			default:
				return fmt.Errorf("%s[%d]: unknown match policy %q", name, i, set.Match)
			}
		}
	}

	for i, b := range r.Brands {
		if b.Keyword == "" || b.Brand == "" {
			return fmt.Errorf("brands[%d]: keyword and brand are required", i)
		}
	}

	for i, s := range r.Substitutions {
		if s.From == "" {
			return fmt.Errorf("substitutions[%d]: from is required", i)
		}
	}

	return nil
}
