package entity

import (
	"testing"

	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/textnorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	rules, err := config.DefaultRules()
	require.NoError(t, err)
	return New(rules.Brands, textnorm.New(rules.Substitutions))
}

func TestParse(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name     string
		title    string
		expected Entities
	}{
		{
			name:     "iphone generation with qualifier",
			title:    "Apple iPhone 13 Pro Max 256GB",
			expected: Entities{Brand: "apple", Model: "13 Pro Max", Suffix: "256GB"},
		},
		{
			name:  "sub-line alias",
			title: "Redmi Note 13 Pro 8GB 256GB 5G Dual SIM",
			expected: Entities{
				Brand: "xiaomi", Series: "redmi", Model: "Note 13 Pro",
				Suffix: "8GB RAM / 256GB / 5G / Dual SIM",
			},
		},
		{
			name:  "flagship sub-line",
			title: "Samsung Galaxy S24 Ultra 12GB RAM 512GB",
			expected: Entities{
				Brand: "samsung", Series: "galaxy", Model: "S24 Ultra", Suffix: "12GB RAM / 512GB",
			},
		},
		{
			name:     "foldable",
			title:    "Samsung Galaxy Z Fold 5 1TB",
			expected: Entities{Brand: "samsung", Series: "galaxy", Model: "Z Fold 5", Suffix: "1TB"},
		},
		{
			name:     "plus sign kept on token",
			title:    "Samsung Galaxy S24+ 256GB",
			expected: Entities{Brand: "samsung", Series: "galaxy", Model: "S24+", Suffix: "256GB"},
		},
		{
			name:     "generation letter preserved",
			title:    "Apple iPhone 16e 128GB",
			expected: Entities{Brand: "apple", Model: "16e", Suffix: "128GB"},
		},
		{
			name:     "qualifier only",
			title:    "Apple iPhone Air 256GB",
			expected: Entities{Brand: "apple", Model: "Air", Suffix: "256GB"},
		},
		{
			name:     "glued generation and qualifier",
			title:    "iPhone15Pro 128GB",
			expected: Entities{Brand: "apple", Model: "15 Pro", Suffix: "128GB"},
		},
		{
			name:     "arabic iphone title",
			title:    "ايفون 15 برو ماكس 256 جيجا",
			expected: Entities{Brand: "apple", Model: "15 Pro Max", Suffix: "256GB"},
		},
		{
			name:     "arabic sub-line",
			title:    "شاومي ريدمي 13C رام 8",
			expected: Entities{Brand: "xiaomi", Series: "redmi", Model: "13C", Suffix: "8GB RAM"},
		},
		{
			name:  "paired memory",
			title: "OPPO Reno 12 F 5G 8/256GB",
			expected: Entities{
				Brand: "oppo", Series: "reno", Model: "12 F", Suffix: "8GB RAM / 256GB / 5G",
			},
		},
		{
			name:     "brand followed by model token",
			title:    "Honor X9b 5G 12GB 256GB",
			expected: Entities{Brand: "honor", Model: "X9B", Suffix: "12GB RAM / 256GB / 5G"},
		},
		{
			name:     "brand with naming word",
			title:    "Motorola Edge 50 Pro 5G",
			expected: Entities{Brand: "motorola", Model: "Edge 50 Pro", Suffix: "5G"},
		},
		{
			name:     "multi-word keyword",
			title:    "Nothing Phone 2a 128GB",
			expected: Entities{Brand: "nothing", Model: "Phone 2A", Suffix: "128GB"},
		},
		{
			name:     "bare model without brand",
			title:    "Smart Phone A15 4G",
			expected: Entities{Model: "A15", Suffix: "4G"},
		},
		{
			name:     "nothing recognizable",
			title:    "Mobile Phone Black",
			expected: Entities{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Parse(tt.title))
		})
	}
}

func TestParse_ArabicLineNames(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		title  string
		brand  string
		series string
		model  string
	}{
		{"شاومي ريدمي نوت 13 برو 8 جيجا رام 256 جيجا", "xiaomi", "redmi", "Note 13 Pro"},
		{"سامسونج جالكسي S24 الترا 256 جيجا شحن لاسلكي", "samsung", "galaxy", "S24 Ultra"},
		{"موبايل سامسونج جلاكسي A55 5G", "samsung", "galaxy", "A55"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := p.Parse(tt.title)
			assert.Equal(t, tt.brand, got.Brand)
			assert.Equal(t, tt.series, got.Series)
			assert.Equal(t, tt.model, got.Model)
		})
	}
}

func TestParse_BrandTableOrder(t *testing.T) {
	p := New([]config.BrandRule{
		{Keyword: "samsung", Brand: "samsung"},
		{Keyword: "galaxy", Brand: "samsung", Series: "galaxy"},
	}, textnorm.New(nil))

	// parent keyword listed first wins, so no series is attached
	got := p.Parse("Samsung Galaxy A55 5G")
	assert.Equal(t, "samsung", got.Brand)
	assert.Empty(t, got.Series)
}

func TestSuffix(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"explicit ram after", "8gb ram 128gb", "8GB RAM / 128GB"},
		{"explicit ram before", "ram 6gb 128gb", "6GB RAM / 128GB"},
		{"mid size next to larger", "galaxy a55 16gb 512gb", "16GB RAM / 512GB"},
		{"mid size alone is storage", "nothing 16gb", "16GB"},
		{"terabyte beats gigabytes", "12/1tb", "12GB RAM / 1TB"},
		{"largest capacity wins", "128gb 256gb", "256GB"},
		{"lte", "phone 4g lte", "4G"},
		{"5g preferred", "5g 4g", "5G"},
		{"hyphenated dual sim", "dual-sim", "Dual SIM"},
		{"empty", "black", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Suffix(tt.text))
		})
	}
}
