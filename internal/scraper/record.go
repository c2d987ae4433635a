package scraper

import (
	"strings"
	"time"

	"github.com/maltedev/phone-catalog-scraper/internal/classify"
	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/entity"
	"github.com/maltedev/phone-catalog-scraper/internal/models"
	"github.com/maltedev/phone-catalog-scraper/internal/parser"
	"github.com/maltedev/phone-catalog-scraper/internal/price"
	"github.com/maltedev/phone-catalog-scraper/internal/sites"
	"github.com/maltedev/phone-catalog-scraper/internal/textnorm"
)

const (
	CategoryMobiles = "mobiles"
	CategoryAll     = "all"
)

// RecordBuilder turns extracted card fields into a classified, enriched
// record.
type RecordBuilder struct {
	norm       *textnorm.Normalizer
	prices     *price.Parser
	classifier *classify.Classifier
	entities   *entity.Parser
}

// NewRecordBuilder creates a builder from the loaded rules.
func NewRecordBuilder(rules *config.Rules) *RecordBuilder {
	norm := textnorm.New(rules.Substitutions)
	return &RecordBuilder{
		norm:       norm,
		prices:     price.New(rules.Price),
		classifier: classify.New(rules.Classification, norm),
		entities:   entity.New(rules.Brands, norm),
	}
}

// CardContext is what a card needs to know about where it was found.
type CardContext struct {
	Site              *sites.Site
	Target            models.FetchTarget
	FilterAccessories bool
	ScrapedAt         time.Time
}

func (c CardContext) category() string {
	if c.FilterAccessories {
		return CategoryMobiles
	}
	return CategoryAll
}

// Build returns the record and the classifier verdict. Only a Matching
// verdict yields a usable record.
func (b *RecordBuilder) Build(fields parser.Fields, cc CardContext) (models.ProductRecord, classify.Verdict) {
	title := b.norm.Normalize(fields.Title)
	if title == "" {
		return models.ProductRecord{}, classify.Unrecognized
	}

	verdict := b.classifier.Classify(title, cc.FilterAccessories)
	if verdict != classify.Matching {
		return models.ProductRecord{}, verdict
	}

	ents := b.entities.Parse(title)

	rec := models.ProductRecord{
		Title:           strings.TrimSpace(fields.Title),
		NormalizedTitle: title,
		Currency:        cc.Site.Currency,
		Link:            fields.Link,
		Store:           cc.Site.Store,
		Category:        cc.category(),
		Brand:           ents.Brand,
		Series:          ents.Series,
		Model:           ents.Model,
		Suffix:          ents.Suffix,
		QueryTerm:       cc.Target.Query,
		Locale:          cc.Target.Locale,
		Origin:          cc.Target.Origin,
		Country:         cc.Site.Country,
		ScrapedAt:       cc.ScrapedAt,
	}
	if rec.Country == "" {
		rec.Country = models.DefaultCountry
	}
	if v, ok := b.prices.Parse(fields.PriceText); ok {
		rec.Price = &v
	}

	return rec, classify.Matching
}
