// Package dedupe drops repeated listings within one crawl run.
package dedupe

import (
	"strings"

	"github.com/maltedev/phone-catalog-scraper/internal/models"
)

// Key identifies a listing: link plus variant suffix, or the normalized
// title when the card carried no link.
func Key(r *models.ProductRecord) string {
	if r.Link != "" {
		return "link\x00" + r.Link + "\x00" + r.Suffix
	}
	return "title\x00" + strings.ToLower(r.NormalizedTitle)
}

// Set remembers keys seen so far. The zero value is not usable; use NewSet.
type Set struct {
	seen map[string]struct{}
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add reports whether r is new.
func (s *Set) Add(r *models.ProductRecord) bool {
	k := Key(r)
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Len returns the number of distinct keys seen.
func (s *Set) Len() int {
	return len(s.seen)
}

// Dedupe keeps the first occurrence of each key, preserving order.
func Dedupe(records []models.ProductRecord) []models.ProductRecord {
	set := NewSet()
	out := make([]models.ProductRecord, 0, len(records))
	for i := range records {
		if set.Add(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
