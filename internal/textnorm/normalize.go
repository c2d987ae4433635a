// Package textnorm canonicalizes bilingual (Arabic/Latin) listing text so that
// keyword matching and entity parsing can work on a single vocabulary.
package textnorm

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes titles and applies the configured substitutions.
type Normalizer struct {
	subs []substitution
}

type substitution struct {
	from []string
	to   string
}

// New builds a Normalizer from a substitution table. Table keys are
// canonicalized first, so spelling variants of a key all match.
func New(table []config.Substitution) *Normalizer {
	subs := make([]substitution, 0, len(table))
	for _, s := range table {
		from := strings.Fields(Canonicalize(s.From))
		if len(from) == 0 {
			continue
		}
		subs = append(subs, substitution{from: from, to: s.To})
	}

	// longest phrase first, so "برو ماكس" wins over "برو"
	sort.SliceStable(subs, func(i, j int) bool {
		if len(subs[i].from) != len(subs[j].from) {
			return len(subs[i].from) > len(subs[j].from)
		}
		return len(strings.Join(subs[i].from, " ")) > len(strings.Join(subs[j].from, " "))
	})

	return &Normalizer{subs: subs}
}

// Normalize canonicalizes scripts, digits and whitespace, then applies the
// cross-script token substitutions. It is idempotent.
func (n *Normalizer) Normalize(text string) string {
	return n.substitute(Canonicalize(text))
}

// Fold is the lower-cased Normalize used for keyword matching.
func (n *Normalizer) Fold(text string) string {
	return strings.ToLower(n.Normalize(text))
}

// Canonicalize applies the script and digit canonicalization and collapses
// whitespace, without token substitution.
func Canonicalize(text string) string {
	if text == "" {
		return ""
	}

	out, _, err := transform.String(canonicalTransformer(), text)
	if err != nil {
		out = strings.Map(canonicalRune, text)
	}

	return strings.Join(strings.Fields(out), " ")
}

func canonicalTransformer() transform.Transformer {
	return transform.Chain(
		norm.NFKC,
		runes.Remove(runes.Predicate(isDroppable)),
		runes.Map(canonicalRune),
	)
}

func isDroppable(r rune) bool {
	return r == 'ـ' || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Cf, r)
}

func canonicalRune(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	}

	switch r {
	case 'إ', 'أ', 'آ', 'ٱ':
		return 'ا'
	case 'ى':
		return 'ي'
	case 'ة':
		return 'ه'
	case '٫':
		return '.'
	case '٬', '،':
		return ','
	case '–', '—', '−':
		return '-'
	}
	return r
}

func (n *Normalizer) substitute(text string) string {
	if len(n.subs) == 0 || text == "" {
		return text
	}

	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))

	for i := 0; i < len(tokens); {
		replaced := false
		for _, s := range n.subs {
			if rep, ok := matchAt(tokens, i, s); ok {
				out = append(out, rep)
				i += len(s.from)
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, tokens[i])
			i++
		}
	}

	return strings.Join(out, " ")
}

// matchAt reports whether s matches the tokens starting at i. Punctuation is
// allowed before the first and after the last token and is carried over.
func matchAt(tokens []string, i int, s substitution) (string, bool) {
	if i+len(s.from) > len(tokens) {
		return "", false
	}

	var lead, trail string
	for k, want := range s.from {
		l, core, t := splitPunct(tokens[i+k])
		if core != want {
			return "", false
		}
		if (k > 0 && l != "") || (k < len(s.from)-1 && t != "") {
			return "", false
		}
		if k == 0 {
			lead = l
		}
		if k == len(s.from)-1 {
			trail = t
		}
	}

	return lead + s.to + trail, true
}

func splitPunct(tok string) (lead, core, trail string) {
	start := strings.IndexFunc(tok, isWordRune)
	if start < 0 {
		return tok, "", ""
	}
	end := strings.LastIndexFunc(tok, isWordRune)
	_, size := utf8.DecodeRuneInString(tok[end:])
	return tok[:start], tok[start : end+size], tok[end+size:]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
