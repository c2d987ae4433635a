package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	pairedMemory = regexp.MustCompile(`\b(\d{1,2})\s*(?:gb)?\s*/\s*(\d{1,4})\s*(gb|tb)\b`)
	ramAfter     = regexp.MustCompile(`\b(\d{1,2})\s*gb\s*ram\b`)
	ramBefore    = regexp.MustCompile(`\bram\s*:?\s*(\d{1,2})(?:\s*gb)?\b`)
	storageSize  = regexp.MustCompile(`\b(\d{1,4})\s*(gb|tb)\b`)
	network5G    = regexp.MustCompile(`\b5g\b`)
	network4G    = regexp.MustCompile(`\b(4g|lte)\b`)
	dualSIM      = regexp.MustCompile(`\bdual[\s-]*sim\b`)
)

type size struct {
	gb    int
	label string
}

// Suffix builds the variant descriptor "RAM / capacity / network / Dual SIM"
// from a folded title. Components that are absent are omitted.
func Suffix(text string) string {
	text = strings.ToLower(text)

	var ram []int
	var capacity []size
	var taken [][]int

	for _, m := range pairedMemory.FindAllStringSubmatchIndex(text, -1) {
		r, _ := strconv.Atoi(text[m[2]:m[3]])
		ram = append(ram, r)
		capacity = append(capacity, newSize(text[m[4]:m[5]], text[m[6]:m[7]]))
		taken = append(taken, m[:2])
	}
	for _, re := range []*regexp.Regexp{ramAfter, ramBefore} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if overlaps(taken, m[0], m[1]) {
				continue
			}
			r, _ := strconv.Atoi(text[m[2]:m[3]])
			ram = append(ram, r)
			taken = append(taken, m[:2])
		}
	}

	var loose []size
	for _, m := range storageSize.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(taken, m[0], m[1]) {
			continue
		}
		loose = append(loose, newSize(text[m[2]:m[3]], text[m[4]:m[5]]))
	}
	r, c := splitMemory(loose)
	ram = append(ram, r...)
	capacity = append(capacity, c...)

	var parts []string
	if len(ram) > 0 {
		parts = append(parts, fmt.Sprintf("%dGB RAM", maxInt(ram)))
	}
	if len(capacity) > 0 {
		parts = append(parts, largest(capacity).label)
	}
	switch {
	case network5G.MatchString(text):
		parts = append(parts, "5G")
	case network4G.MatchString(text):
		parts = append(parts, "4G")
	}
	if dualSIM.MatchString(text) {
		parts = append(parts, "Dual SIM")
	}

	return strings.Join(parts, " / ")
}

// splitMemory classifies untagged GB/TB figures. Small figures are RAM, large
// ones are storage, and 16/24GB count as RAM only next to a larger figure.
func splitMemory(sizes []size) (ram []int, capacity []size) {
	top := 0
	for _, s := range sizes {
		top = max(top, s.gb)
	}

	for _, s := range sizes {
		switch {
		case s.gb <= 12 && !strings.HasSuffix(s.label, "TB"):
			ram = append(ram, s.gb)
		case s.gb < 32 && !strings.HasSuffix(s.label, "TB") && top > s.gb:
			ram = append(ram, s.gb)
		default:
			capacity = append(capacity, s)
		}
	}
	return ram, capacity
}

func newSize(value, unit string) size {
	n, _ := strconv.Atoi(value)
	if unit == "tb" {
		return size{gb: n * 1024, label: fmt.Sprintf("%dTB", n)}
	}
	return size{gb: n, label: fmt.Sprintf("%dGB", n)}
}

func largest(sizes []size) size {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.gb > best.gb {
			best = s
		}
	}
	return best
}

func maxInt(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		m = max(m, x)
	}
	return m
}

func overlaps(spans [][]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && end > s[0] {
			return true
		}
	}
	return false
}
