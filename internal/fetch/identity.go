package fetch

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// IdentityPool rotates the user agent presented to storefronts.
type IdentityPool struct {
	agents []string
	idx    int
	mu     sync.Mutex
}

// NewIdentityPool creates a pool from agents, skipping blanks. An empty
// list falls back to a built-in agent.
func NewIdentityPool(agents []string) *IdentityPool {
	pool := make([]string, 0, len(agents))
	for _, a := range agents {
		if a = strings.TrimSpace(a); a != "" {
			pool = append(pool, a)
		}
	}
	if len(pool) == 0 {
		pool = append(pool, defaultUserAgent)
	}
	return &IdentityPool{agents: pool, idx: rand.IntN(len(pool))}
}

// Current returns the agent in use.
func (p *IdentityPool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agents[p.idx]
}

// Rotate switches to the next agent and returns it.
func (p *IdentityPool) Rotate() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idx = (p.idx + 1) % len(p.agents)
	return p.agents[p.idx]
}

func (p *IdentityPool) size() int {
	return len(p.agents)
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// LocaleHeaders returns the request headers matching a storefront locale.
func LocaleHeaders(locale string) map[string]string {
	lang := "en-US,en;q=0.9,ar;q=0.6"
	if strings.HasPrefix(strings.ToLower(locale), "ar") {
		lang = "ar-EG,ar;q=0.9,en;q=0.8"
	}

	return map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": lang,
		"DNT":             "1",
	}
}

// AlternateLocale flips between the two storefront languages.
func AlternateLocale(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "ar") {
		return "en"
	}
	return "ar"
}
