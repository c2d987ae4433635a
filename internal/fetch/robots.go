package fetch

import (
	"context"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

const robotsAgent = "phone-catalog-scraper"

// RobotsPolicy answers whether a URL may be crawled. robots.txt is fetched
// once per host; hosts whose robots.txt cannot be loaded are allowed.
type RobotsPolicy struct {
	transport Transport
	agent     string
	groups    map[string]*robotstxt.Group
	mu        sync.Mutex
}

// NewRobotsPolicy creates a policy that loads robots.txt through transport.
func NewRobotsPolicy(transport Transport) *RobotsPolicy {
	return &RobotsPolicy{
		transport: transport,
		agent:     robotsAgent,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether rawURL may be crawled. A robots.txt that cannot be
// loaded allows everything.
func (r *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	group, ok := r.group(ctx, u)
	if !ok || group == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

func (r *RobotsPolicy) group(ctx context.Context, u *url.URL) (*robotstxt.Group, bool) {
	key := u.Scheme + "://" + u.Host

	r.mu.Lock()
	group, cached := r.groups[key]
	r.mu.Unlock()
	if cached {
		return group, true
	}

	resp, err := r.transport.Do(ctx, Request{URL: key + "/robots.txt", UserAgent: r.agent})
	if err != nil {
		return nil, false
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err == nil {
		group = data.FindGroup(r.agent)
	}

	r.mu.Lock()
	r.groups[key] = group
	r.mu.Unlock()
	return group, true
}
