package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpproxy"
)

const maxBodyBytes = 10 << 20

// Request is one GET issued by a transport.
type Request struct {
	URL       string
	UserAgent string
	Headers   map[string]string
}

// Response is the raw answer to a Request.
type Response struct {
	StatusCode int
	URL        string
	Body       []byte
}

// Transport performs one page load. Implementations report non-2xx answers
// through Response.StatusCode, not as errors.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPOptions configures the plain HTTP transport.
type HTTPOptions struct {
	Timeout time.Duration
	Proxy   string
	NoProxy []string
}

// HTTPTransport fetches pages with net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates an HTTP transport, routing through opts.Proxy
// when set.
func NewHTTPTransport(opts HTTPOptions) (*HTTPTransport, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()

	if opts.Proxy != "" {
		if _, err := url.Parse(opts.Proxy); err != nil {
			return nil, fmt.Errorf("failed to parse proxy url: %w", err)
		}
		proxyFunc := (&httpproxy.Config{
			HTTPProxy:  opts.Proxy,
			HTTPSProxy: opts.Proxy,
			NoProxy:    strings.Join(opts.NoProxy, ","),
		}).ProxyFunc()
		base.Proxy = func(r *http.Request) (*url.URL, error) {
			return proxyFunc(r.URL)
		}
	} else {
		base.Proxy = nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}

	return &HTTPTransport{client: &http.Client{Timeout: timeout, Transport: base}}, nil
}

// Do performs the request.
func (t *HTTPTransport) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		URL:        resp.Request.URL.String(),
		Body:       body,
	}, nil
}
