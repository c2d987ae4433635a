package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("page not found")
	ErrAccessDenied = errors.New("access denied")
	ErrDisallowed   = errors.New("disallowed by robots.txt")
	ErrTransient    = errors.New("transient fetch failure")
	ErrEmptyBody    = errors.New("empty response body")
)

// StatusError is a non-2xx answer from the storefront.
type StatusError struct {
	Code int
	URL  string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// Unwrap maps the status code onto the fetch sentinel errors.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusNotFound || e.Code == http.StatusGone:
		return ErrNotFound
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		return ErrAccessDenied
	case e.Retryable():
		return ErrTransient
	}
	return nil
}

// Retryable reports whether the status is throttling or a server error.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
