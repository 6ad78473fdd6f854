package scraper

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError reports a non-2xx HTTP response. RetryAfter carries the
// parsed Retry-After hint when the server supplied one.
type StatusError struct {
	URL        string
	StatusCode int
	RetryAfter string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Retryable reports whether the status is worth another attempt:
// 5xx and 429 are transient, every other 4xx is permanent.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError ||
		e.StatusCode == http.StatusTooManyRequests
}

// ExhaustedError is returned once the retry budget is spent. It wraps
// the last underlying cause.
type ExhaustedError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s exhausted after %d attempts: %v", e.URL, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// IsPermanent reports whether err is a non-retryable fetch failure,
// i.e. a 4xx other than 429.
func IsPermanent(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return !se.Retryable()
	}
	return false
}
