package probe

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// UnreachableError covers connection, DNS and TLS failures, per request
// timeouts and oversized bodies
type UnreachableError struct {
	URL   string
	Cause error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.URL, e.Cause)
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// RateLimitedError is returned once every attempt was answered with 429.
// It is inconclusive rather than a failure of the endpoint.
type RateLimitedError struct {
	URL      string
	Attempts int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s still rate limited after %d attempts", e.URL, e.Attempts)
}
