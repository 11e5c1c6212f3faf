package webfetch

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/c360studio/semfetch/source/weburl"
)

// ErrorKind classifies a FetchError.
type ErrorKind string

// Fetch error kinds.
const (
	KindNetwork     ErrorKind = "network"
	KindHTTP        ErrorKind = "http"
	KindContentType ErrorKind = "content_type"
	KindRedirect    ErrorKind = "redirect"
	KindRateLimited ErrorKind = "rate_limited"
	KindCancelled   ErrorKind = "cancelled"
)

// Error codes reported for failed URLs.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeFetch      = "FETCH_ERROR"
	CodeUnknown    = "UNKNOWN_ERROR"
)

// FetchError is returned when a URL passed validation but could not be
// retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Kind       ErrorKind

	// Reason is set for rate-limit rejections, which report blocked_domain.
	Reason weburl.Reason

	Err error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTP {
		status := e.Status
		if status == "" {
			status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
		}
		return fmt.Sprintf("fetch %s: HTTP %s", e.URL, status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed: network failures,
// 5xx, 429 and 408.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindHTTP:
		return e.StatusCode >= 500 ||
			e.StatusCode == http.StatusTooManyRequests ||
			e.StatusCode == http.StatusRequestTimeout
	default:
		return false
	}
}

// RateLimitError is returned by RateLimiter.Check when a host's window is
// exhausted.
type RateLimitError struct {
	Host    string
	Limit   int
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d requests exceeded for %s, window resets at %s", e.Limit, e.Host, e.ResetAt.Format(time.RFC3339))
}

// IsRetryable returns true if err is a FetchError worth retrying.
// Validation errors are never retried.
func IsRetryable(err error) bool {
	if weburl.IsValidationError(err) {
		return false
	}
	var ferr *FetchError
	if errors.As(err, &ferr) {
		return ferr.Retryable()
	}
	return false
}

// ErrorCode maps err to a stable code: VALIDATION_ERROR, HTTP_<status>,
// FETCH_ERROR or UNKNOWN_ERROR.
func ErrorCode(err error) string {
	if weburl.IsValidationError(err) {
		return CodeValidation
	}
	var ferr *FetchError
	if errors.As(err, &ferr) {
		if ferr.StatusCode > 0 {
			return fmt.Sprintf("HTTP_%d", ferr.StatusCode)
		}
		return CodeFetch
	}
	return CodeUnknown
}
