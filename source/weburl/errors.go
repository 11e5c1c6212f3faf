package weburl

import (
	"errors"
	"fmt"
)

// Reason classifies why a URL was rejected.
type Reason string

// Validation failure reasons. The string values are stable and are surfaced to
// callers as machine-readable codes.
const (
	ReasonInvalidFormat     Reason = "invalid_format"
	ReasonBlockedDomain     Reason = "blocked_domain"
	ReasonSuspiciousPattern Reason = "suspicious_pattern"
)

// ValidationError is returned when a URL fails screening. It is raised before
// any network access and is never retried.
type ValidationError struct {
	URL     string
	Host    string
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("url validation failed (%s): %s", e.Reason, e.Message)
}

// AsValidationError extracts a ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	_, ok := AsValidationError(err)
	return ok
}
