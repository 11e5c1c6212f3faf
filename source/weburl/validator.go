package weburl

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
)

// MaxURLLength is the longest URL accepted, in bytes.
const MaxURLLength = 2048

// allowedPorts are the only explicit ports a URL may carry.
var allowedPorts = map[string]bool{"80": true, "443": true, "8080": true, "8443": true}

// DefaultMaliciousDomains are IP loggers and tracking redirectors that are
// rejected regardless of the configured allowlist.
var DefaultMaliciousDomains = []string{
	"grabify.link",
	"iplogger.org",
	"iplogger.com",
	"iplogger.ru",
	"2no.co",
	"blasze.com",
	"ps3cfw.com",
}

// Policy holds the domain lists applied by a Validator.
type Policy struct {
	// AllowedDomains restricts fetching to matching hosts. Empty or ["*"] allows all.
	AllowedDomains []string `json:"allowed_domains" yaml:"allowed_domains"`

	// BlockedDomains is checked before the allowlist; any match rejects.
	BlockedDomains []string `json:"blocked_domains" yaml:"blocked_domains"`

	// MaliciousDomains is matched exactly or by subdomain. Nil uses DefaultMaliciousDomains.
	MaliciousDomains []string `json:"malicious_domains,omitempty" yaml:"malicious_domains,omitempty"`
}

// Verdict is the outcome of screening a single URL.
type Verdict struct {
	Valid    bool     `json:"valid"`
	Reason   Reason   `json:"reason,omitempty"`
	Message  string   `json:"message,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validator screens URLs before any network access.
// It is safe for concurrent use.
type Validator struct {
	mu     sync.RWMutex
	policy Policy
	logger *slog.Logger
	stats  *statsRecorder
}

// Option configures a Validator.
type Option func(*Validator)

// WithPolicy sets the initial domain policy.
func WithPolicy(p Policy) Option {
	return func(v *Validator) {
		v.policy = p
	}
}

// WithLogger sets the logger used for heuristic warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewValidator creates a URL validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		logger: slog.Default(),
		stats:  newStatsRecorder(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetPolicy replaces the domain policy, e.g. after a configuration reload.
func (v *Validator) SetPolicy(p Policy) {
	v.mu.Lock()
	v.policy = p
	v.mu.Unlock()
}

// Policy returns the current domain policy.
func (v *Validator) Policy() Policy {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.policy
}

// Validate screens rawURL. allowedDomains overrides the policy allowlist when
// non-empty. The returned error is always a *ValidationError.
func (v *Validator) Validate(rawURL string, allowedDomains []string) error {
	warnings, err := v.run(rawURL, allowedDomains)
	if err != nil {
		return err
	}
	if len(warnings) > 0 {
		v.logger.Warn("URL passed validation with warnings",
			"url", rawURL,
			"warnings", warnings)
	}
	return nil
}

// Check screens rawURL and reports the outcome as a Verdict instead of an error.
func (v *Validator) Check(rawURL string, allowedDomains []string) Verdict {
	warnings, err := v.run(rawURL, allowedDomains)
	if err != nil {
		verr, _ := AsValidationError(err)
		return Verdict{Valid: false, Reason: verr.Reason, Message: verr.Message}
	}
	return Verdict{Valid: true, Warnings: warnings}
}

// Stats returns a snapshot of the validation counters.
func (v *Validator) Stats() Stats {
	return v.stats.snapshot()
}

// ResetStats clears the validation counters.
func (v *Validator) ResetStats() {
	v.stats.reset()
}

func (v *Validator) run(rawURL string, allowedDomains []string) ([]string, error) {
	v.stats.recordAttempt()

	warnings, verr, pattern := v.evaluate(rawURL, allowedDomains)
	if verr != nil {
		v.stats.recordFailure(verr, pattern)
		return nil, verr
	}
	return warnings, nil
}

// evaluate runs the screening pipeline, stopping at the first failure. The
// pattern result names the suspicious pattern that fired, if any.
func (v *Validator) evaluate(rawURL string, allowedDomains []string) ([]string, *ValidationError, string) {
	fail := func(reason Reason, host, format string, args ...any) *ValidationError {
		return &ValidationError{URL: rawURL, Host: host, Reason: reason, Message: fmt.Sprintf(format, args...)}
	}

	// Go's URL parser rejects control characters outright, so they are
	// screened first to report them as suspicious rather than malformed.
	if hasControlChars(rawURL) {
		return nil, fail(ReasonSuspiciousPattern, "", "URL contains control characters"), "control characters"
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" {
		return nil, fail(ReasonInvalidFormat, "", "URL is not a valid absolute URL"), ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fail(ReasonBlockedDomain, "", "scheme %q is not allowed; only http and https are supported", parsed.Scheme), ""
	}
	host := normalizeHost(parsed.Hostname())
	if host == "" {
		return nil, fail(ReasonInvalidFormat, "", "URL has no host"), ""
	}

	// Numeric shorthand such as 2130706433 or 127.1 is screened as the
	// dotted-decimal address it denotes.
	numericHost := ""
	if ip, numeric, err := ParseNumericIPv4(host); numeric {
		if err != nil {
			return nil, fail(ReasonInvalidFormat, host, "host %s is not a valid IPv4 address: %v", host, err), ""
		}
		if canonical := ip.String(); canonical != host {
			numericHost = host
			host = canonical
		}
	}

	if name := matchSuspicious(rawURL, parsed.Host); name != "" {
		return nil, fail(ReasonSuspiciousPattern, host, "URL matches suspicious pattern: %s", name), name
	}

	if why := detectHomograph(host); why != "" {
		return nil, fail(ReasonSuspiciousPattern, host, "possible homograph attack: %s", why), "homograph"
	}

	policy := v.Policy()
	if MatchesAnyDomain(host, policy.BlockedDomains) {
		return nil, fail(ReasonBlockedDomain, host, "domain %s is blocklisted", host), ""
	}
	allowed := allowedDomains
	if len(allowed) == 0 {
		allowed = policy.AllowedDomains
	}
	if len(allowed) > 0 && !isWildcardOnly(allowed) && !MatchesAnyDomain(host, allowed) {
		return nil, fail(ReasonBlockedDomain, host, "domain %s is not in the allowed domains list", host), ""
	}

	if IsInternalHost(host) {
		what := "internal hostname"
		if net.ParseIP(host) != nil {
			what = "private or reserved IP address"
		}
		return nil, fail(ReasonBlockedDomain, host, "access to %s %s is not allowed", what, host), ""
	}

	malicious := policy.MaliciousDomains
	if malicious == nil {
		malicious = DefaultMaliciousDomains
	}
	for _, bad := range malicious {
		bad = normalizeHost(bad)
		if bad != "" && (host == bad || strings.HasSuffix(host, "."+bad)) {
			return nil, fail(ReasonBlockedDomain, host, "domain %s is known to be malicious", host), ""
		}
	}

	if len(rawURL) > MaxURLLength {
		return nil, fail(ReasonInvalidFormat, host, "URL exceeds maximum length of %d characters", MaxURLLength), ""
	}
	if port := parsed.Port(); port != "" && !allowedPorts[port] {
		return nil, fail(ReasonBlockedDomain, host, "port %s is not allowed", port), ""
	}
	if numericHost != "" {
		return nil, fail(ReasonInvalidFormat, host, "host %s must be written in dotted-decimal form (%s)", numericHost, host), ""
	}

	return domainWarnings(host), nil, ""
}
