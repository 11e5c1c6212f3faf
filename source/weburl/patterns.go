package weburl

import (
	"regexp"
	"strings"
)

// suspiciousPattern is a raw-string screen applied before host-level checks.
// Host-literal patterns are matched against the URL with its authority host
// removed: a loopback or internal host is reported by the private network
// check as blocked_domain, while the same literal smuggled into userinfo,
// path or query is reported here.
type suspiciousPattern struct {
	name        string
	re          *regexp.Regexp
	hostLiteral bool
}

var suspiciousPatterns = []suspiciousPattern{
	{name: "path traversal", re: regexp.MustCompile(`\.\.`)},
	{name: "multiple @", re: regexp.MustCompile(`@.*@`)},
	{name: "javascript scheme", re: regexp.MustCompile(`(?i)javascript:`)},
	{name: "data scheme", re: regexp.MustCompile(`(?i)data:`)},
	{name: "file scheme", re: regexp.MustCompile(`(?i)file:`)},
	{name: "ftp scheme", re: regexp.MustCompile(`(?i)ftp:`)},
	{name: "localhost", re: regexp.MustCompile(`(?i)localhost`), hostLiteral: true},
	{name: "loopback address", re: regexp.MustCompile(`127\.0\.0\.1|\[::1\]`), hostLiteral: true},
	{name: "unspecified address", re: regexp.MustCompile(`0\.0\.0\.0`), hostLiteral: true},
	{name: "internal TLD", re: regexp.MustCompile(`(?i)\.(?:local|internal|private|corp|lan)(?:[:/?#]|$)`), hostLiteral: true},
	{name: "percent encoding", re: regexp.MustCompile(`%[0-9a-fA-F]{2}`)},
	{name: "unsafe characters", re: regexp.MustCompile("[<>{}\\\\^`|\"]")},
}

// matchSuspicious returns the name of the first pattern matching raw, or "".
// authority is the URL's host[:port] as it appears in raw.
func matchSuspicious(raw, authority string) string {
	withoutHost := raw
	if authority != "" {
		withoutHost = strings.Replace(raw, authority, "", 1)
	}
	for _, p := range suspiciousPatterns {
		subject := raw
		if p.hostLiteral {
			subject = withoutHost
		}
		if p.re.MatchString(subject) {
			return p.name
		}
	}
	return ""
}

// hasControlChars reports C0 and C1 control characters (0-31, 127-159).
func hasControlChars(raw string) bool {
	for _, r := range raw {
		if r <= 31 || (r >= 127 && r <= 159) {
			return true
		}
	}
	return false
}
