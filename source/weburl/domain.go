package weburl

import (
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchDomainPattern reports whether hostname matches a domain pattern.
//
//   - "*" matches every host
//   - "*.example.com" matches example.com and any subdomain of it
//   - "example.com" matches example.com and any subdomain of it
//
// Patterns carrying other glob metacharacters ("cdn-?.example.com",
// "{api,www}.example.com") are matched as globs against the whole host.
func MatchDomainPattern(hostname, pattern string) bool {
	host := normalizeHost(hostname)
	p := normalizeHost(pattern)

	switch {
	case host == "" || p == "":
		return false
	case p == "*":
		return true
	case strings.HasPrefix(p, "*.") && !hasGlobMeta(p[2:]):
		suffix := p[2:]
		return host == suffix || strings.HasSuffix(host, "."+suffix)
	case hasGlobMeta(p):
		ok, err := doublestar.Match(p, host)
		return err == nil && ok
	default:
		return host == p || strings.HasSuffix(host, "."+p)
	}
}

// MatchesAnyDomain reports whether hostname matches at least one pattern.
func MatchesAnyDomain(hostname string, patterns []string) bool {
	for _, p := range patterns {
		if MatchDomainPattern(hostname, p) {
			return true
		}
	}
	return false
}

// isWildcardOnly reports whether the list is the explicit "allow everything" form.
func isWildcardOnly(patterns []string) bool {
	return len(patterns) == 1 && strings.TrimSpace(patterns[0]) == "*"
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// ExtractDomain extracts the domain name from a URL.
// Returns an empty string if the URL is invalid.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return normalizeHost(parsed.Hostname())
}
