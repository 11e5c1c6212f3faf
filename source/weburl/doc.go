// Package weburl screens user-supplied URLs before any network access.
//
// # Overview
//
// A Validator runs a short-circuiting pipeline over a raw URL and rejects it
// with a *ValidationError carrying one of three reasons:
//
//   - invalid_format: unparsable, no host, or longer than MaxURLLength
//   - blocked_domain: non-http(s) scheme, blocklisted or non-allowlisted host,
//     private or internal host, known malicious domain, or disallowed port
//   - suspicious_pattern: control characters, traversal sequences, embedded
//     schemes, smuggled loopback literals, percent-encoding, unsafe characters,
//     or homograph signals
//
// URLs that pass may still carry warnings (high-risk TLDs, URL shorteners,
// randomly generated names). Warnings are logged and never fail validation.
//
// # Domain Patterns
//
// Allowlists and blocklists use MatchDomainPattern:
//
//	*                 every host
//	*.example.com     example.com and any subdomain
//	example.com       example.com and any subdomain
//	{api,www}.x.com   glob match against the whole host
//
// # IP Address Handling
//
// IsPrivateIP covers RFC 1918, CGNAT, loopback, link-local, multicast and
// unspecified addresses for both families, including IPv6-mapped IPv4.
// Fetchers should also call it on resolved addresses at dial time, since a
// public hostname can resolve to a private address.
//
// # Usage
//
//	v := weburl.NewValidator(weburl.WithPolicy(weburl.Policy{
//	    BlockedDomains: []string{"ads.example.com"},
//	}))
//	if err := v.Validate("https://example.com/docs", nil); err != nil {
//	    return err
//	}
package weburl
