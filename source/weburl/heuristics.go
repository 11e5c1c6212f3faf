package weburl

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"unicode"
)

var dangerousTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "bit": true,
	"link": true, "click": true, "download": true, "zip": true, "exe": true,
}

var urlShorteners = []string{
	"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly",
	"is.gd", "buff.ly", "rebrand.ly", "cutt.ly", "shorturl.at",
}

var alternatingLetterDigit = regexp.MustCompile(`[a-z][0-9][a-z][0-9]`)

const maxSubdomainLevels = 5

// domainWarnings runs the non-fatal heuristics. Nothing here rejects a URL.
func domainWarnings(host string) []string {
	if net.ParseIP(host) != nil {
		return nil
	}

	labels := strings.Split(host, ".")
	var warnings []string

	tld := labels[len(labels)-1]
	if dangerousTLDs[tld] {
		warnings = append(warnings, fmt.Sprintf("high-risk TLD .%s", tld))
	}

	for _, shortener := range urlShorteners {
		if host == shortener || strings.HasSuffix(host, "."+shortener) {
			warnings = append(warnings, fmt.Sprintf("URL shortener %s hides the destination", shortener))
			break
		}
	}

	if len(labels) < 2 {
		return warnings
	}

	sld := labels[len(labels)-2]
	if len(sld) < 3 {
		warnings = append(warnings, fmt.Sprintf("very short domain name %q", sld))
	}
	if levels := len(labels) - 2; levels > maxSubdomainLevels {
		warnings = append(warnings, fmt.Sprintf("excessive subdomain depth (%d levels)", levels))
	}
	if why := looksGenerated(sld); why != "" {
		warnings = append(warnings, fmt.Sprintf("domain name %q looks randomly generated: %s", sld, why))
	}
	return warnings
}

// looksGenerated flags labels typical of algorithmically generated domains.
func looksGenerated(label string) string {
	if strings.HasPrefix(label, "xn--") {
		return ""
	}
	if hasRepeatedRun(label, 4) {
		return "repeated characters"
	}
	if alternatingLetterDigit.MatchString(label) {
		return "alternating letters and digits"
	}

	var digits, vowels int
	for _, r := range label {
		if unicode.IsDigit(r) {
			digits++
		}
		if strings.ContainsRune("aeiouy", r) {
			vowels++
		}
	}
	if len(label) > 0 && float64(digits)/float64(len(label)) > 0.5 {
		return "mostly digits"
	}
	if len(label) > 4 && vowels == 0 && digits < len(label) {
		return "no vowels"
	}
	if len(label) < 4 || len(label) > 20 {
		return fmt.Sprintf("unusual length %d", len(label))
	}
	return ""
}

func hasRepeatedRun(s string, n int) bool {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
