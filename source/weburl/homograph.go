package weburl

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// commonTLDs are the TLDs where short punycode names usually imitate a brand.
var commonTLDs = map[string]bool{
	"com": true,
	"org": true,
	"net": true,
	"io":  true,
	"co":  true,
}

// transliteratedLabel matches punycode labels of the form xn--word-suffix,
// where ASCII letters are mixed with a few substituted code points.
var transliteratedLabel = regexp.MustCompile(`^xn--[a-z]{2,}-[a-z0-9]{2,}$`)

// maxBrandLength is the decoded length at or below which a two-label
// internationalized domain is treated as a brand imitation.
const maxBrandLength = 10

// detectHomograph returns a description of the homograph signal found in host,
// or "" if the host looks clean. The heuristics are deliberately coarse and will
// flag some legitimate internationalized domains.
func detectHomograph(host string) string {
	labels := strings.Split(host, ".")
	tld := labels[len(labels)-1]

	for _, label := range labels {
		if !strings.HasPrefix(label, "xn--") {
			continue
		}
		decoded, err := idna.ToUnicode(label)
		if err != nil {
			return fmt.Sprintf("undecodable punycode label %q", label)
		}
		if len(labels) == 2 && commonTLDs[tld] && utf8.RuneCountInString(decoded) <= maxBrandLength {
			return fmt.Sprintf("short internationalized name %q on .%s", decoded, tld)
		}
		if transliteratedLabel.MatchString(label) {
			return fmt.Sprintf("transliterated punycode label %q", label)
		}
	}

	unicodeHost := host
	if strings.Contains(host, "xn--") {
		if u, err := idna.ToUnicode(host); err == nil {
			unicodeHost = u
		}
	}
	if mixesScripts(unicodeHost) {
		return fmt.Sprintf("mixed-script hostname %q", unicodeHost)
	}
	return ""
}

// mixesScripts reports Latin letters combined with Cyrillic or Greek ones.
func mixesScripts(s string) bool {
	var latin, cyrillic, greek bool
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Latin, r):
			latin = true
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic = true
		case unicode.Is(unicode.Greek, r):
			greek = true
		}
	}
	return latin && (cyrillic || greek)
}
