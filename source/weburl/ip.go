package weburl

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// privateNetworks lists private, reserved, loopback and multicast ranges that
// must never be fetched. Parsed once at package initialization.
var privateNetworks []*net.IPNet

func init() {
	cidrs := []string{
		"0.0.0.0/8",      // "this" network
		"10.0.0.0/8",     // RFC 1918
		"100.64.0.0/10",  // Carrier-grade NAT
		"127.0.0.0/8",    // loopback
		"169.254.0.0/16", // link-local
		"172.16.0.0/12",  // RFC 1918
		"192.168.0.0/16", // RFC 1918
		"224.0.0.0/4",    // multicast
		"::/128",         // unspecified
		"::1/128",        // loopback
		"fc00::/7",       // unique local
		"fe80::/10",      // link-local
		"ff00::/8",       // multicast
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private network CIDR " + cidr + ": " + err.Error())
		}
		privateNetworks = append(privateNetworks, network)
	}
}

// internalSuffixes are hostname suffixes that only resolve inside private networks.
var internalSuffixes = []string{
	".local", ".internal", ".private", ".corp", ".lan", ".test", ".dev", ".localhost",
}

// IsPrivateIP checks if an IP is in private/reserved ranges.
// It handles IPv4, IPv6, and IPv6-mapped IPv4 addresses.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}

	// ::ffff:x.x.x.x is checked against the IPv4 ranges
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// IsInternalHost reports whether hostname is a private IP literal or a name
// that only exists on internal networks.
func IsInternalHost(hostname string) bool {
	host := normalizeHost(hostname)
	if ip := net.ParseIP(host); ip != nil {
		return IsPrivateIP(ip)
	}
	if ip, numeric, err := ParseNumericIPv4(host); numeric && err == nil {
		return IsPrivateIP(ip)
	}
	if host == "localhost" {
		return true
	}
	for _, suffix := range internalSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func normalizeHost(hostname string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	return strings.TrimSuffix(host, ".")
}

// errIPv4Range is returned for numeric hosts whose parts overflow.
var errIPv4Range = errors.New("IPv4 address part out of range")

// ParseNumericIPv4 parses host the way browsers and inet_aton do: one to four
// dot-separated parts, each decimal, octal (leading 0) or hex (0x), with the
// last part filling the remaining bytes. "2130706433", "127.1" and
// "0x7f000001" all yield 127.0.0.1. numeric is false when host is a name.
func ParseNumericIPv4(host string) (ip net.IP, numeric bool, err error) {
	parts := strings.Split(host, ".")
	values := make([]uint64, 0, len(parts))
	for _, part := range parts {
		v, ok, err := parseIPv4Part(part)
		if !ok {
			return nil, false, nil
		}
		if err != nil {
			return nil, true, err
		}
		values = append(values, v)
	}
	if len(values) > 4 {
		return nil, true, errors.New("IPv4 address has more than four parts")
	}

	last := len(values) - 1
	for _, v := range values[:last] {
		if v > 255 {
			return nil, true, errIPv4Range
		}
	}
	if values[last] >= 1<<(8*(4-last)) {
		return nil, true, errIPv4Range
	}

	addr := values[last]
	for i, v := range values[:last] {
		addr |= v << (8 * (3 - i))
	}
	return net.IPv4(byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr)), true, nil
}

// parseIPv4Part reports ok=false when part is not a number in any base.
func parseIPv4Part(part string) (uint64, bool, error) {
	digits, base := part, 10
	switch {
	case len(part) >= 2 && (part[:2] == "0x" || part[:2] == "0X"):
		digits, base = part[2:], 16
		if digits == "" {
			return 0, true, nil
		}
	case len(part) > 1 && part[0] == '0':
		digits, base = part[1:], 8
	}
	if digits == "" || strings.Trim(digits, "0123456789abcdefABCDEF") != "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, true, errIPv4Range
		}
		return 0, false, nil
	}
	return v, true, nil
}
