package tenant

import (
	"net"
	"strings"
)

// Normalize lower-cases a Host header value and strips the port and a trailing dot.
// IPv6 literals keep their brackets: "[::1]:8080" -> "[::1]".
func Normalize(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return ""
	}
	if strings.HasPrefix(h, "[") {
		if end := strings.IndexByte(h, ']'); end > 0 {
			return h[:end+1]
		}
		return h
	}
	if strings.Count(h, ":") == 1 {
		if hostOnly, _, err := net.SplitHostPort(h); err == nil {
			h = hostOnly
		}
	}
	return strings.TrimSuffix(h, ".")
}

// SubdomainPart returns host with "."+baseDomain stripped when host sits under the base domain.
// The base domain itself and unrelated hosts have no subdomain part.
func SubdomainPart(host, baseDomain string) (string, bool) {
	if host == "" || baseDomain == "" || host == baseDomain {
		return "", false
	}
	suffix := "." + baseDomain
	if !strings.HasSuffix(host, suffix) {
		return "", false
	}
	sub := strings.TrimSuffix(host, suffix)
	if sub == "" {
		return "", false
	}
	return sub, true
}
