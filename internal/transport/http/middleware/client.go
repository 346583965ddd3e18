package middleware

import (
	"net"
	"net/http"
	"strings"
)

const (
	UserIDHeader    = "X-User-Id"
	VisitorIDHeader = "X-Visitor-Id"
)

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// direct peer. It returns "unknown" when none is usable.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if host == "" {
		return "unknown"
	}
	return host
}
