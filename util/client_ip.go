package util

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client address behind common reverse-proxy setups.
// The header order matches what existing deployments expect: the first hop
// of X-Forwarded-For wins, then the single-value proxy headers, and only
// then the transport-level peer address.
func ClientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		if first, _, found := strings.Cut(v, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	for _, h := range []string{"X-Real-IP", "X-Client-IP", "X-Forwarded"} {
		if v := r.Header.Get(h); v != "" {
			return strings.TrimSpace(v)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
