// Package urlutil resolves page paths against the target app's base URL.
package urlutil

import (
	"net/http"
	"strings"
)

// BuildAbsolute joins path onto base. Absolute http(s) paths are returned
// unchanged, so callers can pass either "/chat" or a full URL.
func BuildAbsolute(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	switch {
	case path == "":
		return base
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	case strings.HasPrefix(path, "/"):
		return base + path
	default:
		return base + "/" + path
	}
}

// IsHTTPS reports whether r arrived over TLS, directly or through a proxy
// that sets X-Forwarded-Proto.
func IsHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		if comma := strings.Index(proto, ","); comma >= 0 {
			proto = strings.TrimSpace(proto[:comma])
		}
		if proto == "https" || proto == "http" {
			return proto == "https"
		}
	}
	return r.TLS != nil
}
