package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// RetryAfterSeconds is sent in Retry-After on throttled requests.
const RetryAfterSeconds = 1

// Middleware enforces l on requests whose account, as returned by
// accountOf, is non-empty. Anonymous requests pass through so the
// handler can reject them with its own status.
func Middleware(l *Limiter, accountOf func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := accountOf(r)
			if account == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !l.Allow(account) {
				w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many messages"})
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(account)))
			next.ServeHTTP(w, r)
		})
	}
}
