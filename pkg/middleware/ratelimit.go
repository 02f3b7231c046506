package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/ratelimit"
)

// RateLimit rejects requests once the client address exhausts its bucket.
// Only paths under one of the given prefixes are limited.
func RateLimit(limiter *ratelimit.Limiter, prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limited(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}
			key := ClientIP(r)
			if !limiter.Allow(key) {
				slog.Warn("rate limit exceeded", "client", key, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, or the remote host.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func limited(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
