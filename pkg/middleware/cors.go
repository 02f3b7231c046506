package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig lists who may call the API from a browser. An origin entry of
// "*" allows any origin; "https://*.example.com" allows its subdomains.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	// ExposeHeaders are readable by browser scripts on the response.
	ExposeHeaders []string
	MaxAge        int
}

// DefaultCORSConfig lets the blog frontend at origins search, translate and
// read X-Request-ID for bug reports.
func DefaultCORSConfig(origins []string) CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        86400,
	}
}

// CORS answers preflights itself and decorates allowed cross-origin
// responses. Requests from other origins pass through undecorated.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	preflight := map[string]string{
		"Access-Control-Allow-Methods": strings.Join(cfg.AllowMethods, ", "),
		"Access-Control-Allow-Headers": strings.Join(cfg.AllowHeaders, ", "),
		"Access-Control-Max-Age":       strconv.Itoa(cfg.MaxAge),
	}
	expose := strings.Join(cfg.ExposeHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !matchOrigin(cfg.AllowOrigins, origin) {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				for k, v := range preflight {
					h.Set(k, v)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if expose != "" {
				h.Set("Access-Control-Expose-Headers", expose)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func matchOrigin(patterns []string, origin string) bool {
	for _, p := range patterns {
		if p == "*" || p == origin {
			return true
		}
		scheme, host, ok := strings.Cut(p, "://*.")
		if ok && strings.HasPrefix(origin, scheme+"://") && strings.HasSuffix(origin, "."+host) {
			return true
		}
	}
	return false
}
