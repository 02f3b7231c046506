package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/logger"
)

// Timeout answers 504 when a handler has written nothing within limit.
// Requests under the exempt prefixes (the live search websocket) run
// without a deadline.
func Timeout(limit time.Duration, exempt ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &deadlineHandler{next: next, limit: limit, exempt: exempt}
	}
}

type deadlineHandler struct {
	next   http.Handler
	limit  time.Duration
	exempt []string
}

func (h *deadlineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, p := range h.exempt {
		if strings.HasPrefix(r.URL.Path, p) {
			h.next.ServeHTTP(w, r)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.limit)
	defer cancel()
	gw := &guardedWriter{w: w}
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		h.next.ServeHTTP(gw, r.WithContext(ctx))
	}()

	select {
	case <-finished:
		return
	case <-ctx.Done():
	}
	if gw.expire() {
		logger.FromContext(r.Context()).Warn("request exceeded deadline",
			"method", r.Method, "path", r.URL.Path, "limit", h.limit)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGatewayTimeout)
		w.Write([]byte(`{"error":"request timeout"}`))
	}
}

// guardedWriter drops writes once the deadline response has gone out.
type guardedWriter struct {
	w       http.ResponseWriter
	mu      sync.Mutex
	started bool
	expired bool
}

func (g *guardedWriter) Header() http.Header { return g.w.Header() }

func (g *guardedWriter) WriteHeader(code int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.expired {
		g.started = true
		g.w.WriteHeader(code)
	}
}

func (g *guardedWriter) Write(b []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired {
		return 0, http.ErrHandlerTimeout
	}
	g.started = true
	return g.w.Write(b)
}

// expire reports whether the 504 may be written, i.e. the handler has not
// started its own response.
func (g *guardedWriter) expire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return false
	}
	g.expired = true
	return true
}
