// Package health runs the dependency probes behind /health/ready. The post
// catalog and Postgres are required; Redis, Kafka and the remote translator
// only degrade the service because search keeps working without them.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

func (s Status) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check probes one dependency.
type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report carries the worst component status as its own.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
}

type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	started time.Time
	// probeTimeout bounds each check so one hung dependency cannot stall
	// the whole probe.
	probeTimeout time.Duration
	logger       *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks:       make(map[string]Check),
		started:      time.Now(),
		probeTimeout: 2 * time.Second,
		logger:       slog.Default().With("component", "health"),
	}
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// Run probes every dependency in parallel.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make([]Check, 0, len(c.checks))
	for n, ch := range c.checks {
		names = append(names, n)
		checks = append(checks, ch)
	}
	c.mu.RUnlock()

	results := make([]ComponentHealth, len(checks))
	var g errgroup.Group
	for i := range checks {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
			defer cancel()
			start := time.Now()
			h := checks[i](probeCtx)
			h.Latency = time.Since(start).Round(time.Millisecond).String()
			results[i] = h
			return nil
		})
	}
	g.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(names)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(c.started).Round(time.Second).String(),
	}
	for i, n := range names {
		h := results[i]
		report.Components[n] = h
		if h.Status != StatusUp {
			c.logger.Warn("dependency not healthy", "check", n, "status", h.Status, "message", h.Message)
		}
		if h.Status.severity() > report.Status.severity() {
			report.Status = h.Status
		}
	}
	return report
}

// PingCheck turns a ping into a Check. A failed ping is down, or degraded
// when optional is set.
func PingCheck(ping func(ctx context.Context) error, optional bool) Check {
	failed := StatusDown
	if optional {
		failed = StatusDegraded
	}
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: failed, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// LiveHandler only reports that the process is serving.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers 503 only when a required dependency is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		code := http.StatusOK
		if report.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
