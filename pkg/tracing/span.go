// Package tracing times the stages of one request (resolve, match, ...)
// and logs them as a single slog record when the root span is flushed.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Span is one timed stage. Children are the stages started under it.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	EndTime  time.Time
	Children []*Span

	mu    sync.Mutex
	attrs map[string]any
}

// StartSpan opens a root span. An empty traceID gets a fresh UUID.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	s := &Span{Name: name, TraceID: traceID, Start: time.Now()}
	return context.WithValue(ctx, ctxKey{}, s), s
}

// StartChildSpan opens a stage under the span in ctx. With no span in ctx
// the child is detached and never logged.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{Name: name, Start: time.Now()}
	if parent := SpanFromContext(ctx); parent != nil {
		s.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.Children = append(parent.Children, s)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, ctxKey{}, s), s
}

func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(ctxKey{}).(*Span)
	return s
}

// End stops the clock; later calls are ignored.
func (s *Span) End() {
	s.mu.Lock()
	if s.EndTime.IsZero() {
		s.EndTime = time.Now()
	}
	s.mu.Unlock()
}

// Duration is zero until End.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.Start)
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	if s.attrs == nil {
		s.attrs = make(map[string]any)
	}
	s.attrs[key] = value
	s.mu.Unlock()
}

func (s *Span) Attr(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[key]
	return v, ok
}

// Log writes the whole tree as one debug record: the root's attributes at
// the top level and every child as a group named after it.
func (s *Span) Log(logger *slog.Logger) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	args := append([]any{"trace_id", s.TraceID}, s.group()...)
	logger.Debug(s.Name+" trace", args...)
}

func (s *Span) group() []any {
	s.mu.Lock()
	out := []any{"ms", float64(s.durationLocked().Microseconds()) / 1000}
	for k, v := range s.attrs {
		out = append(out, k, v)
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	for _, c := range children {
		out = append(out, slog.Group(c.Name, c.group()...))
	}
	return out
}

func (s *Span) durationLocked() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.Start)
	}
	return s.EndTime.Sub(s.Start)
}
