package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSpanTreeLogsOneRecord(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "req-1")
	root.SetAttr("query", "dharma")
	_, resolve := StartChildSpan(ctx, "resolve")
	resolve.SetAttr("source", "fallback")
	resolve.End()
	_, match := StartChildSpan(ctx, "match")
	match.SetAttr("matches", 2)
	match.End()
	root.End()

	if len(root.Children) != 2 || root.Children[0].TraceID != "req-1" {
		t.Fatalf("children not linked: %+v", root.Children)
	}
	if v, ok := resolve.Attr("source"); !ok || v != "fallback" {
		t.Errorf("attr = %v, %v", v, ok)
	}

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected a single record, got:\n%s", out)
	}
	for _, want := range []string{`msg="search trace"`, "trace_id=req-1", "query=dharma", "resolve.source=fallback", "match.matches=2", "resolve.ms="} {
		if !strings.Contains(out, want) {
			t.Errorf("record is missing %q:\n%s", want, out)
		}
	}
}

func TestLogSkippedAboveDebug(t *testing.T) {
	_, root := StartSpan(context.Background(), "search", "req-1")
	root.End()
	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	if buf.Len() != 0 {
		t.Errorf("expected nothing at info level, got %q", buf.String())
	}
}

func TestStartSpanGeneratesTraceID(t *testing.T) {
	_, s := StartSpan(context.Background(), "x", "")
	if s.TraceID == "" {
		t.Error("expected generated trace id")
	}
}

func TestEndIsIdempotent(t *testing.T) {
	_, s := StartSpan(context.Background(), "x", "t")
	if s.Duration() != 0 {
		t.Error("open span should report zero duration")
	}
	s.End()
	first := s.EndTime
	s.End()
	if !s.EndTime.Equal(first) {
		t.Error("second End changed the end time")
	}
}

func TestDetachedChild(t *testing.T) {
	_, child := StartChildSpan(context.Background(), "orphan")
	if child.TraceID != "" {
		t.Errorf("detached child should have empty trace id, got %q", child.TraceID)
	}
	if SpanFromContext(context.Background()) != nil {
		t.Error("expected nil span from empty context")
	}
}
