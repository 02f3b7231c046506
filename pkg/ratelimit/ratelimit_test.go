package ratelimit

import (
	"testing"
	"time"
)

func TestAllowExhaustsBurst(t *testing.T) {
	l := New(60, 3)
	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("fourth request should be rejected")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("a different key has its own bucket")
	}
}

func TestResetRestoresCapacity(t *testing.T) {
	l := New(60, 1)
	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("expected rejection")
	}
	l.Reset("k")
	if !l.Allow("k") {
		t.Fatal("expected allow after reset")
	}
}

func TestDisabledLimiter(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow("k") {
			t.Fatalf("request %d rejected with limiting disabled", i)
		}
	}
}

func TestEvictIdle(t *testing.T) {
	l := New(60, 5)
	base := time.Now()
	l.now = func() time.Time { return base }
	l.Allow("old")
	l.now = func() time.Time { return base.Add(11 * time.Minute) }
	l.Allow("fresh")
	l.evictIdle()
	if l.Len() != 1 {
		t.Fatalf("expected 1 tracked key, got %d", l.Len())
	}
}
