package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/translate"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fakeResolver maps queries to answers; queries listed in block wait for
// their channel to close and ignore cancellation, like a slow network reply.
type fakeResolver struct {
	mu      sync.Mutex
	answers map[string]string
	block   map[string]chan struct{}
	started map[string]chan struct{}
	calls   []string
	count   atomic.Int32
}

func newFakeResolver(answers map[string]string) *fakeResolver {
	return &fakeResolver{
		answers: answers,
		block:   make(map[string]chan struct{}),
		started: make(map[string]chan struct{}),
	}
}

func (f *fakeResolver) blockOn(query string) (started, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	started = make(chan struct{})
	release = make(chan struct{})
	f.started[query] = started
	f.block[query] = release
	return started, release
}

func (f *fakeResolver) ResolveDetailed(ctx context.Context, text string) translate.Resolution {
	f.count.Add(1)
	f.mu.Lock()
	f.calls = append(f.calls, text)
	started, release := f.started[text], f.block[text]
	answer, ok := f.answers[text]
	f.mu.Unlock()

	if started != nil {
		close(started)
		<-release
	}
	if !ok {
		return translate.Resolution{Original: text, Text: text, Source: translate.SourceIdentity}
	}
	return translate.Resolution{Original: text, Text: answer, Source: translate.SourceService}
}

func (f *fakeResolver) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func corpus() []content.Post {
	return []content.Post{
		{ID: "1", Title: "धर्म और जीवन", Content: "x", Category: "Philosophy"},
		{ID: "2", Title: "Dharma today", Content: "x", Category: "Philosophy"},
		{ID: "3", Title: "दया", Content: "d", Category: "Ethics"},
		{ID: "4", Title: "जैन दर्शन", Content: "x", Category: "Jainism"},
	}
}

func waitFor(t *testing.T, s *Session, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-s.Updates():
			if !ok {
				t.Fatal("updates closed while waiting")
			}
			if pred(snap) {
				return snap
			}
		case <-timeout:
			t.Fatalf("timed out waiting; last snapshot %+v", s.Snapshot())
		}
	}
}

func settled(raw string) func(Snapshot) bool {
	return func(s Snapshot) bool { return s.RawQuery == raw && !s.Translating }
}

func TestEmptyQueryMakesNoCall(t *testing.T) {
	r := newFakeResolver(nil)
	s := New(context.Background(), corpus(), r, Options{Debounce: 10 * time.Millisecond})
	defer s.Close()

	s.OnQueryChange("   ")
	snap := waitFor(t, s, settled("   "))
	if snap.ResolvedQuery != "" || snap.Result.TotalMatches != 0 || snap.Source != translate.SourceNone {
		t.Errorf("snapshot = %+v", snap)
	}
	time.Sleep(30 * time.Millisecond)
	if r.count.Load() != 0 {
		t.Errorf("resolver called %d times", r.count.Load())
	}
}

func TestHindiQueryResolvesImmediately(t *testing.T) {
	r := newFakeResolver(nil)
	s := New(context.Background(), corpus(), r, Options{Debounce: time.Hour})
	defer s.Close()

	s.OnQueryChange(" धर्म ")
	snap := s.Snapshot()
	if snap.Translating || snap.ResolvedQuery != "धर्म" || snap.Source != translate.SourcePassthrough {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Result.TotalMatches != 1 || snap.Result.AppliedTranslation != nil {
		t.Errorf("result = %+v", snap.Result)
	}
	if r.count.Load() != 0 {
		t.Errorf("resolver called for Hindi query")
	}
}

func TestDebounceCoalescesKeystrokes(t *testing.T) {
	r := newFakeResolver(map[string]string{"dharma": "धर्म"})
	s := New(context.Background(), corpus(), r, Options{Debounce: 40 * time.Millisecond})
	defer s.Close()

	for _, q := range []string{"d", "dh", "dha", "dhar", "dharm", "dharma"} {
		s.OnQueryChange(q)
	}
	snap := waitFor(t, s, settled("dharma"))
	if snap.ResolvedQuery != "धर्म" {
		t.Errorf("resolved = %q", snap.ResolvedQuery)
	}
	if got := r.callLog(); len(got) != 1 || got[0] != "dharma" {
		t.Errorf("resolver calls = %v, want only dharma", got)
	}
	if snap.Result.TotalMatches != 2 {
		t.Errorf("matches = %d, want 2 (Hindi title and raw English title)", snap.Result.TotalMatches)
	}
	if snap.Result.AppliedTranslation == nil || snap.Result.AppliedTranslation.From != "dharma" {
		t.Errorf("applied translation = %+v", snap.Result.AppliedTranslation)
	}
}

func TestStaleResolutionIsDiscarded(t *testing.T) {
	r := newFakeResolver(map[string]string{"d": "द", "dharma": "धर्म"})
	started, release := r.blockOn("d")
	m := metrics.NewUnregistered()
	s := New(context.Background(), corpus(), r, Options{Debounce: time.Millisecond, Metrics: m})
	defer s.Close()

	s.OnQueryChange("d")
	<-started
	s.OnQueryChange("dharma")
	snap := waitFor(t, s, settled("dharma"))
	if snap.ResolvedQuery != "धर्म" {
		t.Fatalf("resolved = %q", snap.ResolvedQuery)
	}

	close(release)
	deadline := time.Now().Add(time.Second)
	for testutil.ToFloat64(m.StaleResultsDropped) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := testutil.ToFloat64(m.StaleResultsDropped); got != 1 {
		t.Fatalf("stale drops = %v, want 1", got)
	}
	final := s.Snapshot()
	if final.RawQuery != "dharma" || final.ResolvedQuery != "धर्म" {
		t.Errorf("stale result leaked: %+v", final)
	}
}

func TestTranslatingSnapshotHidesResults(t *testing.T) {
	r := newFakeResolver(map[string]string{"jain": "जैन"})
	s := New(context.Background(), corpus(), r, Options{Debounce: time.Hour})
	defer s.Close()

	s.OnQueryChange("धर्म")
	s.OnQueryChange("jain")
	snap := s.Snapshot()
	if !snap.Translating {
		t.Fatal("expected translating")
	}
	if snap.Result.TotalMatches != 0 || len(snap.Result.Posts) != 0 || snap.ResolvedQuery != "" {
		t.Errorf("pending snapshot shows results: %+v", snap)
	}
}

func TestPagingAndReset(t *testing.T) {
	posts := make([]content.Post, 13)
	for i := range posts {
		posts[i] = content.Post{ID: fmt.Sprint(i), Title: "धर्म", Content: "x"}
	}
	s := New(context.Background(), posts, newFakeResolver(nil), Options{PageSize: 6})
	defer s.Close()

	s.OnQueryChange("धर्म")
	s.SetPage(5)
	snap := s.Snapshot()
	if snap.Result.Page != 3 || len(snap.Result.Posts) != 1 || snap.Result.TotalPages != 3 {
		t.Errorf("result = page %d, %d posts, %d pages", snap.Result.Page, len(snap.Result.Posts), snap.Result.TotalPages)
	}

	s.OnQueryChange("धर्म ")
	if got := s.Snapshot().Result.Page; got != 1 {
		t.Errorf("page after query change = %d, want 1", got)
	}
}

func TestCategorySessionOmitsCategoryField(t *testing.T) {
	s := New(context.Background(), corpus(), newFakeResolver(nil), Options{Category: "Philosophy"})
	defer s.Close()

	s.OnQueryChange("धर्म")
	if got := s.Snapshot().Result.TotalMatches; got != 1 {
		t.Errorf("matches = %d, want 1", got)
	}
	s.OnQueryChange("Philosophy")
	waitFor(t, s, settled("Philosophy"))
	if got := s.Snapshot().Result.TotalMatches; got != 0 {
		t.Errorf("category name matched %d posts in category scope", got)
	}
}

func TestOnSettledCalledOncePerSettledQuery(t *testing.T) {
	var mu sync.Mutex
	var got []Snapshot
	r := newFakeResolver(map[string]string{"jain": "जैन"})
	s := New(context.Background(), corpus(), r, Options{
		Debounce: 5 * time.Millisecond,
		OnSettled: func(snap Snapshot, _ time.Duration) {
			mu.Lock()
			got = append(got, snap)
			mu.Unlock()
		},
	})
	defer s.Close()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(got)
	}
	s.OnQueryChange("jain")
	deadline := time.Now().Add(2 * time.Second)
	for count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.OnQueryChange("धर्म")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0].ResolvedQuery != "जैन" || got[1].ResolvedQuery != "धर्म" {
		t.Errorf("settled = %+v", got)
	}
}

func TestCloseAbandonsPendingWork(t *testing.T) {
	r := newFakeResolver(map[string]string{"jain": "जैन"})
	s := New(context.Background(), corpus(), r, Options{Debounce: 20 * time.Millisecond})
	s.OnQueryChange("jain")
	s.Close()
	s.Close()

	time.Sleep(50 * time.Millisecond)
	if r.count.Load() != 0 {
		t.Errorf("resolver ran after Close")
	}
	for range s.Updates() {
	}
	s.OnQueryChange("more")
	s.SetPage(2)
}

func TestUpdatesKeepLatest(t *testing.T) {
	s := New(context.Background(), corpus(), newFakeResolver(nil), Options{})
	defer s.Close()
	for _, q := range []string{"ध", "धर", "धर्म"} {
		s.OnQueryChange(q)
	}
	snap := <-s.Updates()
	if snap.RawQuery != "धर्म" {
		t.Errorf("buffered snapshot = %q, want latest", snap.RawQuery)
	}
}

type downTranslator struct{}

func (downTranslator) Translate(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func TestServiceDownFallsBackToDictionary(t *testing.T) {
	posts := []content.Post{
		{ID: "a", Title: "Notes on Jain Philosophy", Content: "x"},
		{ID: "b", Title: "Cooking", Content: "x"},
		{ID: "c", Title: "जैन आगम", Content: "x"},
	}
	resolver := translate.NewResolver(downTranslator{}, translate.ResolverOptions{Timeout: time.Second})
	s := New(context.Background(), posts, resolver, Options{Debounce: 5 * time.Millisecond})
	defer s.Close()

	s.OnQueryChange("jain philosophy")
	snap := waitFor(t, s, settled("jain philosophy"))
	if snap.ResolvedQuery != "जैन" || snap.Source != translate.SourceFallback {
		t.Fatalf("resolved = %q via %s", snap.ResolvedQuery, snap.Source)
	}
	var ids []string
	for _, p := range snap.Result.Posts {
		ids = append(ids, p.ID)
	}
	if fmt.Sprint(ids) != "[a c]" {
		t.Errorf("matched %v, want [a c]", ids)
	}
}
