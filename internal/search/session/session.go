// Package session holds the query state of one interactive search: every
// keystroke goes in through OnQueryChange, English-like queries are
// translated after a debounce window, and only the resolution for the most
// recent keystroke is ever applied.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/lang"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/matcher"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/presenter"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/translate"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
)

// DefaultDebounce is how long a keystroke must settle before translation.
const DefaultDebounce = 300 * time.Millisecond

// Resolver is satisfied by *translate.Resolver.
type Resolver interface {
	ResolveDetailed(ctx context.Context, text string) translate.Resolution
}

// Options configures a Session.
type Options struct {
	Debounce time.Duration
	PageSize int
	// Category restricts the session to one category and switches matching
	// to matcher.ScopeCategory.
	Category string
	Metrics  *metrics.Metrics
	// OnSettled is called, outside the session lock, each time a query
	// settles with its final resolution. elapsed runs from the keystroke.
	OnSettled func(snap Snapshot, elapsed time.Duration)
}

// Snapshot is the state a view renders.
type Snapshot struct {
	Generation    uint64                 `json:"generation"`
	RawQuery      string                 `json:"raw_query"`
	ResolvedQuery string                 `json:"resolved_query"`
	Translating   bool                   `json:"translating"`
	Source        translate.Source       `json:"source"`
	Result        presenter.Presentation `json:"result"`
}

// Session is safe for concurrent use.
type Session struct {
	posts    []content.Post
	scope    matcher.Scope
	resolver Resolver
	debounce time.Duration
	pageSize int
	metrics  *metrics.Metrics
	onSettle func(Snapshot, time.Duration)
	logger   *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc
	tasks      sync.WaitGroup
	updates    chan Snapshot

	mu        sync.Mutex
	gen       uint64
	raw       string
	resolved  string
	source    translate.Source
	inFlight  bool
	page      int
	results   []content.Post
	changedAt time.Time
	cancel    context.CancelFunc
	timer     *time.Timer
	closed    bool
}

// New creates a session over posts. posts is treated as read-only.
func New(ctx context.Context, posts []content.Post, resolver Resolver, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	scope := matcher.ScopeGlobal
	if opts.Category != "" {
		posts = content.FilterCategory(posts, opts.Category)
		scope = matcher.ScopeCategory
	}
	baseCtx, baseCancel := context.WithCancel(ctx)
	return &Session{
		posts:      posts,
		scope:      scope,
		resolver:   resolver,
		debounce:   opts.Debounce,
		pageSize:   opts.PageSize,
		metrics:    opts.Metrics,
		onSettle:   opts.OnSettled,
		logger:     slog.Default().With("component", "search-session"),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		updates:    make(chan Snapshot, 1),
		source:     translate.SourceNone,
		page:       1,
	}
}

// Updates delivers snapshots in order. When the reader falls behind only
// the latest snapshot is kept. The channel is closed by Close.
func (s *Session) Updates() <-chan Snapshot {
	return s.updates
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// OnQueryChange records a new raw query and supersedes any pending or
// in-flight resolution.
func (s *Session) OnQueryChange(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	s.abandonTaskLocked()
	s.raw = text
	s.page = 1
	s.changedAt = time.Now()

	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		s.settleLocked(translate.Resolution{Source: translate.SourceNone})
		s.mu.Unlock()
		return
	case !lang.IsEnglishLike(trimmed):
		s.settleLocked(translate.Resolution{Original: trimmed, Text: trimmed, Source: translate.SourcePassthrough})
		snap, elapsed := s.snapshotLocked(), time.Since(s.changedAt)
		s.mu.Unlock()
		s.notifySettled(snap, elapsed)
		return
	}

	s.inFlight = true
	s.resolved = ""
	s.results = nil
	taskCtx, cancel := context.WithCancel(s.baseCtx)
	s.cancel = cancel
	s.tasks.Add(1)
	s.timer = time.AfterFunc(s.debounce, func() {
		defer s.tasks.Done()
		s.run(taskCtx, gen, trimmed)
	})
	s.publishLocked()
	s.mu.Unlock()
}

// SetPage moves to page k, clamped to the available pages.
func (s *Session) SetPage(k int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.page = presenter.New(s.results, s.pageSize).Clamp(k)
	s.publishLocked()
}

// Clear drops the query and any pending resolution.
func (s *Session) Clear() {
	s.OnQueryChange("")
}

// Close abandons pending work, waits for running resolutions to return and
// closes Updates.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.abandonTaskLocked()
	close(s.updates)
	s.mu.Unlock()

	s.baseCancel()
	s.tasks.Wait()
}

func (s *Session) run(ctx context.Context, gen uint64, query string) {
	if ctx.Err() != nil {
		return
	}
	res := s.resolver.ResolveDetailed(ctx, query)

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.StaleResultsDropped.Inc()
		}
		s.logger.Debug("discarding stale resolution", "query", query, "generation", gen)
		return
	}
	s.settleLocked(res)
	snap, elapsed := s.snapshotLocked(), time.Since(s.changedAt)
	s.mu.Unlock()
	s.notifySettled(snap, elapsed)
}

// abandonTaskLocked stops a debounce timer that has not fired and cancels
// a resolution that has.
func (s *Session) abandonTaskLocked() {
	if s.timer != nil {
		if s.timer.Stop() {
			s.tasks.Done()
		}
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) settleLocked(res translate.Resolution) {
	s.inFlight = false
	s.resolved = res.Text
	s.source = res.Source
	s.page = 1
	if res.Text == "" {
		s.results = nil
	} else {
		s.results = matcher.Match(s.posts, s.raw, res.Text, s.scope)
	}
	s.publishLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Generation:    s.gen,
		RawQuery:      s.raw,
		ResolvedQuery: s.resolved,
		Translating:   s.inFlight,
		Source:        s.source,
	}
	if s.inFlight {
		snap.Source = ""
		snap.Result = presenter.Present(s.raw, "", nil, 1, s.pageSize)
		return snap
	}
	snap.Result = presenter.Present(s.raw, s.resolved, s.results, s.page, s.pageSize)
	return snap
}

// publishLocked replaces any unread snapshot with the current one.
func (s *Session) publishLocked() {
	if s.closed {
		return
	}
	snap := s.snapshotLocked()
	select {
	case <-s.updates:
	default:
	}
	s.updates <- snap
}

func (s *Session) notifySettled(snap Snapshot, elapsed time.Duration) {
	if s.onSettle != nil {
		s.onSettle(snap, elapsed)
	}
}
