// Package handler serves the one-shot search and translate endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/lang"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/matcher"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/presenter"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/translate"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/tracing"
)

// PostSource lists posts newest first. *content.Service satisfies it.
type PostSource interface {
	ListAll(ctx context.Context) ([]content.Post, error)
}

type Resolver interface {
	ResolveDetailed(ctx context.Context, text string) translate.Resolution
}

// CacheFlusher drops cached translations. *translate.CachedTranslator
// satisfies it.
type CacheFlusher interface {
	Invalidate(ctx context.Context) error
}

type Options struct {
	PageSize    int
	MaxPageSize int
	// MaxResults caps how many matches a search keeps. Zero means no cap.
	MaxResults int
	Tracker    analytics.Tracker
	Metrics    *metrics.Metrics
	Tracing    bool
	// Cache is nil when translations are not cached.
	Cache CacheFlusher
}

type Handler struct {
	posts       PostSource
	resolver    Resolver
	tracker     analytics.Tracker
	cache       CacheFlusher
	metrics     *metrics.Metrics
	pageSize    int
	maxPageSize int
	maxResults  int
	tracing     bool
	logger      *slog.Logger
}

func New(posts PostSource, resolver Resolver, opts Options) *Handler {
	if opts.PageSize <= 0 {
		opts.PageSize = presenter.DefaultPageSize
	}
	if opts.MaxPageSize < opts.PageSize {
		opts.MaxPageSize = opts.PageSize
	}
	if opts.Tracker == nil {
		opts.Tracker = analytics.Discard{}
	}
	return &Handler{
		posts:       posts,
		resolver:    resolver,
		tracker:     opts.Tracker,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		pageSize:    opts.PageSize,
		maxPageSize: opts.MaxPageSize,
		maxResults:  opts.MaxResults,
		tracing:     opts.Tracing,
		logger:      slog.Default().With("component", "search-handler"),
	}
}

// Search serves GET /api/v1/search?q=&page=&page_size=&category=.
// A request is one settled keystroke: classify, resolve, match, present.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	raw := params.Get("q")
	page, ok := h.intParam(w, params.Get("page"), 1, "page")
	if !ok {
		return
	}
	pageSize, ok := h.intParam(w, params.Get("page_size"), h.pageSize, "page_size")
	if !ok {
		return
	}
	pageSize = min(pageSize, h.maxPageSize)
	category := strings.TrimSpace(params.Get("category"))

	var root *tracing.Span
	if h.tracing {
		ctx, root = tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
		root.SetAttr("query", raw)
		defer func() {
			root.End()
			root.Log(log)
		}()
	}

	posts, err := h.posts.ListAll(ctx)
	if err != nil {
		log.Error("loading posts failed", "error", err)
		h.countQuery(raw, "error")
		h.writeError(w, http.StatusInternalServerError, "failed to load posts")
		return
	}
	scope := matcher.ScopeGlobal
	if category != "" {
		posts = content.FilterCategory(posts, category)
		scope = matcher.ScopeCategory
	}

	resolveCtx, resolveSpan := tracing.StartChildSpan(ctx, "resolve")
	res := h.resolver.ResolveDetailed(resolveCtx, raw)
	resolveSpan.SetAttr("source", string(res.Source))
	resolveSpan.End()

	_, matchSpan := tracing.StartChildSpan(ctx, "match")
	var results []content.Post
	if res.Text != "" {
		results = matcher.Match(posts, raw, res.Text, scope)
	}
	if h.maxResults > 0 && len(results) > h.maxResults {
		results = results[:h.maxResults]
	}
	matchSpan.SetAttr("matches", len(results))
	matchSpan.End()

	out := presenter.Present(raw, res.Text, results, page, pageSize)
	elapsed := time.Since(start)

	outcome := "hit"
	if out.TotalMatches == 0 {
		outcome = "zero_result"
	}
	h.countQuery(raw, outcome)
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(scriptLabel(raw)).Observe(elapsed.Seconds())
		h.metrics.SearchResultsCount.Observe(float64(out.TotalMatches))
	}

	log.Info("search completed",
		"query", raw,
		"resolved", res.Text,
		"source", res.Source,
		"category", category,
		"total_matches", out.TotalMatches,
		"returned", len(out.Posts),
		"latency_ms", elapsed.Milliseconds(),
	)
	if strings.TrimSpace(raw) != "" {
		ev := analytics.NewSearchEvent(analytics.ChannelHTTP, raw, res.Text, string(res.Source),
			out.AppliedTranslation != nil, out.TotalMatches, len(out.Posts), elapsed)
		ev.RequestID = logger.RequestID(ctx)
		h.tracker.TrackSearch(ev)
	}

	h.writeJSON(w, http.StatusOK, out)
}

type translateRequest struct {
	Text json.RawMessage `json:"text"`
}

// TranslateResponse is the body of POST /api/v1/translate.
type TranslateResponse struct {
	Translated string           `json:"translated"`
	Original   string           `json:"original"`
	Source     translate.Source `json:"source"`
}

// Translate serves POST /api/v1/translate. text must be a non-empty JSON
// string; translation failures fall back and never surface as errors.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Text is required")
		return
	}
	var text string
	if len(req.Text) == 0 || json.Unmarshal(req.Text, &text) != nil || text == "" {
		h.writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	res := h.resolver.ResolveDetailed(r.Context(), text)
	trimmed := strings.TrimSpace(text)
	h.writeJSON(w, http.StatusOK, TranslateResponse{
		Translated: res.Text,
		Original:   trimmed,
		Source:     res.Source,
	})
}

// FlushTranslations serves POST /api/v1/admin/translations/invalidate.
func (h *Handler) FlushTranslations(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusNotFound, "translation cache is not enabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("flushing translation cache failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "translation cache unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) intParam(w http.ResponseWriter, raw string, fallback int, name string) (int, bool) {
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		h.writeError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return n, true
}

func (h *Handler) countQuery(raw, outcome string) {
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues(scriptLabel(raw), outcome).Inc()
	}
}

// scriptLabel keeps the metric label set small.
func scriptLabel(raw string) string {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return "empty"
	case lang.IsEnglishLike(trimmed):
		return "english"
	case lang.ContainsDevanagari(trimmed):
		return "devanagari"
	default:
		return "other"
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
