package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content/render"
	apperrors "github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// ExcerptLength is the rune budget for excerpts derived from the body.
const ExcerptLength = 160

// Options configures a Service.
type Options struct {
	// TTL bounds how long a loaded post list is served before the store is
	// read again. Zero reloads on every call.
	TTL      time.Duration
	Metrics  *metrics.Metrics
	Notifier ChangeNotifier
}

// Service is the single read path for posts. It caches the newest-first
// list loaded from a Store and drops the cache on writes, on Invalidate, or
// when the TTL elapses.
type Service struct {
	store    Store
	ttl      time.Duration
	metrics  *metrics.Metrics
	notifier ChangeNotifier
	group    singleflight.Group
	logger   *slog.Logger

	mu       sync.RWMutex
	posts    []Post
	byID     map[string]int
	loadedAt time.Time
	valid    bool

	now     func() time.Time
	shuffle func([]Post)
}

// NewService creates a Service over store.
func NewService(store Store, opts Options) *Service {
	return &Service{
		store:    store,
		ttl:      opts.TTL,
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
		logger:   slog.Default().With("component", "content-service"),
		now:      time.Now,
		shuffle: func(p []Post) {
			rand.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
		},
	}
}

// SetNotifier attaches the change notifier after construction.
func (s *Service) SetNotifier(n ChangeNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// ListAll returns every valid post, newest first. The returned slice is a
// copy.
func (s *Service) ListAll(ctx context.Context) ([]Post, error) {
	posts, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(posts), nil
}

// Get returns the post with id.
func (s *Service) Get(ctx context.Context, id string) (Post, error) {
	posts, byID, err := s.snapshot(ctx)
	if err != nil {
		return Post{}, err
	}
	i, ok := byID[id]
	if !ok {
		return Post{}, apperrors.New(apperrors.ErrPostNotFound, http.StatusNotFound, "Blog post not found")
	}
	return posts[i], nil
}

// ByCategory returns the posts in category, newest first.
func (s *Service) ByCategory(ctx context.Context, category string) ([]Post, error) {
	posts, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return FilterCategory(posts, category), nil
}

// Categories returns the sorted distinct categories.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	posts, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Categories(posts), nil
}

// Count returns the number of valid posts.
func (s *Service) Count(ctx context.Context) (int, error) {
	posts, _, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return len(posts), nil
}

// Featured returns the featured posts in index order. Unknown ids are
// skipped with a warning.
func (s *Service) Featured(ctx context.Context) ([]Post, error) {
	posts, byID, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.FeaturedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading featured ids: %w", err)
	}
	out := make([]Post, 0, len(ids))
	for _, id := range ids {
		i, ok := byID[id]
		if !ok {
			s.logger.Warn("featured post not found", "id", id)
			continue
		}
		out = append(out, posts[i])
	}
	return out, nil
}

// Related returns up to n posts sharing id's category, excluding id itself,
// in random order.
func (s *Service) Related(ctx context.Context, id string, n int) ([]Post, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	posts, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]Post, 0)
	for _, p := range posts {
		if p.Category == current.Category && p.ID != current.ID {
			candidates = append(candidates, p)
		}
	}
	s.shuffle(candidates)
	if n >= 0 && len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates, nil
}

// Create stores a new post. It fails with ErrPostExists when the id is taken.
func (s *Service) Create(ctx context.Context, p Post) (Post, error) {
	p = Prepare(p)
	if err := p.validateWrite(); err != nil {
		return Post{}, err
	}
	if _, err := s.store.Get(ctx, p.ID); err == nil {
		return Post{}, apperrors.Newf(apperrors.ErrPostExists, http.StatusConflict, "Blog post with ID %q already exists", p.ID)
	} else if !errors.Is(err, apperrors.ErrPostNotFound) {
		return Post{}, fmt.Errorf("checking existing post: %w", err)
	}
	if err := s.store.Save(ctx, p); err != nil {
		return Post{}, fmt.Errorf("saving post %s: %w", p.ID, err)
	}
	s.afterWrite(ctx, ChangeCreated, p.ID)
	return p, nil
}

// Update replaces the post with id. The body's id, if any, is ignored.
func (s *Service) Update(ctx context.Context, id string, p Post) (Post, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrPostNotFound) {
			return Post{}, apperrors.New(apperrors.ErrPostNotFound, http.StatusNotFound, "Blog post not found")
		}
		return Post{}, fmt.Errorf("loading post %s: %w", id, err)
	}
	p.ID = id
	p = Prepare(p)
	if err := p.validateWrite(); err != nil {
		return Post{}, err
	}
	if err := s.store.Save(ctx, p); err != nil {
		return Post{}, fmt.Errorf("saving post %s: %w", id, err)
	}
	s.afterWrite(ctx, ChangeUpdated, id)
	return p, nil
}

// Invalidate drops the cached list so the next read goes to the store.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
	s.logger.Debug("content cache invalidated")
}

// Prepare sanitizes the body and fills derived fields admin input may omit.
func Prepare(p Post) Post {
	p.ID = strings.TrimSpace(p.ID)
	p.Title = strings.TrimSpace(p.Title)
	p.Content = render.Sanitize(p.Content)
	if strings.TrimSpace(p.Excerpt) == "" {
		p.Excerpt = render.DeriveExcerpt(p.Content, ExcerptLength)
	}
	if p.ReadTime <= 0 {
		p.ReadTime = render.ReadTime(p.Content)
	}
	if p.Date == "" {
		p.Date = time.Now().UTC().Format("2006-01-02")
	}
	return p
}

func (s *Service) afterWrite(ctx context.Context, kind ChangeKind, id string) {
	s.Invalidate()
	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()
	if n == nil {
		return
	}
	if err := n.PostChanged(ctx, kind, id); err != nil {
		s.logger.Warn("failed to announce content change", "id", id, "kind", kind, "error", err)
	}
}

func (s *Service) snapshot(ctx context.Context) ([]Post, map[string]int, error) {
	s.mu.RLock()
	if s.valid && s.ttl > 0 && s.now().Sub(s.loadedAt) < s.ttl {
		posts, byID := s.posts, s.byID
		s.mu.RUnlock()
		if s.metrics != nil {
			s.metrics.ContentCacheHits.Inc()
		}
		return posts, byID, nil
	}
	s.mu.RUnlock()
	if s.metrics != nil {
		s.metrics.ContentCacheMisses.Inc()
	}

	_, err, _ := s.group.Do("reload", func() (any, error) {
		return nil, s.reload(ctx)
	})
	if err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posts, s.byID, nil
}

func (s *Service) reload(ctx context.Context) error {
	start := s.now()
	posts, err := s.store.List(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ContentReloads.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("loading posts: %w", err)
	}
	SortNewestFirst(posts)
	byID := make(map[string]int, len(posts))
	for i, p := range posts {
		if _, dup := byID[p.ID]; dup {
			s.logger.Warn("duplicate post id, keeping newest", "id", p.ID)
			continue
		}
		byID[p.ID] = i
	}

	s.mu.Lock()
	s.posts = posts
	s.byID = byID
	s.loadedAt = s.now()
	s.valid = true
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ContentReloads.WithLabelValues("ok").Inc()
		s.metrics.PostsLoaded.Set(float64(len(posts)))
	}
	s.logger.Debug("posts loaded", "count", len(posts), "duration", s.now().Sub(start))
	return nil
}
