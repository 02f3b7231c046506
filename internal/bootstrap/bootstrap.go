// Package bootstrap builds the components shared by the service binaries
// and the CLI from a loaded config: the content store and the translation
// chain.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content/fsstore"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content/pgstore"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/translate"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/resilience"
)

// Store is an opened content store. DB is set for the postgres backend.
type Store struct {
	content.Store
	Backend string
	FS      *fsstore.Store
	DB      *postgres.Client
}

func (s *Store) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// OpenStore opens the backend named by cfg.Content.Backend ("fs" when
// empty). The postgres backend creates its schema.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Content.Backend))
	switch backend {
	case "", "fs":
		fs := fsstore.New(cfg.Content.Dir, cfg.Content.FeaturedFile)
		return &Store{Store: fs, Backend: "fs", FS: fs}, nil
	case "postgres":
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		pg := pgstore.New(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &Store{Store: pg, Backend: backend, DB: db}, nil
	default:
		return nil, fmt.Errorf("unknown content backend %q", cfg.Content.Backend)
	}
}

// Translation is the resolver together with the parts callers may need to
// probe, flush or close.
type Translation struct {
	Resolver *translate.Resolver
	Breaker  *resilience.CircuitBreaker
	Cache    *translate.CachedTranslator
	Redis    *pkgredis.Client
}

// NewTranslation builds Google → Redis cache → breaker → resolver. With
// translation disabled the resolver only uses the fallback dictionary.
// Redis is optional: when it is unreachable the cache is skipped.
func NewTranslation(cfg *config.Config, m *metrics.Metrics) *Translation {
	log := logger.WithComponent("bootstrap")
	t := &Translation{}
	if !cfg.Translate.Enabled {
		log.Info("remote translation disabled, using fallback dictionary only")
		t.Resolver = translate.NewResolver(nil, translate.ResolverOptions{Metrics: m})
		return t
	}

	var translator translate.Translator = translate.NewGoogleTranslator(cfg.Translate, nil, m)
	if cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, translation caching disabled", "error", err)
		} else {
			t.Redis = rc
			t.Cache = translate.NewCachedTranslator(translator, rc, cfg.Redis.CacheTTL,
				cfg.Translate.SourceLang, cfg.Translate.TargetLang, m)
			translator = t.Cache
			log.Info("translation cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	t.Breaker = resilience.NewCircuitBreaker("translate", resilience.CircuitBreakerConfig{
		FailureThreshold:    cfg.Translate.FailureThreshold,
		ResetTimeout:        cfg.Translate.ResetTimeout,
		HalfOpenMaxRequests: 1,
		OnStateChange: func(name string, from, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	t.Resolver = translate.NewResolver(translator, translate.ResolverOptions{
		Timeout: cfg.Translate.Timeout,
		Breaker: t.Breaker,
		Metrics: m,
	})
	return t
}

func (t *Translation) Close() error {
	if t.Redis != nil {
		return t.Redis.Close()
	}
	return nil
}
