// Command blogsvc serves the blog catalog, the bilingual search API and the
// live search websocket.
//
// Usage:
//
//	go run ./cmd/blogsvc [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content/events"
	contenthandler "github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content/handler"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content/watcher"
	searchhandler "github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/handler"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/live"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/resilience"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const watchDebounce = 250 * time.Millisecond

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("blog service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("blog service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	instanceID := instanceName()
	slog.Info("starting blog service",
		"port", cfg.Server.Port,
		"instance", instanceID,
		"content_backend", cfg.Content.Backend,
	)

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		go func() {
			if err := metrics.ListenAndServe(ctx, cfg.Metrics.Port); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening content store: %w", err)
	}
	defer store.Close()
	svc := content.NewService(store, content.Options{TTL: cfg.Content.CacheTTL, Metrics: m})

	if store.FS != nil && cfg.Content.Watch {
		dirs := []string{store.FS.Dir()}
		w, err := watcher.New(svc, watchDebounce, dirs...)
		if err != nil {
			slog.Warn("content watcher disabled", "error", err)
		} else {
			go func() {
				if err := w.Run(ctx); err != nil {
					slog.Error("content watcher stopped", "error", err)
				}
			}()
		}
	}

	var (
		httpTracker analytics.Tracker = analytics.Discard{}
		liveTracker analytics.Tracker = analytics.Discard{}
	)
	if cfg.Kafka.Enabled {
		contentProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ContentChanged)
		defer contentProducer.Close()
		svc.SetNotifier(events.NewNotifier(contentProducer, instanceID))

		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ContentChanged,
			cfg.Kafka.ConsumerGroup+"-"+instanceID, events.Handler(svc, instanceID))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("content events consumer stopped", "error", err)
			}
		}()

		eventsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer eventsProducer.Close()

		c := analytics.NewCollector(eventsProducer, cfg.Analytics.BufferSize, m)
		c.Start(ctx)
		defer c.Close()
		httpTracker = c

		bc := collector.NewBatchCollector(eventsProducer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval, m)
		bc.Start(ctx)
		defer bc.Close()
		liveTracker = bc
		slog.Info("kafka wiring enabled",
			"brokers", cfg.Kafka.Brokers,
			"search_events", cfg.Kafka.Topics.SearchEvents,
			"content_changed", cfg.Kafka.Topics.ContentChanged,
		)
	}

	tr := bootstrap.NewTranslation(cfg, m)
	defer tr.Close()

	checker := health.NewChecker()
	checker.Register("content", func(ctx context.Context) health.ComponentHealth {
		n, err := svc.Count(ctx)
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		m.PostsLoaded.Set(float64(n))
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d posts", n)}
	})
	if store.DB != nil {
		checker.Register("postgres", health.PingCheck(store.DB.Ping, false))
	}
	var cache searchhandler.CacheFlusher
	if tr.Cache != nil {
		cache = tr.Cache
		ping := health.PingCheck(tr.Redis.Ping, true)
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			h := ping(ctx)
			if h.Status == health.StatusUp {
				hits, misses := tr.Cache.Stats()
				h.Message = fmt.Sprintf("translate cache %d hits, %d misses", hits, misses)
			}
			return h
		})
	}
	if tr.Breaker != nil {
		checker.Register("translate", func(ctx context.Context) health.ComponentHealth {
			if state := tr.Breaker.GetState(); state != resilience.StateClosed {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String() + ", using fallback dictionary"}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	search := searchhandler.New(svc, tr.Resolver, searchhandler.Options{
		PageSize:    cfg.Search.PageSize,
		MaxPageSize: cfg.Search.MaxPageSize,
		MaxResults:  cfg.Search.MaxResults,
		Tracker:     httpTracker,
		Metrics:     m,
		Tracing:     cfg.Tracing.Enabled,
		Cache:       cache,
	})
	liveSearch := live.NewHandler(svc, tr.Resolver, live.Options{
		Debounce:     cfg.Translate.Debounce,
		PageSize:     cfg.Search.PageSize,
		IdleTimeout:  cfg.Search.SessionIdleTimeout,
		AllowOrigins: cfg.Server.AllowOrigins,
		Tracker:      liveTracker,
		Metrics:      m,
	})

	mux := http.NewServeMux()
	contenthandler.New(svc).Register(mux)
	mux.HandleFunc("GET /api/v1/search", search.Search)
	mux.HandleFunc("POST /api/v1/translate", search.Translate)
	mux.HandleFunc("POST /api/v1/admin/translations/invalidate", search.FlushTranslations)
	mux.Handle("GET /api/v1/search/live", liveSearch)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Server.Port {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	limiter := ratelimit.New(cfg.Server.ClientRatePerMinute, max(cfg.Server.ClientRatePerMinute/4, 1))
	go limiter.Run(ctx, time.Minute)

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins)),
		middleware.RateLimit(limiter, "/api/v1/translate", "/api/v1/search"),
		middleware.Timeout(cfg.Server.WriteTimeout, "/api/v1/search/live"),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("blog service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// instanceName identifies this process in content-change events and in its
// per-instance consumer group.
func instanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "blogsvc"
	}
	return host + "-" + uuid.NewString()[:8]
}
