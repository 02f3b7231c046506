// Command analytics consumes search events from Kafka, aggregates them in
// memory and serves the totals at GET /api/v1/analytics. When PostgreSQL is
// reachable it seeds from the newest snapshot on start and saves a snapshot
// every analytics.snapshotInterval.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
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

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8081, "HTTP port, 0 uses server.port from the config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	checker := health.NewChecker()

	var snapshots analytics.SnapshotLister
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
	} else {
		defer db.Close()
		store := aggregator.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("analytics schema setup failed", "error", err)
			os.Exit(1)
		}
		latest, err := store.LatestSnapshot(ctx)
		switch {
		case err != nil:
			slog.Warn("loading latest snapshot failed", "error", err)
		case latest != nil:
			agg.Seed(*latest)
			slog.Info("aggregator seeded from snapshot", "total_searches", latest.TotalSearches)
		}
		store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		snapshots = store
		checker.Register("postgres", health.PingCheck(db.Ping, true))
	}

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents,
			cfg.Kafka.ConsumerGroup+"-analytics", analytics.HandleEvent(agg))
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("search events consumer stopped", "error", err)
			}
		}()
		slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.SearchEvents)
		checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
		})
	} else {
		slog.Warn("kafka disabled, analytics will only show seeded totals")
	}

	h := analytics.NewHandler(agg, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", h.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins)),
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
