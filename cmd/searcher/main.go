// Command searcher serves search queries over HTTP against the published
// index. The artifact is loaded once at start-up; a corrupt or incompatible
// artifact stops the service.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/publish"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/static-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/resilience"
)

const loadTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "publish_target", cfg.Publish.Target)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	store, err := publish.Open(ctx, cfg.Publish)
	if err != nil {
		slog.Error("failed to open artifact store", "error", err)
		os.Exit(1)
	}
	holder := executor.NewHolder(func() ([]byte, error) {
		var data []byte
		err := resilience.WithTimeout(ctx, loadTimeout, "load-index", func(ctx context.Context) error {
			var err error
			data, err = store.Get(ctx, cfg.Indexer.OutputName)
			return err
		})
		return data, err
	})
	engine, err := holder.Engine()
	if err != nil {
		m.IndexLoadsTotal.WithLabelValues("error").Inc()
		slog.Error("search index unavailable", "artifact", cfg.Indexer.OutputName, "error", err)
		os.Exit(1)
	}
	m.IndexLoadsTotal.WithLabelValues("success").Inc()
	m.IndexEntries.Set(float64(engine.Info().Entries))

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	cacheOpts := cache.Options{
		Checksum:  engine.Info().Checksum,
		TTL:       cfg.Redis.CacheTTL,
		LocalSize: cfg.Search.LocalCacheSize,
		Metrics:   m,
	}
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, using in-process cache", "error", err)
		} else {
			defer redisClient.Close()
		}
	}
	if redisClient != nil {
		queryCache, err = cache.New(redisClient, cacheOpts)
	} else {
		queryCache, err = cache.New(nil, cacheOpts)
	}
	if err != nil {
		slog.Error("failed to create query cache", "error", err)
		os.Exit(1)
	}
	slog.Info("search cache enabled", "backend", queryCache.Backend(), "ttl", cfg.Redis.CacheTTL)
	if pruned, err := queryCache.PruneStale(ctx); err != nil {
		slog.Warn("failed to prune results cached for older indexes", "error", err)
	} else if pruned > 0 {
		slog.Info("pruned results cached for older indexes", "keys", pruned)
	}

	agg := analytics.NewAggregator()
	var tracker analytics.Tracker = agg
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.CollectorOptions{})
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector

		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		slog.Info("analytics routed through kafka", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	checker := health.NewChecker()
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			snapshots := aggregator.NewStore(db)
			if err := snapshots.EnsureSchema(ctx); err != nil {
				slog.Error("failed to prepare snapshot table", "error", err)
				os.Exit(1)
			}
			if _, err := snapshots.RestoreLatest(ctx, agg); err != nil {
				slog.Warn("failed to load analytics snapshot", "error", err)
			}
			snapshots.StartPeriodicSave(ctx, agg, cfg.Postgres.SnapshotInterval)
			checker.Register("postgres", health.Optional(db.Ping))
		}
	}
	checker.Register("index", health.Ping(func(context.Context) error {
		_, err := holder.Engine()
		return err
	}))
	if redisClient != nil {
		checker.Register("redis", health.Optional(redisClient.Ping))
	}

	h := handler.New(engine, queryCache, tracker, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	analyticsH := analytics.NewHandler(agg, func() (analytics.ServingIndex, error) {
		e, err := holder.Engine()
		if err != nil {
			return analytics.ServingIndex{}, err
		}
		info := e.Info()
		return analytics.ServingIndex{
			Checksum:   info.Checksum,
			Version:    info.Version,
			FilterKind: info.FilterKind,
			Entries:    info.Entries,
		}, nil
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, 10*time.Minute)
	go limiter.Cleanup(ctx, time.Minute)

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RateLimit(limiter, m)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

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

	slog.Info("search service listening", "addr", server.Addr, "entries", engine.Info().Entries)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
