// Command analytics runs the standalone analytics service.
//
// It consumes search events and index publications from Kafka, aggregates
// them in memory, snapshots the aggregate to PostgreSQL when enabled, and
// serves GET /api/v1/analytics for dashboards.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/postgres"
)

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
	if !cfg.Kafka.Enabled {
		slog.Error("analytics service requires kafka.enabled")
		os.Exit(1)
	}
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	checker := health.NewChecker()

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
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
		checker.Register("postgres", health.Ping(db.Ping))
	}

	handle := analytics.HandleEvent(agg)
	for _, topic := range []string{cfg.Kafka.Topics.AnalyticsEvents, cfg.Kafka.Topics.IndexComplete} {
		consumer := kafka.NewConsumer(cfg.Kafka, topic, handle)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "topic", topic, "error", err)
			}
		}()
	}
	slog.Info("analytics consumers started",
		"events_topic", cfg.Kafka.Topics.AnalyticsEvents,
		"index_topic", cfg.Kafka.Topics.IndexComplete,
	)

	chain := newRouter(agg, checker, metrics.New(nil))

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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}

// newRouter serves the aggregate and health endpoints behind the request-id
// and metrics middleware.
func newRouter(agg *analytics.Aggregator, checker *health.Checker, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg, nil).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	return middleware.RequestID(chain)
}
