// Command indexer builds the search index of a book and publishes it to the
// configured artifact store.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-watch]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/publish"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/watch"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/resilience"
)

const pushJob = "static_search_indexer"

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	watchMode := flag.Bool("watch", false, "rebuild whenever the book changes")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *watchMode); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, watchMode bool) error {
	opts, err := indexer.OptionsFromConfig(cfg.Indexer)
	if err != nil {
		return err
	}
	slog.Info("starting indexer",
		"source", cfg.Source.Kind,
		"publish_target", cfg.Publish.Target,
		"filter_kind", opts.Filter.Kind.String(),
		"compression", opts.Compression.String(),
		"watch", watchMode,
	)

	src, closeSource, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	store, err := publish.Open(ctx, cfg.Publish)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	builderOpts := []indexer.BuilderOption{
		indexer.WithStore(store),
		indexer.WithMetrics(metrics.NewBuild(reg)),
		indexer.WithRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.Publish.MaxAttempts,
			InitialDelay: cfg.Publish.RetryDelay,
		}),
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		builderOpts = append(builderOpts, indexer.WithEvents(producer))
		slog.Info("index announcements enabled", "topic", cfg.Kafka.Topics.IndexComplete)
	}
	builder := indexer.NewBuilder(opts, builderOpts...)

	rebuild := func(ctx context.Context) error {
		result, err := builder.Run(ctx, src)
		if err != nil {
			return err
		}
		slog.Info("index ready", "location", result.Location, "entries", result.Entries, "bytes", result.Bytes)
		return nil
	}

	if !watchMode {
		buildErr := rebuild(ctx)
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, pushJob, reg); err != nil {
			slog.Warn("pushing build metrics failed", "error", err)
		}
		return buildErr
	}

	if cfg.Source.Kind != "book" {
		return fmt.Errorf("watch mode needs a book source, got %q", cfg.Source.Kind)
	}
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}
	if err := rebuild(ctx); err != nil {
		slog.Error("initial build failed, waiting for changes", "error", err)
	}
	var ignore []string
	if cfg.Publish.Target == "file" {
		ignore = append(ignore, cfg.Publish.Dir)
	}
	w := watch.New(cfg.Source.BookDir, watch.Options{Debounce: cfg.Indexer.WatchDebounce, Ignore: ignore}, rebuild)
	return w.Run(ctx)
}

func openSource(cfg *config.Config) (source.Source, func(), error) {
	switch cfg.Source.Kind {
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return source.NewPostgres(client.DB, cfg.Source.Table), func() { client.Close() }, nil
	default:
		book := source.NewBook(os.DirFS(cfg.Source.BookDir), cfg.Source.Summary, cfg.Source.ReadWorkers)
		return book, func() {}, nil
	}
}
