// Package indexer turns a document corpus into a published search index
// artifact.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/filter"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/publish"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/sanitize"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/tracing"
)

// IndexBuildError reports the section whose filter could not be built or
// added. The build is abandoned; no partial index is produced.
type IndexBuildError struct {
	Locator index.Locator
	Err     error
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("indexing section %s: %v", e.Locator.URL, e.Err)
}

func (e *IndexBuildError) Unwrap() error {
	return e.Err
}

func (e *IndexBuildError) Is(target error) bool {
	return target == apperrors.ErrIndexBuild
}

type Options struct {
	HeadingSplitLevel int
	Filter            filter.Options
	Compression       segment.Compression
	OutputName        string
}

// OptionsFromConfig validates and converts the indexer configuration.
func OptionsFromConfig(cfg config.IndexerConfig) (Options, error) {
	kind, err := filter.ParseKind(cfg.FilterKind)
	if err != nil {
		return Options{}, err
	}
	compression, err := segment.ParseCompression(cfg.Compression)
	if err != nil {
		return Options{}, err
	}
	return Options{
		HeadingSplitLevel: cfg.HeadingSplitLevel,
		Filter: filter.Options{
			Kind:              kind,
			CapacityFactor:    cfg.CapacityFactor,
			FalsePositiveRate: cfg.BloomFalsePositiveRate,
		},
		Compression: compression,
		OutputName:  cfg.OutputName,
	}, nil
}

// Builder builds, encodes and publishes search indexes. A Builder holds no
// per-build state and may run one build after another.
type Builder struct {
	opts      Options
	markdown  *document.Markdown
	extractor *section.Extractor
	filters   *filter.Builder

	store   publish.Store
	retry   resilience.RetryConfig
	events  kafka.Publisher
	metrics *metrics.BuildMetrics
	logger  *slog.Logger
}

type BuilderOption func(*Builder)

func WithStore(store publish.Store) BuilderOption {
	return func(b *Builder) { b.store = store }
}

// WithRetry sets the backoff used for uploads to remote stores.
func WithRetry(cfg resilience.RetryConfig) BuilderOption {
	return func(b *Builder) { b.retry = cfg }
}

// WithEvents announces every published artifact on p.
func WithEvents(p kafka.Publisher) BuilderOption {
	return func(b *Builder) { b.events = p }
}

func WithMetrics(m *metrics.BuildMetrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

func WithTokenizer(tok tokenizer.Tokenizer) BuilderOption {
	return func(b *Builder) { b.filters = filter.NewBuilder(tok, b.opts.Filter) }
}

func NewBuilder(opts Options, options ...BuilderOption) *Builder {
	if opts.OutputName == "" {
		opts.OutputName = "searchindex.bin"
	}
	b := &Builder{
		opts:      opts,
		markdown:  document.NewMarkdown(),
		extractor: section.NewExtractor(opts.HeadingSplitLevel, sanitize.NewStrict()),
		filters:   filter.NewBuilder(tokenizer.NewUnicode(), opts.Filter),
		logger:    slog.Default().With("component", "indexer"),
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// BuildIndex extracts the sections of every item in order and returns the
// finished index. Any failure aborts the whole build.
func (b *Builder) BuildIndex(ctx context.Context, items []source.Item) (*index.Index, error) {
	ctx, end := b.phase(ctx, "build")
	defer end()
	start := time.Now()
	idx, err := b.buildIndex(ctx, items)
	if b.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		b.metrics.BuildsTotal.WithLabelValues(status).Inc()
		b.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		b.logger.Error("index build failed", "error", err)
		return nil, err
	}
	b.logger.Info("index built",
		"documents", len(items),
		"sections", idx.Len(),
		"filter_kind", idx.FilterKind().String(),
		"duration", time.Since(start),
	)
	return idx, nil
}

func (b *Builder) buildIndex(ctx context.Context, items []source.Item) (*index.Index, error) {
	ib := index.NewBuilder(b.filters.Kind())
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("index build cancelled: %w", err)
		}
		doc := item.Document
		if doc.Draft {
			b.skipped(doc, "draft")
			continue
		}
		sections, err := b.extractor.Extract(doc, b.markdown.Events(item.Content))
		if err != nil {
			return nil, fmt.Errorf("extracting sections of %q: %w", doc.Title, err)
		}
		if len(sections) == 0 {
			b.skipped(doc, "no_headings")
			continue
		}
		for _, sec := range sections {
			f, err := b.filters.Build(sec.FilterTexts()...)
			if err != nil {
				return nil, &IndexBuildError{Locator: sec.Locator, Err: err}
			}
			if err := ib.Add(sec.Locator, f); err != nil {
				return nil, &IndexBuildError{Locator: sec.Locator, Err: err}
			}
		}
		if b.metrics != nil {
			b.metrics.SectionsIndexedTotal.Add(float64(len(sections)))
		}
		b.logger.Debug("document indexed",
			"title", doc.Title,
			"path", doc.Path,
			"section_count", len(sections),
		)
	}
	return ib.Finalize(), nil
}

// phase opens a tracing span for one step of a run. The returned func ends
// it and, for a root span, logs the whole tree.
func (b *Builder) phase(ctx context.Context, name string) (context.Context, func()) {
	root := tracing.FromContext(ctx) == nil
	ctx, span := tracing.Start(ctx, name)
	return ctx, func() {
		span.End()
		if root {
			span.Log(b.logger)
		}
	}
}

func (b *Builder) skipped(doc document.Document, reason string) {
	if b.metrics != nil {
		b.metrics.DocumentsSkippedTotal.WithLabelValues(reason).Inc()
	}
	b.logger.Debug("document skipped", "title", doc.Title, "reason", reason)
}
