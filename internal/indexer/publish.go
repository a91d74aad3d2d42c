package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/tracing"
)

const EventIndexPublished = "index.published"

// IndexPublished is announced after an artifact has been stored.
type IndexPublished struct {
	Artifact    string    `json:"artifact"`
	Location    string    `json:"location"`
	Target      string    `json:"target"`
	Checksum    uint32    `json:"checksum"`
	Entries     int       `json:"entries"`
	Bytes       int       `json:"bytes"`
	FilterKind  string    `json:"filter_kind"`
	Compression string    `json:"compression"`
	PublishedAt time.Time `json:"published_at"`
}

type PublishResult = IndexPublished

// Publish encodes idx and writes it to the configured store. Uploads to
// remote stores are retried with backoff; local writes are not.
func (b *Builder) Publish(ctx context.Context, idx *index.Index) (PublishResult, error) {
	if b.store == nil {
		return PublishResult{}, fmt.Errorf("no artifact store configured")
	}
	ctx, end := b.phase(ctx, "publish")
	defer end()

	_, endEncode := b.phase(ctx, "encode")
	data, err := segment.Encode(idx, segment.Options{Compression: b.opts.Compression})
	endEncode()
	if err != nil {
		return PublishResult{}, fmt.Errorf("encoding index: %w", err)
	}
	tracing.FromContext(ctx).SetAttr("bytes", len(data))
	header, err := segment.Inspect(data)
	if err != nil {
		return PublishResult{}, fmt.Errorf("inspecting encoded index: %w", err)
	}

	target := b.store.Name()
	tracing.FromContext(ctx).SetAttr("target", target)
	var location string
	put := func() error {
		var err error
		location, err = b.store.Put(ctx, b.opts.OutputName, data)
		return err
	}
	if target == "file" {
		err = put()
	} else {
		err = resilience.Retry(ctx, "publish-"+target, b.retry, put)
	}
	if b.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		b.metrics.PublishesTotal.WithLabelValues(target, status).Inc()
	}
	if err != nil {
		return PublishResult{}, fmt.Errorf("publishing %s to %s: %w", b.opts.OutputName, target, err)
	}
	if b.metrics != nil {
		b.metrics.ArtifactBytes.Set(float64(len(data)))
	}

	result := PublishResult{
		Artifact:    b.opts.OutputName,
		Location:    location,
		Target:      target,
		Checksum:    header.Checksum,
		Entries:     idx.Len(),
		Bytes:       len(data),
		FilterKind:  header.FilterKind.String(),
		Compression: header.Compression.String(),
		PublishedAt: time.Now().UTC(),
	}
	b.logger.Info("index published",
		"artifact", result.Artifact,
		"location", result.Location,
		"bytes", result.Bytes,
		"checksum", fmt.Sprintf("%08x", result.Checksum),
	)

	if b.events != nil {
		event := kafka.Event{Key: result.Artifact, Type: EventIndexPublished, Value: result}
		if err := b.events.Publish(ctx, event); err != nil {
			b.logger.Warn("index published but announcement failed", "error", err)
		}
	}
	return result, nil
}

// Run loads the corpus from src, builds the index and publishes it.
func (b *Builder) Run(ctx context.Context, src source.Source) (PublishResult, error) {
	ctx, end := b.phase(ctx, "index-run")
	defer end()

	loadCtx, endLoad := b.phase(ctx, "load")
	items, err := src.Items(loadCtx)
	endLoad()
	if err != nil {
		return PublishResult{}, fmt.Errorf("loading documents: %w", err)
	}
	idx, err := b.BuildIndex(ctx, items)
	if err != nil {
		return PublishResult{}, err
	}
	return b.Publish(ctx, idx)
}
