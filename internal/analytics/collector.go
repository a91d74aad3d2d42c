package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/kafka"
)

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

type CollectorOptions struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Collector buffers search events and publishes them to Kafka in batches,
// when a batch fills or the flush interval passes. Track never blocks; when
// the buffer is full the event is dropped.
type Collector struct {
	publisher kafka.Publisher
	opts      CollectorOptions
	eventCh   chan SearchEvent
	logger    *slog.Logger
	done      chan struct{}
}

func NewCollector(publisher kafka.Publisher, opts CollectorOptions) *Collector {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	return &Collector{
		publisher: publisher,
		opts:      opts,
		eventCh:   make(chan SearchEvent, opts.BufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. It runs until ctx is cancelled or Close
// is called, flushing what is buffered on the way out.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.opts.FlushInterval)
		defer ticker.Stop()

		var batch []kafka.Event
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, toKafka(event))
				if len(batch) >= c.opts.BatchSize {
					c.flush(ctx, batch)
					batch = nil
				}
			case <-ticker.C:
				c.flush(ctx, batch)
				batch = nil
			case <-ctx.Done():
				c.drainRemaining(batch)
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", c.opts.BufferSize,
		"batch_size", c.opts.BatchSize,
		"flush_interval", c.opts.FlushInterval,
	)
}

func (c *Collector) Track(event SearchEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drainRemaining(batch []kafka.Event) {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.finalFlush(batch)
				return
			}
			batch = append(batch, toKafka(event))
		default:
			c.finalFlush(batch)
			return
		}
	}
}

func (c *Collector) finalFlush(batch []kafka.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(ctx, batch)
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics events", "batch_size", len(batch), "error", err)
		return
	}
	c.logger.Debug("analytics batch flushed", "events", len(batch))
}

func toKafka(event SearchEvent) kafka.Event {
	return kafka.Event{Key: "analytics", Type: KafkaEventSearch, Value: event}
}
