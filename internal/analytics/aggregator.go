package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/kafka"
)

const (
	// maxLatencySamples bounds the latency window percentiles are computed over.
	maxLatencySamples = 10000

	defaultTopQueries = 10
)

type AggregatedStats struct {
	TotalSearches     int64                   `json:"total_searches"`
	CacheHits         int64                   `json:"cache_hits"`
	CacheMisses       int64                   `json:"cache_misses"`
	ZeroResultCount   int64                   `json:"zero_result_count"`
	AvgLatencyMs      float64                 `json:"avg_latency_ms"`
	P50LatencyMs      int64                   `json:"p50_latency_ms"`
	P95LatencyMs      int64                   `json:"p95_latency_ms"`
	P99LatencyMs      int64                   `json:"p99_latency_ms"`
	TopQueries        []QueryCount            `json:"top_queries"`
	ZeroResultQueries []QueryCount            `json:"zero_result_queries"`
	QueriesPerMinute  float64                 `json:"queries_per_minute"`
	IndexesPublished  int64                   `json:"indexes_published"`
	LastPublished     *indexer.IndexPublished `json:"last_published,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running search statistics in memory. It is safe for
// concurrent use.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	indexesPublished  atomic.Int64
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	lastPublished     *indexer.IndexPublished
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a Kafka handler feeding agg. Search events and index
// announcements are recorded; other event types are skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, eventType string, key []byte, value []byte) error {
		switch eventType {
		case KafkaEventSearch:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.Track(event)
		case indexer.EventIndexPublished:
			event, err := kafka.DecodeJSON[indexer.IndexPublished](value)
			if err != nil {
				agg.logger.Error("failed to decode index event", "error", err)
				return nil
			}
			agg.RecordPublished(event)
		default:
			agg.logger.Debug("skipping event", "type", eventType, "key", string(key))
		}
		return nil
	}
}

func (a *Aggregator) Track(event SearchEvent) {
	a.totalSearches.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.TotalHits == 0 {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) == maxLatencySamples {
		a.latencies = append(a.latencies[:0], a.latencies[1:]...)
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResultQueries[event.Query]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) RecordPublished(event indexer.IndexPublished) {
	a.indexesPublished.Add(1)
	a.mu.Lock()
	a.lastPublished = &event
	a.mu.Unlock()
	a.logger.Info("index publish recorded",
		"artifact", event.Artifact,
		"entries", event.Entries,
		"target", event.Target,
	)
}

// Restore seeds the counters from a persisted snapshot so totals survive a
// restart. Latency samples are not persisted and start empty.
func (a *Aggregator) Restore(stats AggregatedStats) {
	a.totalSearches.Store(stats.TotalSearches)
	a.cacheHits.Store(stats.CacheHits)
	a.cacheMisses.Store(stats.CacheMisses)
	a.zeroResults.Store(stats.ZeroResultCount)
	a.indexesPublished.Store(stats.IndexesPublished)

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, q := range stats.TopQueries {
		a.queryCounts[q.Query] = q.Count
	}
	for _, q := range stats.ZeroResultQueries {
		a.zeroResultQueries[q.Query] = q.Count
	}
	a.lastPublished = stats.LastPublished
}

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(defaultTopQueries)
}

// StatsTop is Stats with the top and zero-result query lists holding up to
// n entries each.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches.Load(),
		CacheHits:        a.cacheHits.Load(),
		CacheMisses:      a.cacheMisses.Load(),
		ZeroResultCount:  a.zeroResults.Load(),
		IndexesPublished: a.indexesPublished.Load(),
		LastPublished:    a.lastPublished,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, n)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, n)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
