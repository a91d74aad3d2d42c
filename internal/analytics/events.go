// Package analytics collects search events, aggregates them into service
// statistics and serves those statistics over HTTP.
package analytics

import "time"

type EventType string

const (
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventZeroResult EventType = "zero_result"
)

// KafkaEventSearch is the "type" header of search events on the analytics
// topic.
const KafkaEventSearch = "search"

type SearchEvent struct {
	Type          EventType `json:"type"`
	Query         string    `json:"query"`
	Terms         []string  `json:"terms"`
	TotalHits     int       `json:"total_hits"`
	Returned      int       `json:"returned"`
	LatencyMs     int64     `json:"latency_ms"`
	CacheHit      bool      `json:"cache_hit"`
	IndexChecksum uint32    `json:"index_checksum"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id"`
}

// Tracker records search events. The Collector forwards them to Kafka; the
// Aggregator records them in process.
type Tracker interface {
	Track(event SearchEvent)
}
