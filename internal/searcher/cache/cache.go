// Package cache memoizes search results per artifact. Keys include the
// loaded artifact's checksum, so results from an older index are never
// served after a new one is deployed.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/static-search/pkg/redis"
)

const (
	keyPrefix        = "search:"
	DefaultLocalSize = 1024
)

// Remote is the subset of the Redis client the cache uses.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	DeletePrefixExcept(ctx context.Context, prefix, keep string) (int64, error)
}

type Options struct {
	// Checksum of the artifact the results come from.
	Checksum  uint32
	TTL       time.Duration
	LocalSize int
	Metrics   *metrics.Metrics
}

// QueryCache looks results up in Redis when a remote is configured and in
// an in-process LRU otherwise. Concurrent misses for the same key share a
// single computation.
type QueryCache struct {
	remote Remote
	local  *lru.Cache[string, *executor.SearchResult]
	opts   Options
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a cache. remote may be nil.
func New(remote Remote, opts Options) (*QueryCache, error) {
	if opts.LocalSize <= 0 {
		opts.LocalSize = DefaultLocalSize
	}
	local, err := lru.New[string, *executor.SearchResult](opts.LocalSize)
	if err != nil {
		return nil, fmt.Errorf("creating local cache: %w", err)
	}
	return &QueryCache{
		remote: remote,
		local:  local,
		opts:   opts,
		logger: slog.Default().With("component", "query-cache"),
	}, nil
}

func (c *QueryCache) Get(ctx context.Context, query string, limit int) (*executor.SearchResult, bool) {
	key := c.buildKey(query, limit)
	result, ok := c.lookup(ctx, key)
	if !ok {
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", query, "key", key)
	return forQuery(result, query), true
}

func (c *QueryCache) lookup(ctx context.Context, key string) (*executor.SearchResult, bool) {
	if c.remote == nil {
		return c.local.Get(key)
	}
	data, err := c.remote.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, query string, limit int, result *executor.SearchResult) {
	key := c.buildKey(query, limit)
	if c.remote == nil {
		c.local.Add(key, result)
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.remote.Set(ctx, key, data, c.opts.TTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for the query or computes and
// stores it. The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, query, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(query, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if result, ok := c.lookup(ctx, key); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return forQuery(val.(*executor.SearchResult), query), false, nil
}

// forQuery labels a stored result with the query that asked for it. Stored
// results are shared between queries with the same key, so a relabelled
// result is a shallow copy.
func forQuery(result *executor.SearchResult, query string) *executor.SearchResult {
	if result.Query == query {
		return result
	}
	labelled := *result
	labelled.Query = query
	return &labelled
}

// Invalidate drops the cached results of the loaded artifact. Results
// other searchers cached for other artifacts are left alone.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.local.Purge()
	if c.remote == nil {
		c.logger.Info("cache invalidated", "backend", "local")
		return nil
	}
	deleted, err := c.remote.DeletePrefix(ctx, c.artifactPrefix())
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "backend", "redis", "keys_deleted", deleted)
	return nil
}

// PruneStale removes results cached in Redis for any artifact other than
// the loaded one and returns how many keys went.
func (c *QueryCache) PruneStale(ctx context.Context) (int64, error) {
	if c.remote == nil {
		return 0, nil
	}
	deleted, err := c.remote.DeletePrefixExcept(ctx, keyPrefix, c.artifactPrefix())
	if err != nil {
		return deleted, fmt.Errorf("pruning stale results: %w", err)
	}
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Backend names where results are stored.
func (c *QueryCache) Backend() string {
	if c.remote == nil {
		return "local"
	}
	return "redis"
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.opts.Metrics != nil {
		c.opts.Metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.opts.Metrics != nil {
		c.opts.Metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) buildKey(query string, limit int) string {
	raw := fmt.Sprintf("%s:limit=%d", normalizeQuery(query), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", c.artifactPrefix(), hash[:16])
}

func (c *QueryCache) artifactPrefix() string {
	return fmt.Sprintf("%s%08x:", keyPrefix, c.opts.Checksum)
}

// normalizeQuery maps queries that rank identically to the same string.
// Scores count term occurrences, so term order does not matter but
// repetition does.
func normalizeQuery(query string) string {
	terms := parser.Parse(query).Terms
	slices.Sort(terms)
	return strings.Join(terms, " ")
}
