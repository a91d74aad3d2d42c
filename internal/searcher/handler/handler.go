// Package handler serves the search HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/metrics"
)

// CacheHeader reports HIT or MISS on searches served with a cache.
const CacheHeader = "X-Cache"

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
	Info() executor.ArtifactInfo
}

type Handler struct {
	executor     SearchExecutor
	cache        *cache.QueryCache
	tracker      analytics.Tracker
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New returns the API handler. queryCache, tracker and m may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, tracker analytics.Tracker, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		executor:     exec,
		cache:        queryCache,
		tracker:      tracker,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index", h.Index)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search answers GET /api/v1/search?q=&limit=. A blank query yields an
// empty result, not an error.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	limit, err := h.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	plan := parser.Parse(query)
	if plan.Empty() || limit == 0 {
		h.writeJSON(w, http.StatusOK, h.emptyResult(query))
		return
	}

	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, limit)
	}
	elapsed := time.Since(start)

	if err != nil {
		h.observe("error", cacheHit, elapsed, 0)
		log.Error("search execution failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	h.observe(resultType, cacheHit, elapsed, len(result.Results))

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
	if h.tracker != nil {
		eventType := analytics.EventCacheMiss
		switch {
		case result.TotalHits == 0:
			eventType = analytics.EventZeroResult
		case cacheHit:
			eventType = analytics.EventCacheHit
		}
		h.tracker.Track(analytics.SearchEvent{
			Type:          eventType,
			Query:         query,
			Terms:         plan.Terms,
			TotalHits:     result.TotalHits,
			Returned:      len(result.Results),
			LatencyMs:     elapsed.Milliseconds(),
			CacheHit:      cacheHit,
			IndexChecksum: h.executor.Info().Checksum,
			Timestamp:     time.Now().UTC(),
			RequestID:     logger.RequestID(ctx),
		})
	}

	if h.cache != nil {
		status := "MISS"
		if cacheHit {
			status = "HIT"
		}
		w.Header().Set(CacheHeader, status)
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return h.defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a non-negative integer")
	}
	if h.maxResults > 0 && limit > h.maxResults {
		limit = h.maxResults
	}
	return limit, nil
}

func (h *Handler) emptyResult(query string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:     query,
		Results:   []ranker.Match{},
		TermStats: map[string]int{},
	}
}

func (h *Handler) observe(resultType string, cacheHit bool, elapsed time.Duration, returned int) {
	if h.metrics == nil {
		return
	}
	cacheStatus := "miss"
	if h.cache == nil {
		cacheStatus = "disabled"
	} else if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	if resultType != "error" {
		h.metrics.SearchResultsCount.Observe(float64(returned))
	}
}

// Index describes the loaded artifact.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	info := h.executor.Info()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"version":     info.Version,
		"filter_kind": info.FilterKind,
		"compression": info.Compression,
		"checksum":    fmt.Sprintf("%08x", info.Checksum),
		"entries":     info.Entries,
		"bytes":       info.Bytes,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"backend":  h.cache.Backend(),
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Messages of AppErrors are shown to
// the caller; anything else is reported generically.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
