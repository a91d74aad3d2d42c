package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/middleware"
)

func TestRouterServesAggregate(t *testing.T) {
	agg := analytics.NewAggregator()
	agg.Track(analytics.SearchEvent{Query: "cargo", TotalHits: 2, LatencyMs: 4})
	router := newRouter(agg, health.NewChecker(), metrics.New(prometheus.NewRegistry()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	var resp analytics.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.TotalSearches)
	assert.Equal(t, []analytics.QueryCount{{Query: "cargo", Count: 1}}, resp.TopQueries)
	assert.Nil(t, resp.Serving)
}

func TestRouterHealth(t *testing.T) {
	checker := health.NewChecker()
	checker.Register("postgres", health.Ping(func(context.Context) error {
		return errors.New("connection refused")
	}))
	router := newRouter(analytics.NewAggregator(), checker, metrics.New(prometheus.NewRegistry()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/analytics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
