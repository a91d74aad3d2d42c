package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersWithGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SearchQueriesTotal.WithLabelValues("hit").Inc()
	m.CacheHitsTotal.Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))

	// a second set on a fresh registry must not collide
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}

func TestNewBuild(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBuild(reg)
	m.SectionsIndexedTotal.Add(5)
	m.DocumentsSkippedTotal.WithLabelValues("draft").Inc()

	count, err := testutil.GatherAndCount(reg, "index_sections_indexed_total", "index_documents_skipped_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPushSkipsWithoutURL(t *testing.T) {
	assert.NoError(t, Push(context.Background(), "", "job", prometheus.NewRegistry()))
}

func TestPushToGateway(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	NewBuild(reg).ArtifactBytes.Set(1024)

	require.NoError(t, Push(context.Background(), srv.URL, "static_search_indexer", reg))
	assert.Equal(t, "/metrics/job/static_search_indexer", gotPath)
}

func TestHandlerServesGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBuild(reg)
	m.ArtifactBytes.Set(1234)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1234")
}
