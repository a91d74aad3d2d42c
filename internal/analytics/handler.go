package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

const maxTopQueries = 100

// ServingIndex describes the artifact a search service is answering from.
type ServingIndex struct {
	Checksum   uint32 `json:"checksum"`
	Version    uint32 `json:"version"`
	FilterKind string `json:"filter_kind"`
	Entries    int    `json:"entries"`
	// Current is false once a different artifact has been published.
	Current bool `json:"current"`
}

// StatsResponse is the body of GET /api/v1/analytics.
type StatsResponse struct {
	AggregatedStats
	Serving      *ServingIndex `json:"serving,omitempty"`
	ServingError string        `json:"serving_error,omitempty"`
}

type Handler struct {
	aggregator *Aggregator
	serving    func() (ServingIndex, error)
	logger     *slog.Logger
}

// NewHandler serves the aggregator's stats. serving reports the artifact
// the process searches and is nil in processes that search nothing.
func NewHandler(aggregator *Aggregator, serving func() (ServingIndex, error)) *Handler {
	return &Handler{
		aggregator: aggregator,
		serving:    serving,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats answers GET /api/v1/analytics?top=N, where N sizes the query lists.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := defaultTopQueries
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "top must be a positive integer"})
			return
		}
		top = min(n, maxTopQueries)
	}

	resp := StatsResponse{AggregatedStats: h.aggregator.StatsTop(top)}
	if h.serving != nil {
		info, err := h.serving()
		if err != nil {
			h.logger.Warn("serving index unavailable", "error", err)
			resp.ServingError = "index not loaded"
		} else {
			info.Current = resp.LastPublished == nil || resp.LastPublished.Checksum == info.Checksum
			resp.Serving = &info
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
