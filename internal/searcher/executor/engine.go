// Package executor runs queries against a loaded search index.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/ranker"
)

type SearchResult struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	Results   []ranker.Match `json:"results"`
	TermStats map[string]int `json:"term_stats"`
}

// ArtifactInfo describes the artifact an engine was loaded from.
type ArtifactInfo struct {
	Version     uint32 `json:"version"`
	FilterKind  string `json:"filter_kind"`
	Compression string `json:"compression"`
	Checksum    uint32 `json:"checksum"`
	Entries     int    `json:"entries"`
	Bytes       int    `json:"bytes"`
}

// Engine answers queries against one immutable index. It never mutates
// the index, so a single Engine serves concurrent queries without locks.
type Engine struct {
	entries []index.Entry
	info    ArtifactInfo
	logger  *slog.Logger
}

func New(idx *index.Index) *Engine {
	return &Engine{
		entries: idx.Entries(),
		info: ArtifactInfo{
			FilterKind: idx.FilterKind().String(),
			Entries:    idx.Len(),
		},
		logger: slog.Default().With("component", "query-engine"),
	}
}

// Load decodes a serialized index and returns an engine over it.
func Load(data []byte) (*Engine, error) {
	header, err := segment.Inspect(data)
	if err != nil {
		return nil, err
	}
	idx, err := segment.Decode(data)
	if err != nil {
		return nil, err
	}
	e := New(idx)
	e.info.Version = header.Version
	e.info.Compression = header.Compression.String()
	e.info.Checksum = header.Checksum
	e.info.Bytes = len(data)
	return e, nil
}

func (e *Engine) Info() ArtifactInfo {
	return e.info
}

// Locators lists every indexed section in build order.
func (e *Engine) Locators() []index.Locator {
	out := make([]index.Locator, len(e.entries))
	for i, entry := range e.entries {
		out[i] = entry.Locator
	}
	return out
}

// Search returns the locators of the best numResults sections for query,
// best first. An empty query or numResults <= 0 yields no results.
func (e *Engine) Search(query string, numResults int) []index.Locator {
	plan := parser.Parse(query)
	matches := ranker.Rank(e.entries, plan.Terms, numResults)
	out := make([]index.Locator, len(matches))
	for i, m := range matches {
		out[i] = m.Locator
	}
	return out
}

// Execute is Search with scores and per-term hit counts.
func (e *Engine) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query cancelled: %w", err)
	}
	result := &SearchResult{
		Query:     plan.RawQuery,
		Results:   []ranker.Match{},
		TermStats: map[string]int{},
	}
	if plan.Empty() {
		return result, nil
	}

	all := ranker.Rank(e.entries, plan.Terms, len(e.entries))
	result.TotalHits = len(all)
	if limit > 0 {
		result.Results = all[:min(limit, len(all))]
	}
	for _, term := range plan.Terms {
		if _, seen := result.TermStats[term]; seen {
			continue
		}
		hits := 0
		for _, entry := range e.entries {
			if entry.Filter.Contains(term) {
				hits++
			}
		}
		result.TermStats[term] = hits
	}

	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"total_hits", result.TotalHits,
		"results", len(result.Results),
	)
	return result, nil
}
