// Package parser turns a free-text query into the terms the ranker probes
// section filters with.
package parser

import (
	"strings"
)

type QueryPlan struct {
	Terms    []string
	RawQuery string
}

// Parse lower-cases the query and splits it on Unicode whitespace. Term
// order and duplicates are kept: a repeated term counts once per
// occurrence when ranking.
func Parse(query string) *QueryPlan {
	return &QueryPlan{
		Terms:    strings.Fields(strings.ToLower(query)),
		RawQuery: query,
	}
}

// Empty reports whether the plan has nothing to match.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}
