// Package ranker scores sections by how many query terms their filters
// report as present.
package ranker

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
)

type Match struct {
	Locator index.Locator `json:"locator"`
	Score   int           `json:"score"`
}

// Rank scores every entry against terms and returns at most limit matches.
// A term listed twice counts twice. Entries scoring zero are dropped. Ties
// keep index order, so results are deterministic for a given artifact.
func Rank(entries []index.Entry, terms []string, limit int) []Match {
	if limit <= 0 || len(terms) == 0 {
		return []Match{}
	}
	matches := make([]Match, 0)
	for _, e := range entries {
		score := Score(e, terms)
		if score == 0 {
			continue
		}
		matches = append(matches, Match{Locator: e.Locator, Score: score})
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return b.Score - a.Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func Score(e index.Entry, terms []string) int {
	score := 0
	for _, term := range terms {
		if e.Filter.Contains(term) {
			score++
		}
	}
	return score
}
