// Package tokenizer provides word tokenisation for the index builder.
// Words are found with Unicode word-boundary rules (UAX #29) and every
// token is lower-cased so that build-time tokens match lower-cased query
// terms. Runs of CJK characters, which UAX #29 breaks into single
// characters, are emitted as each character plus every adjacent pair, so
// two-character words such as 天気 are searchable.
package tokenizer

import (
	"slices"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Tokenizer splits text into word tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Unicode is the default Tokenizer. It is stateless and safe for concurrent
// use.
type Unicode struct {
	words   analysis.Tokenizer
	lower   analysis.TokenFilter
	bigrams analysis.TokenFilter
}

// NewUnicode returns a Tokenizer backed by bleve's Unicode segmenter,
// lower-case filter and CJK bigram filter.
func NewUnicode() *Unicode {
	return &Unicode{
		words:   unicode.NewUnicodeTokenizer(),
		lower:   lowercase.NewLowerCaseFilter(),
		bigrams: cjk.NewCJKBigramFilter(true),
	}
}

// Tokenize returns the lower-cased words of text in order. Whitespace and
// punctuation segments are dropped. A CJK run yields its characters and
// character pairs interleaved, so a token may repeat.
func (u *Unicode) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	stream := u.bigrams.Filter(u.lower.Filter(u.words.Tokenize([]byte(text))))
	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		tokens = append(tokens, string(tok.Term))
	}
	return tokens
}

// Set tokenizes every text and returns the distinct tokens in sorted order.
func Set(tok Tokenizer, texts ...string) []string {
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, word := range tok.Tokenize(text) {
			seen[word] = struct{}{}
		}
	}
	words := make([]string, 0, len(seen))
	for word := range seen {
		words = append(words, word)
	}
	slices.Sort(words)
	return words
}
