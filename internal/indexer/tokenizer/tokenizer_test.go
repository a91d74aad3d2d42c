package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeLowercasesAndDropsPunctuation(t *testing.T) {
	tok := NewUnicode()

	got := tok.Tokenize("Rust Guide: Install, then RUN `cargo build`!")

	assert.Equal(t, []string{"rust", "guide", "install", "then", "run", "cargo", "build"}, got)
}

func TestTokenizeKeepsNumbersAndShortWords(t *testing.T) {
	tok := NewUnicode()

	got := tok.Tokenize("C and Go 1.25")

	assert.Contains(t, got, "c")
	assert.Contains(t, got, "go")
	assert.Contains(t, got, "and")
}

func TestTokenizeJapaneseWords(t *testing.T) {
	tok := NewUnicode()

	got := tok.Tokenize("今日はいい天気だ")

	assert.Subset(t, got, []string{"今日", "は", "いい", "天気", "だ"})
	for _, word := range got {
		assert.NotContains(t, word, " ")
	}
}

func TestTokenizeCJKRunsDoNotJoinAcrossSpaces(t *testing.T) {
	tok := NewUnicode()

	got := tok.Tokenize("天気 予報 Rust")

	assert.Subset(t, got, []string{"天気", "予報", "天", "報", "rust"})
	assert.NotContains(t, got, "気予")
}

func TestTokenizeChinese(t *testing.T) {
	got := Set(NewUnicode(), "搜索引擎")

	assert.Subset(t, got, []string{"搜索", "引擎"})
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, NewUnicode().Tokenize(""))
	assert.Empty(t, NewUnicode().Tokenize("  ... !! "))
}

func TestSetDeduplicatesAcrossTexts(t *testing.T) {
	got := Set(NewUnicode(), "Search search", "SEARCH index", "")

	assert.Equal(t, []string{"index", "search"}, got)
}
