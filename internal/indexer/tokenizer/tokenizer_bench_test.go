package tokenizer

import (
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `A static search index is built once when the book is rendered and
        shipped next to the pages. Every section gets its own probabilistic filter
        holding the words it contains, so answering a query means asking each filter
        whether it has seen the query terms. Sections are ranked by how many terms
        they contain; no server is needed.`,
	"long": strings.Repeat(`Unicode word segmentation splits text on the boundaries defined by
        UAX #29, which handles punctuation, numbers such as 3.14 and apostrophes in
        words like don't. Tokens are lower-cased before they are inserted into the
        section filter, and the same lower-casing is applied to query terms. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	tok := NewUnicode()
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for b.Loop() {
				_ = tok.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	tok := NewUnicode()
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tok.Tokenize(text)
		}
	})
}

func BenchmarkSet(b *testing.B) {
	tok := NewUnicode()
	text := sampleTexts["long"]
	b.ReportAllocs()
	for b.Loop() {
		_ = Set(tok, text, "Title", "Breadcrumb")
	}
}
