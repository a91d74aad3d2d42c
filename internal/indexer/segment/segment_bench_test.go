package segment

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/filter"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/tokenizer"
)

func benchIndex(b *testing.B, sections int) *index.Index {
	b.Helper()
	fb := filter.NewBuilder(tokenizer.NewUnicode(), filter.Options{Kind: filter.KindCuckoo})
	ib := index.NewBuilder(filter.KindCuckoo)
	for i := range sections {
		tokens := make([]string, 60)
		for j := range tokens {
			tokens[j] = fmt.Sprintf("word%d", (i*13+j)%2000)
		}
		f, err := fb.FromTokens(tokens)
		if err != nil {
			b.Fatal(err)
		}
		loc := index.Locator{Title: fmt.Sprintf("Chapter %d", i/5), URL: fmt.Sprintf("ch%d.html#s%d", i/5, i)}
		if err := ib.Add(loc, f); err != nil {
			b.Fatal(err)
		}
	}
	return ib.Finalize()
}

func BenchmarkEncode(b *testing.B) {
	idx := benchIndex(b, 1000)
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		b.Run(c.String(), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := Encode(idx, Options{Compression: c}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	idx := benchIndex(b, 1000)
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		data, err := Encode(idx, Options{Compression: c})
		if err != nil {
			b.Fatal(err)
		}
		b.Run(c.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			for b.Loop() {
				if _, err := Decode(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
