package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/filter"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

// A tiny false positive rate keeps the ordering assertions exact.
var exact = filter.Options{Kind: filter.KindBloom, FalsePositiveRate: 1e-6}

func tokenIndex(t testing.TB, sections map[index.Locator][]string, order []index.Locator) *index.Index {
	t.Helper()
	fb := filter.NewBuilder(tokenizer.NewUnicode(), exact)
	b := index.NewBuilder(fb.Kind())
	for _, loc := range order {
		f, err := fb.FromTokens(sections[loc])
		require.NoError(t, err)
		require.NoError(t, b.Add(loc, f))
	}
	return b.Finalize()
}

func twoSections(t *testing.T) *index.Index {
	a := index.Locator{Title: "Intro", URL: "intro.html#top", Breadcrumb: ""}
	b := index.Locator{Title: "Search", URL: "search.html#top", Breadcrumb: "Intro"}
	return tokenIndex(t, map[index.Locator][]string{
		a: {"rust", "guide"},
		b: {"rust", "search"},
	}, []index.Locator{a, b})
}

func bookIndex(t *testing.T, opts filter.Options) *index.Index {
	t.Helper()
	b := indexer.NewBuilder(indexer.Options{HeadingSplitLevel: 2, Filter: opts})
	idx, err := b.BuildIndex(context.Background(), []source.Item{
		{
			Document: document.Document{Title: "Intro", Path: "intro.md"},
			Content:  []byte("# Intro\n\nThis is the Rust Guide.\n\n## Setup\n\nRun cargo install to get started.\n"),
		},
		{
			Document: document.Document{Title: "Reference", Path: "reference.md"},
			Content:  []byte("# Commands\n\nEvery cargo command.\n\n## Install\n\nDetails of install.\n"),
		},
	})
	require.NoError(t, err)
	return idx
}

func urls(locs []index.Locator) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.URL
	}
	return out
}

func TestSearchTwoSections(t *testing.T) {
	e := New(twoSections(t))

	assert.Equal(t, []string{"intro.html#top", "search.html#top"}, urls(e.Search("rust", 10)))
	assert.Equal(t, []string{"search.html#top", "intro.html#top"}, urls(e.Search("rust search", 10)))
	assert.Empty(t, e.Search("xyz", 10))

	got := e.Search("search", 10)
	require.Len(t, got, 1)
	assert.Equal(t, index.Locator{Title: "Search", URL: "search.html#top", Breadcrumb: "Intro"}, got[0])
}

func TestSearchZeroResultsRequested(t *testing.T) {
	e := New(twoSections(t))
	for _, q := range []string{"rust", "rust search", "", "xyz"} {
		assert.Empty(t, e.Search(q, 0), q)
		assert.Empty(t, e.Search(q, -3), q)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	e := New(twoSections(t))
	assert.Empty(t, e.Search("", 10))
	assert.Empty(t, e.Search("   ", 10))
}

func TestSearchTruncationIsMonotonic(t *testing.T) {
	e := New(bookIndex(t, exact))
	full := e.Search("cargo install setup", 100)
	require.NotEmpty(t, full)
	for n := 1; n <= len(full)+2; n++ {
		assert.Equal(t, full[:min(n, len(full))], e.Search("cargo install setup", n), "n=%d", n)
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	for _, kind := range []filter.Kind{filter.KindCuckoo, filter.KindBloom} {
		t.Run(kind.String(), func(t *testing.T) {
			e := New(bookIndex(t, filter.Options{Kind: kind}))
			for _, q := range []string{"rust", "RUST", "Rust Guide"} {
				assert.Contains(t, urls(e.Search(q, 10)), "intro.html#intro", q)
			}
		})
	}
}

func TestSearchFindsCJKWords(t *testing.T) {
	b := indexer.NewBuilder(indexer.Options{HeadingSplitLevel: 2, Filter: exact})
	idx, err := b.BuildIndex(context.Background(), []source.Item{
		{
			Document: document.Document{Title: "日本語", Path: "ja.md"},
			Content:  []byte("# 天気\n\n今日はいい天気だ。\n\n## 検索\n\n全文検索の説明。\n"),
		},
	})
	require.NoError(t, err)
	e := New(idx)

	assert.Equal(t, []string{"ja.html#天気"}, urls(e.Search("今日", 5)))
	// the second section carries 天気 in its breadcrumb
	assert.Equal(t, []string{"ja.html#天気", "ja.html#検索"}, urls(e.Search("天気", 5)))
	assert.Equal(t, []string{"ja.html#検索"}, urls(e.Search("全文", 5)))
	assert.Empty(t, e.Search("雨", 5))
}

func TestSearchAfterRoundTrip(t *testing.T) {
	for _, kind := range []filter.Kind{filter.KindCuckoo, filter.KindBloom} {
		t.Run(kind.String(), func(t *testing.T) {
			idx := bookIndex(t, filter.Options{Kind: kind})
			data, err := segment.Encode(idx, segment.Options{Compression: segment.CompressionLZ4})
			require.NoError(t, err)

			loaded, err := Load(data)
			require.NoError(t, err)
			direct := New(idx)

			for _, q := range []string{"cargo", "install", "rust guide", "commands", "nothing"} {
				assert.Equal(t, direct.Search(q, 10), loaded.Search(q, 10), q)
			}
			// no false negatives after the round trip
			assert.Contains(t, urls(loaded.Search("setup", 10)), "intro.html#setup")

			info := loaded.Info()
			assert.Equal(t, idx.Len(), info.Entries)
			assert.Equal(t, kind.String(), info.FilterKind)
			assert.Equal(t, "lz4", info.Compression)
			assert.Equal(t, len(data), info.Bytes)
		})
	}
}

func TestExecuteReportsHitsAndTermStats(t *testing.T) {
	e := New(twoSections(t))
	res, err := e.Execute(context.Background(), parser.Parse("Rust search rust"), 1)
	require.NoError(t, err)

	assert.Equal(t, "Rust search rust", res.Query)
	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "search.html#top", res.Results[0].Locator.URL)
	assert.Equal(t, 3, res.Results[0].Score)
	assert.Equal(t, map[string]int{"rust": 2, "search": 1}, res.TermStats)
}

func TestExecuteEmptyAndCancelled(t *testing.T) {
	e := New(twoSections(t))
	res, err := e.Execute(context.Background(), parser.Parse(""), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalHits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Execute(ctx, parser.Parse("rust"), 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentSearches(t *testing.T) {
	e := New(bookIndex(t, filter.Options{}))
	want := e.Search("cargo install", 5)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := "cargo install"
			if i%2 == 1 {
				q = "CARGO  install"
			}
			assert.Equal(t, want, e.Search(q, 5))
		}()
	}
	wg.Wait()
}

func TestHolderLoadsOnce(t *testing.T) {
	data, err := segment.Encode(twoSections(t), segment.Options{})
	require.NoError(t, err)

	var loads atomic.Int32
	h := NewHolder(func() ([]byte, error) {
		loads.Add(1)
		return data, nil
	})

	var wg sync.WaitGroup
	engines := make([]*Engine, 16)
	for i := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := h.Engine()
			assert.NoError(t, err)
			engines[i] = e
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, e := range engines {
		assert.Same(t, engines[0], e)
	}
}

func TestHolderKeepsLoadError(t *testing.T) {
	var loads atomic.Int32
	h := NewHolder(func() ([]byte, error) {
		loads.Add(1)
		return nil, fmt.Errorf("fetching: %w", apperrors.ErrArtifactNotFound)
	})
	_, err1 := h.Engine()
	_, err2 := h.Engine()
	assert.True(t, errors.Is(err1, apperrors.ErrArtifactNotFound))
	assert.True(t, errors.Is(err1, apperrors.ErrIndexNotLoaded))
	assert.Equal(t, err1, err2)
	assert.Equal(t, int32(1), loads.Load())
}

func TestHolderRejectsCorruptArtifact(t *testing.T) {
	data, err := segment.Encode(twoSections(t), segment.Options{})
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff

	_, err = NewHolder(func() ([]byte, error) { return data, nil }).Engine()
	assert.True(t, errors.Is(err, apperrors.ErrCorruptIndex))
}
