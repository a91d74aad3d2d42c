package index

import (
	"errors"
	"fmt"
	"iter"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/filter"
)

var ErrDuplicateLocator = errors.New("duplicate locator")

// Locator is the externally visible result of a search: where a section
// lives and how to label it.
type Locator struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Breadcrumb string `json:"breadcrumb"`
}

// Entry pairs a section's locator with the filter of its tokens.
type Entry struct {
	Locator Locator
	Filter  filter.Filter
}

// Index is an ordered, read-only list of entries. It holds no locks and no
// lazily built state, so one Index can serve any number of concurrent
// queries.
type Index struct {
	entries []Entry
	kind    filter.Kind
}

func (i *Index) Len() int {
	return len(i.entries)
}

func (i *Index) At(n int) Entry {
	return i.entries[n]
}

// Entries returns a copy of the entry list.
func (i *Index) Entries() []Entry {
	out := make([]Entry, len(i.entries))
	copy(out, i.entries)
	return out
}

// All iterates entries in build order.
func (i *Index) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for n, e := range i.entries {
			if !yield(n, e) {
				return
			}
		}
	}
}

func (i *Index) FilterKind() filter.Kind {
	return i.kind
}

func (i *Index) Locators() []Locator {
	out := make([]Locator, len(i.entries))
	for n, e := range i.entries {
		out[n] = e.Locator
	}
	return out
}

// Builder assembles an Index one entry at a time. It is not safe for
// concurrent use.
type Builder struct {
	kind    filter.Kind
	entries []Entry
	urls    map[string]struct{}
	done    bool
}

func NewBuilder(kind filter.Kind) *Builder {
	return &Builder{
		kind: kind,
		urls: make(map[string]struct{}),
	}
}

// Add appends an entry. Locator URLs must be unique and every filter must be
// of the builder's kind.
func (b *Builder) Add(loc Locator, f filter.Filter) error {
	if b.done {
		return errors.New("index builder already finalized")
	}
	if f == nil {
		return fmt.Errorf("nil filter for %q", loc.URL)
	}
	if f.Kind() != b.kind {
		return fmt.Errorf("filter kind %s does not match index kind %s", f.Kind(), b.kind)
	}
	if _, exists := b.urls[loc.URL]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateLocator, loc.URL)
	}
	b.urls[loc.URL] = struct{}{}
	b.entries = append(b.entries, Entry{Locator: loc, Filter: f})
	return nil
}

func (b *Builder) Len() int {
	return len(b.entries)
}

// Finalize returns the built Index. The builder cannot be used afterwards.
func (b *Builder) Finalize() *Index {
	b.done = true
	idx := &Index{entries: b.entries, kind: b.kind}
	b.entries = nil
	b.urls = nil
	return idx
}
