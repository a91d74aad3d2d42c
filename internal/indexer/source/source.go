// Package source loads the ordered documents an index is built from.
package source

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/document"
)

// Item is one document and its markdown content. Drafts have no content.
type Item struct {
	Document document.Document
	Content  []byte
}

// Source yields the corpus in book order.
type Source interface {
	Items(ctx context.Context) ([]Item, error)
}
