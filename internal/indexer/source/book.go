package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/document"
)

// Book reads a book laid out as a SUMMARY.md table of contents plus the
// chapter files it links to. Nested lists in the summary give each chapter
// its parent chapter names; a link with an empty target is a draft.
type Book struct {
	fsys    fs.FS
	summary string
	workers int
	logger  *slog.Logger
}

func NewBook(fsys fs.FS, summary string, workers int) *Book {
	if summary == "" {
		summary = "SUMMARY.md"
	}
	if workers <= 0 {
		workers = 4
	}
	return &Book{
		fsys:    fsys,
		summary: summary,
		workers: workers,
		logger:  slog.Default().With("component", "book-source"),
	}
}

// Items parses the summary and reads every non-draft chapter concurrently.
// The result keeps summary order.
func (b *Book) Items(ctx context.Context) ([]Item, error) {
	src, err := fs.ReadFile(b.fsys, b.summary)
	if err != nil {
		return nil, fmt.Errorf("reading summary %s: %w", b.summary, err)
	}
	docs := ParseSummary(src)
	b.logger.Debug("summary parsed", "chapters", len(docs))

	items := make([]Item, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, doc := range docs {
		items[i].Document = doc
		if doc.Draft {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := fs.ReadFile(b.fsys, doc.Path)
			if err != nil {
				return fmt.Errorf("reading chapter %q (%s): %w", doc.Title, doc.Path, err)
			}
			items[i].Content = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// ParseSummary returns the chapters linked from a SUMMARY.md in reading
// order. Part headings and separators are ignored.
func ParseSummary(src []byte) []document.Document {
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	var docs []document.Document
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.List:
			docs = appendList(docs, node, src, nil)
		case *ast.Paragraph:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if link, ok := c.(*ast.Link); ok {
					docs = append(docs, chapter(link, src, nil))
				}
			}
		}
	}
	return docs
}

func appendList(docs []document.Document, list *ast.List, src []byte, parents []string) []document.Document {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var title string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				if link := firstLink(node); link != nil {
					doc := chapter(link, src, parents)
					title = doc.Title
					docs = append(docs, doc)
				}
			case *ast.List:
				nested := parents
				if title != "" {
					nested = append(append([]string(nil), parents...), title)
				}
				docs = appendList(docs, node, src, nested)
			}
		}
	}
	return docs
}

func firstLink(n ast.Node) *ast.Link {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if link, ok := c.(*ast.Link); ok {
			return link
		}
	}
	return nil
}

func chapter(link *ast.Link, src []byte, parents []string) document.Document {
	var title strings.Builder
	_ = ast.Walk(link, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			title.Write(t.Segment.Value(src))
		}
		return ast.WalkContinue, nil
	})
	doc := document.Document{
		Title:       strings.TrimSpace(title.String()),
		ParentNames: parents,
	}
	dest := string(link.Destination)
	if i := strings.IndexByte(dest, '#'); i >= 0 {
		dest = dest[:i]
	}
	if dest == "" {
		doc.Draft = true
		return doc
	}
	if unescaped, err := url.PathUnescape(dest); err == nil {
		dest = unescaped
	}
	doc.Path = strings.TrimPrefix(path.Clean("/"+dest), "/")
	return doc
}
