// Package section splits a document's event stream into addressable
// sections, one per heading up to a configured depth.
package section

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/sanitize"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

const (
	DefaultMaxDepth     = 3
	BreadcrumbSeparator = " » "
)

// Section is one indexable unit of a document. Title and breadcrumb live on
// the locator.
type Section struct {
	Locator index.Locator
	Heading string
	Body    string
}

// FilterTexts returns the texts whose tokens make up the section's filter.
func (s Section) FilterTexts() []string {
	return []string{s.Heading, s.Body, s.Locator.Title, s.Locator.Title, s.Locator.Breadcrumb}
}

type Extractor struct {
	maxDepth  int
	sanitizer sanitize.Sanitizer
}

// NewExtractor returns an Extractor that starts a new section at every
// heading of level 1..maxDepth.
func NewExtractor(maxDepth int, sanitizer sanitize.Sanitizer) *Extractor {
	if maxDepth < 1 || maxDepth > 6 {
		maxDepth = DefaultMaxDepth
	}
	if sanitizer == nil {
		sanitizer = sanitize.NewStrict()
	}
	return &Extractor{maxDepth: maxDepth, sanitizer: sanitizer}
}

// Extract returns the sections of doc in document order. Drafts yield no
// sections; a non-draft document without a path is rejected with
// ErrMissingSourcePath.
func (x *Extractor) Extract(doc document.Document, events []document.Event) ([]Section, error) {
	if doc.Draft {
		return nil, nil
	}
	if strings.TrimSpace(doc.Path) == "" {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrMissingSourcePath, doc.Title)
	}

	s := &state{
		title:     doc.Title,
		anchor:    AnchorBase(doc.Path),
		parents:   doc.ParentNames,
		footnotes: make(map[string]int),
		counts:    make(map[string]int),
		used:      make(map[string]struct{}),
	}
	for i := 0; i < len(events); i++ {
		ev := events[i]
		switch ev.Kind {
		case document.EventStart:
			switch {
			case ev.Tag.Kind == document.TagHeading && ev.Tag.Level <= x.maxDepth:
				if s.heading.Len() > 0 {
					s.finish()
				}
				s.inHeading = true
			case ev.Tag.Kind == document.TagFootnoteDefinition:
				s.footnote(ev.Tag.Name)
			default:
				s.space()
			}
		case document.EventEnd:
			if ev.Tag.Kind == document.TagHeading && ev.Tag.Level <= x.maxDepth {
				s.endHeading(ev.Tag.Level)
				continue
			}
			s.space()
		case document.EventRule, document.EventSoftBreak, document.EventHardBreak:
			s.space()
		case document.EventText, document.EventCode:
			s.active().WriteString(ev.Text)
		case document.EventHTML:
			var block strings.Builder
			block.WriteString(ev.Text)
			for i+1 < len(events) && events[i+1].Kind == document.EventHTML {
				i++
				block.WriteString(events[i].Text)
			}
			s.body.WriteString(x.sanitizer.Clean(block.String()))
		case document.EventFootnoteReference:
			fmt.Fprintf(&s.body, " [%d] ", s.footnote(ev.Text))
		}
	}
	if s.heading.Len() > 0 {
		s.finish()
	}
	return s.sections, nil
}

// AnchorBase maps a source path to the page the section anchors live on.
func AnchorBase(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimLeft(p, "/")
	return strings.TrimSuffix(p, path.Ext(p)) + ".html"
}

type crumb struct {
	level int
	text  string
}

type state struct {
	title   string
	anchor  string
	parents []string

	inHeading  bool
	heading    strings.Builder
	body       strings.Builder
	id         string
	hasID      bool
	breadcrumb string
	stack      []crumb

	footnotes map[string]int
	counts    map[string]int
	used      map[string]struct{}
	sections  []Section
}

func (s *state) active() *strings.Builder {
	if s.inHeading {
		return &s.heading
	}
	return &s.body
}

func (s *state) space() {
	s.active().WriteByte(' ')
}

func (s *state) footnote(name string) int {
	if n, ok := s.footnotes[name]; ok {
		return n
	}
	n := len(s.footnotes) + 1
	s.footnotes[name] = n
	return n
}

func (s *state) endHeading(level int) {
	s.inHeading = false
	text := collapseWhitespace(s.heading.String())

	s.id, s.hasID = s.uniqueID(Slug(text)), true

	for len(s.stack) > 0 && s.stack[len(s.stack)-1].level >= level {
		s.stack = s.stack[:len(s.stack)-1]
	}
	parts := make([]string, 0, len(s.parents)+len(s.stack))
	parts = append(parts, s.parents...)
	for _, c := range s.stack {
		parts = append(parts, c.text)
	}
	s.breadcrumb = strings.Join(parts, BreadcrumbSeparator)
	s.stack = append(s.stack, crumb{level: level, text: text})
}

// uniqueID suffixes repeated ids with -1, -2, ... in order of appearance.
func (s *state) uniqueID(base string) string {
	id := base
	for n := s.counts[base]; ; n++ {
		if n > 0 {
			id = base + "-" + strconv.Itoa(n)
		}
		if _, taken := s.used[id]; !taken {
			s.counts[base] = n + 1
			s.used[id] = struct{}{}
			return id
		}
	}
}

func (s *state) finish() {
	url := s.anchor
	if s.hasID {
		url += "#" + s.id
	}
	s.sections = append(s.sections, Section{
		Locator: index.Locator{
			Title:      s.title,
			URL:        collapseWhitespace(url),
			Breadcrumb: s.breadcrumb,
		},
		Heading: s.heading.String(),
		Body:    s.body.String(),
	})
	s.heading.Reset()
	s.body.Reset()
	s.id, s.hasID = "", false
	s.breadcrumb = ""
}
