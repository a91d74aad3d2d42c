package document

import (
	"bytes"
	"cmp"
	"math"
	"slices"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Markdown renders CommonMark sources (with tables, strikethrough, task
// lists, autolinks and footnotes) into event streams.
type Markdown struct {
	md goldmark.Markdown
}

func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Footnote)),
	}
}

// Events parses src and returns its events in document order. Footnote
// definitions are emitted where they were written, named by the ordinal
// goldmark gives them.
func (m *Markdown) Events(src []byte) []Event {
	root := m.md.Parser().Parse(text.NewReader(src))
	w := &walker{src: src}
	for _, block := range inSourceOrder(root) {
		_ = ast.Walk(block, w.visit)
	}
	return w.events
}

// inSourceOrder returns the top-level blocks of root with each footnote
// definition moved from goldmark's trailing footnote list back in front of
// the first block written after it.
func inSourceOrder(root ast.Node) []ast.Node {
	var blocks, notes []ast.Node
	for c := root.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*extast.FootnoteList); ok {
			for fn := c.FirstChild(); fn != nil; fn = fn.NextSibling() {
				notes = append(notes, fn)
			}
			continue
		}
		blocks = append(blocks, c)
	}
	if len(notes) == 0 {
		return blocks
	}

	noteOffset := func(n ast.Node) int {
		if off := sourceOffset(n); off >= 0 {
			return off
		}
		return math.MaxInt
	}
	slices.SortStableFunc(notes, func(a, b ast.Node) int {
		return cmp.Compare(noteOffset(a), noteOffset(b))
	})

	out := make([]ast.Node, 0, len(blocks)+len(notes))
	for _, b := range blocks {
		if off := sourceOffset(b); off >= 0 {
			for len(notes) > 0 && noteOffset(notes[0]) < off {
				out = append(out, notes[0])
				notes = notes[1:]
			}
		}
		out = append(out, b)
	}
	return append(out, notes...)
}

// sourceOffset is the byte offset of the first source line under n, or -1
// when n holds no lines.
func sourceOffset(n ast.Node) int {
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return n.Lines().At(0).Start
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off := sourceOffset(c); off >= 0 {
			return off
		}
	}
	return -1
}

type walker struct {
	src    []byte
	events []Event
}

func (w *walker) emit(e ...Event) {
	w.events = append(w.events, e...)
}

// text emits s, extending the previous event when it is also text. goldmark
// splits one run of text into several nodes at delimiters and entities.
func (w *walker) text(s string) {
	if n := len(w.events); n > 0 && w.events[n-1].Kind == EventText {
		w.events[n-1].Text += s
		return
	}
	w.emit(Text(s))
}

func (w *walker) wrap(tag Tag, entering bool) (ast.WalkStatus, error) {
	if entering {
		w.emit(Start(tag))
	} else {
		w.emit(End(tag))
	}
	return ast.WalkContinue, nil
}

func (w *walker) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Document, *ast.TextBlock, *extast.FootnoteList:
		return ast.WalkContinue, nil
	case *extast.FootnoteBacklink:
		return ast.WalkSkipChildren, nil
	case *ast.Heading:
		return w.wrap(Heading(node.Level), entering)
	case *ast.Paragraph:
		return w.wrap(Tag{Kind: TagParagraph}, entering)
	case *ast.Blockquote:
		return w.wrap(Tag{Kind: TagBlockQuote}, entering)
	case *ast.List:
		return w.wrap(Tag{Kind: TagList}, entering)
	case *ast.ListItem:
		return w.wrap(Tag{Kind: TagItem}, entering)
	case *ast.Emphasis:
		if node.Level >= 2 {
			return w.wrap(Tag{Kind: TagStrong}, entering)
		}
		return w.wrap(Tag{Kind: TagEmphasis}, entering)
	case *ast.Link:
		return w.wrap(Tag{Kind: TagLink}, entering)
	case *ast.Image:
		return w.wrap(Tag{Kind: TagImage}, entering)
	case *extast.Strikethrough:
		return w.wrap(Tag{Kind: TagStrikethrough}, entering)
	case *extast.Table:
		return w.wrap(Tag{Kind: TagTable}, entering)
	case *extast.TableHeader, *extast.TableRow:
		return w.wrap(Tag{Kind: TagTableRow}, entering)
	case *extast.TableCell:
		return w.wrap(Tag{Kind: TagTableCell}, entering)
	case *extast.Footnote:
		return w.wrap(FootnoteDefinition(strconv.Itoa(node.Index)), entering)
	}

	if !entering {
		if _, leaf := leafNodes[n.Kind()]; !leaf {
			w.emit(End(Tag{Kind: TagOther}))
		}
		return ast.WalkContinue, nil
	}

	switch node := n.(type) {
	case *ast.Text:
		w.text(string(unescape(node.Segment.Value(w.src))))
		if node.HardLineBreak() {
			w.emit(HardBreak())
		} else if node.SoftLineBreak() {
			w.emit(SoftBreak())
		}
	case *ast.String:
		w.text(string(node.Value))
	case *ast.CodeSpan:
		var buf bytes.Buffer
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(w.src))
			}
		}
		w.emit(Code(buf.String()))
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		w.emit(Start(Tag{Kind: TagCodeBlock}), Text(w.lines(node.Lines())), End(Tag{Kind: TagCodeBlock}))
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock:
		w.emit(Start(Tag{Kind: TagCodeBlock}), Text(w.lines(node.Lines())), End(Tag{Kind: TagCodeBlock}))
		return ast.WalkSkipChildren, nil
	case *ast.HTMLBlock:
		html := w.lines(node.Lines())
		if node.HasClosure() {
			html += string(node.ClosureLine.Value(w.src))
		}
		w.emit(HTML(html))
		return ast.WalkSkipChildren, nil
	case *ast.RawHTML:
		w.emit(HTML(w.lines(node.Segments)))
		return ast.WalkSkipChildren, nil
	case *ast.AutoLink:
		w.emit(Start(Tag{Kind: TagLink}), Text(string(node.Label(w.src))), End(Tag{Kind: TagLink}))
		return ast.WalkSkipChildren, nil
	case *ast.ThematicBreak:
		w.emit(Rule())
	case *extast.TaskCheckBox:
		w.emit(TaskListMarker(node.IsChecked))
	case *extast.FootnoteLink:
		w.emit(FootnoteReference(strconv.Itoa(node.Index)))
	default:
		w.emit(Start(Tag{Kind: TagOther}))
	}
	return ast.WalkContinue, nil
}

// leafNodes emit their events on entry only.
var leafNodes = map[ast.NodeKind]struct{}{
	ast.KindText:            {},
	ast.KindString:          {},
	ast.KindCodeSpan:        {},
	ast.KindFencedCodeBlock: {},
	ast.KindCodeBlock:       {},
	ast.KindHTMLBlock:       {},
	ast.KindRawHTML:         {},
	ast.KindAutoLink:        {},
	ast.KindThematicBreak:   {},
	extast.KindTaskCheckBox: {},
	extast.KindFootnoteLink: {},
}

func (w *walker) lines(segs *text.Segments) string {
	var buf bytes.Buffer
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		buf.Write(seg.Value(w.src))
	}
	return buf.String()
}

func unescape(b []byte) []byte {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	return util.ResolveEntityNames(b)
}
