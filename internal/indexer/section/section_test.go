package section

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/sanitize"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

func extract(t *testing.T, depth int, doc document.Document, md string) []Section {
	t.Helper()
	x := NewExtractor(depth, sanitize.NewStrict())
	sections, err := x.Extract(doc, document.NewMarkdown().Events([]byte(md)))
	require.NoError(t, err)
	return sections
}

func locators(sections []Section) []index.Locator {
	out := make([]index.Locator, len(sections))
	for i, s := range sections {
		out[i] = s.Locator
	}
	return out
}

func TestExtractSplitsAtHeadings(t *testing.T) {
	doc := document.Document{Title: "Intro", Path: "intro.md"}
	sections := extract(t, 3, doc, "# Intro\n\nWelcome\n\n## Setup\n\nRun cargo install\n")

	require.Len(t, sections, 2)
	assert.Equal(t, []index.Locator{
		{Title: "Intro", URL: "intro.html#intro", Breadcrumb: ""},
		{Title: "Intro", URL: "intro.html#setup", Breadcrumb: "Intro"},
	}, locators(sections))
	assert.Contains(t, sections[0].Body, "Welcome")
	assert.NotContains(t, sections[0].Body, "cargo")
	assert.Contains(t, sections[1].Body, "Run cargo install")
	assert.Equal(t, "Setup", sections[1].Heading)
}

func TestExtractDeepHeadingsStayInBody(t *testing.T) {
	doc := document.Document{Title: "Ref", Path: "ref.md"}
	sections := extract(t, 1, doc, "# Top\n\ntext\n\n## Nested\n\nmore\n")

	require.Len(t, sections, 1)
	assert.Equal(t, "ref.html#top", sections[0].Locator.URL)
	assert.Contains(t, sections[0].Body, "Nested")
	assert.Contains(t, sections[0].Body, "more")
}

func TestExtractCarriesPreambleIntoFirstSection(t *testing.T) {
	doc := document.Document{Title: "Ch", Path: "ch.md"}
	sections := extract(t, 3, doc, "preamble words\n\n# First\n\nbody\n")

	require.Len(t, sections, 1)
	assert.Contains(t, sections[0].Body, "preamble")
	assert.Contains(t, sections[0].Body, "body")
}

func TestExtractWithoutHeadings(t *testing.T) {
	doc := document.Document{Title: "Flat", Path: "flat.md"}
	assert.Empty(t, extract(t, 3, doc, "just a paragraph\n"))
}

func TestExtractSkipsDrafts(t *testing.T) {
	x := NewExtractor(3, nil)
	sections, err := x.Extract(document.Document{Title: "Draft", Draft: true}, []document.Event{
		document.Start(document.Heading(1)), document.Text("Hidden"), document.End(document.Heading(1)),
	})
	require.NoError(t, err)
	assert.Empty(t, sections)
}

func TestExtractRequiresPath(t *testing.T) {
	x := NewExtractor(3, nil)
	_, err := x.Extract(document.Document{Title: "No path"}, nil)
	assert.True(t, errors.Is(err, apperrors.ErrMissingSourcePath))
}

func TestExtractDuplicateHeadingsGetUniqueIDs(t *testing.T) {
	doc := document.Document{Title: "FAQ", Path: "faq.md"}
	sections := extract(t, 3, doc, "## Usage\n\na\n\n## Usage\n\nb\n\n## Usage-1\n\nc\n")

	require.Len(t, sections, 3)
	assert.Equal(t, "faq.html#usage", sections[0].Locator.URL)
	assert.Equal(t, "faq.html#usage-1", sections[1].Locator.URL)
	assert.Equal(t, "faq.html#usage-1-1", sections[2].Locator.URL)
}

func TestExtractBreadcrumbs(t *testing.T) {
	doc := document.Document{Title: "Install", Path: "guide/install.md", ParentNames: []string{"Guide"}}
	sections := extract(t, 3, doc, "# Install\n\n## Linux\n\n### Debian\n\n## Mac\n\n# Other\n")

	got := make([]string, len(sections))
	for i, s := range sections {
		got[i] = s.Locator.Breadcrumb
	}
	assert.Equal(t, []string{
		"Guide",
		"Guide » Install",
		"Guide » Install » Linux",
		"Guide » Install",
		"Guide",
	}, got)
	assert.Equal(t, "guide/install.html#debian", sections[2].Locator.URL)
}

func TestExtractFootnoteNumbers(t *testing.T) {
	x := NewExtractor(3, nil)
	events := []document.Event{
		document.Start(document.Heading(1)), document.Text("Notes"), document.End(document.Heading(1)),
		document.Text("first"), document.FootnoteReference("a"),
		document.Text("second"), document.FootnoteReference("b"),
		document.Text("again"), document.FootnoteReference("a"),
		document.Start(document.FootnoteDefinition("c")), document.Text("def"), document.End(document.FootnoteDefinition("c")),
		document.FootnoteReference("c"),
	}
	sections, err := x.Extract(document.Document{Title: "N", Path: "n.md"}, events)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "first [1] second [2] again [1] def  [3] ", sections[0].Body)
}

func TestExtractFootnoteDefinitionBelongsToItsSection(t *testing.T) {
	doc := document.Document{Title: "Notes", Path: "notes.md"}
	md := "# Alpha\n\nClaim[^src].\n\n[^src]: Primary source.\n\n# Beta\n\nUnrelated.\n"
	sections := extract(t, 3, doc, md)

	require.Len(t, sections, 2)
	assert.Contains(t, sections[0].Body, "Primary source.")
	assert.Contains(t, sections[0].Body, "[1]")
	assert.NotContains(t, sections[1].Body, "Primary")
}

func TestExtractCoalescesAndSanitizesHTML(t *testing.T) {
	x := NewExtractor(3, sanitize.NewStrict())
	events := []document.Event{
		document.Start(document.Heading(2)), document.Text("Widgets"), document.End(document.Heading(2)),
		document.HTML("<div class=\"x\">"), document.HTML("inside <b>bold</b>"), document.HTML("</div>"),
		document.HTML("<script>var secret = 1</script>"),
	}
	sections, err := x.Extract(document.Document{Title: "W", Path: "w.md"}, events)
	require.NoError(t, err)
	require.Len(t, sections, 1)

	body := sections[0].Body
	assert.Contains(t, body, "inside bold")
	assert.NotContains(t, body, "<")
	assert.NotContains(t, body, "secret")
}

func TestExtractSeparatesWordsAcrossElements(t *testing.T) {
	doc := document.Document{Title: "T", Path: "t.md"}
	sections := extract(t, 3, doc, "# Head\n\n- alpha\n- beta\n\nend*em*\n")

	require.Len(t, sections, 1)
	fields := strings.Fields(sections[0].Body)
	assert.Contains(t, fields, "alpha")
	assert.Contains(t, fields, "beta")
	assert.Contains(t, fields, "em")
}

func TestFilterTextsIncludesLocatorFields(t *testing.T) {
	s := Section{
		Locator: index.Locator{Title: "Book", Breadcrumb: "Part » Chapter"},
		Heading: "Head",
		Body:    "Body",
	}
	assert.Equal(t, []string{"Head", "Body", "Book", "Book", "Part » Chapter"}, s.FilterTexts())
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Hello World":             "hello-world",
		"  ## Getting Started ":   "getting-started",
		"C++ & Rust":              "c--rust",
		"<code>fn</code> main":    "fn-main",
		"Über Café":               "Über-café",
		"snake_case and-dash 42!": "snake_case-and-dash-42",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestAnchorBase(t *testing.T) {
	assert.Equal(t, "guide/intro.html", AnchorBase("guide/intro.md"))
	assert.Equal(t, "dir/file.html", AnchorBase(`dir\file.md`))
	assert.Equal(t, "README.html", AnchorBase("/README"))
}
