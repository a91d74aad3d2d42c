package section

import (
	"strings"
	"unicode"
)

var markupResidue = strings.NewReplacer(
	"<em>", "", "</em>", "",
	"<code>", "", "</code>", "",
	"<strong>", "", "</strong>", "",
	"&lt;", "", "&gt;", "", "&amp;", "", "&#39;", "", "&quot;", "",
)

// Slug derives an anchor id from heading text the way the HTML renderer
// does: letters, digits, '_' and '-' are kept (ASCII lower-cased),
// whitespace becomes '-', everything else is dropped.
func Slug(heading string) string {
	s := markupResidue.Replace(heading)
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#")
	s = strings.TrimSpace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || r == '-':
			if r <= unicode.MaxASCII {
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('-')
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
