// Package sanitize reduces embedded HTML to the plain text a reader sees.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

type Sanitizer interface {
	Clean(html string) string
}

// Strict drops every element and attribute, keeping only text content.
// Script and style bodies are removed entirely. Safe for concurrent use.
type Strict struct {
	policy *bluemonday.Policy
}

func NewStrict() *Strict {
	return &Strict{policy: bluemonday.StrictPolicy()}
}

func (s *Strict) Clean(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(fragment))
}
