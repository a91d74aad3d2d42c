// Package document defines the documents fed to the index builder and the
// block-level event stream each document is rendered into.
package document

import "fmt"

// Document describes one source document (a chapter). Draft documents have
// no content and are never indexed.
type Document struct {
	Title       string   `json:"title"`
	Path        string   `json:"path"`
	ParentNames []string `json:"parent_names,omitempty"`
	Draft       bool     `json:"draft,omitempty"`
}

type EventKind uint8

const (
	EventStart EventKind = iota + 1
	EventEnd
	EventText
	EventCode
	EventHTML
	EventFootnoteReference
	EventRule
	EventSoftBreak
	EventHardBreak
	EventTaskListMarker
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventText:
		return "text"
	case EventCode:
		return "code"
	case EventHTML:
		return "html"
	case EventFootnoteReference:
		return "footnote_ref"
	case EventRule:
		return "rule"
	case EventSoftBreak:
		return "soft_break"
	case EventHardBreak:
		return "hard_break"
	case EventTaskListMarker:
		return "task_list_marker"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

type TagKind uint8

const (
	TagOther TagKind = iota
	TagParagraph
	TagHeading
	TagBlockQuote
	TagCodeBlock
	TagList
	TagItem
	TagFootnoteDefinition
	TagTable
	TagTableRow
	TagTableCell
	TagEmphasis
	TagStrong
	TagStrikethrough
	TagLink
	TagImage
)

// Tag identifies the element a Start or End event opens or closes. Level is
// set for headings and Name for footnote definitions.
type Tag struct {
	Kind  TagKind
	Level int
	Name  string
}

func Heading(level int) Tag {
	return Tag{Kind: TagHeading, Level: level}
}

func FootnoteDefinition(name string) Tag {
	return Tag{Kind: TagFootnoteDefinition, Name: name}
}

// Event is one item of a document's rendered stream. Text carries the
// payload of Text, Code, HTML and FootnoteReference events.
type Event struct {
	Kind    EventKind
	Tag     Tag
	Text    string
	Checked bool
}

func Start(tag Tag) Event {
	return Event{Kind: EventStart, Tag: tag}
}

func End(tag Tag) Event {
	return Event{Kind: EventEnd, Tag: tag}
}

func Text(s string) Event {
	return Event{Kind: EventText, Text: s}
}

func Code(s string) Event {
	return Event{Kind: EventCode, Text: s}
}

func HTML(s string) Event {
	return Event{Kind: EventHTML, Text: s}
}

func FootnoteReference(name string) Event {
	return Event{Kind: EventFootnoteReference, Text: name}
}

func Rule() Event {
	return Event{Kind: EventRule}
}

func SoftBreak() Event {
	return Event{Kind: EventSoftBreak}
}

func HardBreak() Event {
	return Event{Kind: EventHardBreak}
}

func TaskListMarker(checked bool) Event {
	return Event{Kind: EventTaskListMarker, Checked: checked}
}
