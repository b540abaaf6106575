package render

import (
	"fmt"
	"strings"
)

// Style is the inline style of a span.
type Style int

const (
	Plain Style = iota
	Bold
	Italic
	Heading
)

func (s Style) String() string {
	switch s {
	case Plain:
		return "plain"
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case Heading:
		return "heading"
	}
	return "unknown"
}

// Span is a run of text in one style. Level is set for Heading spans.
type Span struct {
	Text  string
	Style Style
	Level int
}

// Paragraph is one body block. Heading is the heading level when the
// whole paragraph is a heading, else 0.
type Paragraph struct {
	Heading int
	Lines   [][]Span
}

// Markup names how adapted text encodes emphasis.
type Markup string

const (
	MarkupHeuristic Markup = "heuristic"
	MarkupTags      Markup = "tags"
	MarkupMarkdown  Markup = "markdown"
)

// ParseMarkup validates a markup mode name. Empty means heuristic.
func ParseMarkup(s string) (Markup, error) {
	switch m := Markup(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MarkupHeuristic, nil
	case MarkupHeuristic, MarkupTags, MarkupMarkdown:
		return m, nil
	}
	return "", fmt.Errorf("unknown markup mode: %q", s)
}

// Classify splits text into paragraphs and styles each span.
func Classify(m Markup, text string) []Paragraph {
	paras := splitParagraphs(text)
	out := make([]Paragraph, 0, len(paras))
	for _, p := range paras {
		var para Paragraph
		switch m {
		case MarkupTags:
			para = classifyTags(p)
		case MarkupMarkdown:
			para = classifyMarkdown(p)
		default:
			para = classifyHeuristic(p)
		}
		if len(para.Lines) > 0 {
			out = append(out, para)
		}
	}
	return out
}

// splitParagraphs splits on blank lines and drops empty blocks.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, "\n"))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimRight(line, " \t"))
	}
	flush()
	return out
}

// ClassifyLine applies the line heuristics in priority order: a line
// wrapped in "**" is bold with the markers stripped, a line ending in "?"
// is italic, anything else is plain.
func ClassifyLine(line string) Span {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) > 4 && strings.HasPrefix(trimmed, "**") && strings.HasSuffix(trimmed, "**") {
		return Span{Text: strings.Trim(trimmed, "*"), Style: Bold}
	}
	if strings.HasSuffix(trimmed, "?") {
		return Span{Text: line, Style: Italic}
	}
	return Span{Text: line, Style: Plain}
}

func classifyHeuristic(p string) Paragraph {
	var para Paragraph
	for _, line := range strings.Split(p, "\n") {
		para.Lines = append(para.Lines, []Span{ClassifyLine(line)})
	}
	return para
}
