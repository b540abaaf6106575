package render

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/docadapt/internal/doctree"
)

// DefaultPlaceholder stands in for the text of a failed unit.
const DefaultPlaceholder = "Error in adaptation"

// Format is an output document format.
type Format string

const (
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "md"
)

// ParseFormat validates a format name. Empty means docx.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case "":
		return FormatDOCX, nil
	case FormatDOCX, FormatPDF, FormatMarkdown:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown output format: %q", s)
}

// ContentType returns the MIME type for downloads.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// Document is the ordered set of unit outcomes to render.
type Document struct {
	Title   string
	Entries []doctree.Entry
}

// Options control how outcomes are turned into paragraphs.
type Options struct {
	Markup       Markup
	Placeholder  string
	IncludeTitle bool
}

func (o Options) withDefaults() Options {
	if o.Markup == "" {
		o.Markup = MarkupHeuristic
	}
	if o.Placeholder == "" {
		o.Placeholder = DefaultPlaceholder
	}
	return o
}

// Renderer writes a document in one format.
type Renderer interface {
	Render(w io.Writer, doc Document) error
}

// ForFormat returns the renderer for f.
func ForFormat(f Format, opts Options) (Renderer, error) {
	opts = opts.withDefaults()
	switch f {
	case FormatDOCX:
		return &DOCXRenderer{opts: opts}, nil
	case FormatPDF:
		return &PDFRenderer{opts: opts}, nil
	case FormatMarkdown:
		return &MarkdownRenderer{opts: opts}, nil
	}
	return nil, fmt.Errorf("unknown output format: %q", f)
}

// block is one unit ready for output: its heading and body paragraphs.
type block struct {
	Path       string
	Depth      int
	Paragraphs []Paragraph
}

// blocks maps every entry to exactly one block. Failed outcomes get the
// placeholder as a single plain paragraph.
func blocks(doc Document, opts Options) []block {
	out := make([]block, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		b := block{Path: e.Path, Depth: strings.Count(e.Path, doctree.PathSeparator) + 1}
		if e.Outcome.Failed {
			b.Paragraphs = []Paragraph{{Lines: [][]Span{{{Text: opts.Placeholder, Style: Plain}}}}}
		} else {
			b.Paragraphs = Classify(opts.Markup, e.Outcome.Text)
		}
		out = append(out, b)
	}
	return out
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify lowercases s and reduces it to [a-z0-9-], at most 50 bytes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// FileName builds the download name for a rendered document.
func FileName(title string, f Format) string {
	slug := Slugify(title)
	if slug == "" {
		slug = "adapted"
	}
	return slug + "." + string(f)
}
