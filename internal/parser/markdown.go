package parser

import (
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Markup is dropped
// and each block becomes a paragraph; headings keep their text on a line
// of their own so heading labels survive into the stream.
type MarkdownParser struct{}

func (p *MarkdownParser) Extract(r io.Reader, filename string) (*Source, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out strings.Builder
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		joinBlocks(&out, blockText(n, src))
	}

	return &Source{Title: TitleFromFilename(filename), Text: out.String()}, nil
}

// blockText flattens a goldmark block. Nested blocks are joined with
// newlines; leaf blocks without inline children use their raw lines.
func blockText(n ast.Node, src []byte) string {
	if n.Kind() == ast.KindHTMLBlock {
		return ""
	}
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		var buf strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}

	var parts []string
	var inline strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() == ast.TypeBlock {
			if t := blockText(c, src); t != "" {
				parts = append(parts, t)
			}
			continue
		}
		inlineText(&inline, c, src)
	}
	if s := strings.TrimSpace(inline.String()); s != "" {
		parts = append([]string{s}, parts...)
	}
	return strings.Join(parts, "\n")
}

// inlineText writes the visible text of an inline node.
func inlineText(buf *strings.Builder, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.Text:
		buf.Write(node.Segment.Value(src))
		if node.HardLineBreak() || node.SoftLineBreak() {
			buf.WriteByte('\n')
		}
		return
	case *ast.String:
		buf.Write(node.Value)
		return
	case *ast.AutoLink:
		buf.Write(node.URL(src))
		return
	case *ast.RawHTML:
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		inlineText(buf, c, src)
	}
}
