package render

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var mdParser = goldmark.New().Parser()

// classifyMarkdown styles a paragraph written in Markdown: emphasis level
// 1 is italic, level 2 bold, and an ATX heading makes the paragraph a
// heading.
func classifyMarkdown(p string) Paragraph {
	src := []byte(p)
	doc := mdParser.Parse(text.NewReader(src))

	var para Paragraph
	var line []Span
	flush := func() {
		if len(line) > 0 {
			para.Lines = append(para.Lines, line)
			line = nil
		}
	}

	var walk func(n ast.Node, style Style)
	walk = func(n ast.Node, style Style) {
		switch node := n.(type) {
		case *ast.Heading:
			para.Heading = node.Level
			style = Heading
		case *ast.Emphasis:
			if style != Bold {
				if node.Level >= 2 {
					style = Bold
				} else if style != Heading {
					style = Italic
				}
			}
		case *ast.Text:
			if t := string(node.Segment.Value(src)); t != "" {
				line = append(line, styledSpan(t, style, para.Heading))
			}
			if node.SoftLineBreak() || node.HardLineBreak() {
				flush()
			}
			return
		case *ast.String:
			line = append(line, styledSpan(string(node.Value), style, para.Heading))
			return
		case *ast.AutoLink:
			line = append(line, styledSpan(string(node.Label(src)), style, para.Heading))
			return
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				line = append(line, Span{Text: strings.TrimRight(string(seg.Value(src)), "\n"), Style: Plain})
				flush()
			}
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c, style)
		}
		if n.Type() == ast.TypeBlock {
			flush()
		}
	}
	walk(doc, Plain)
	flush()

	para.Lines = dropEmptyLines(para.Lines)
	return para
}

func styledSpan(t string, style Style, level int) Span {
	if style == Heading {
		return Span{Text: t, Style: Heading, Level: level}
	}
	return Span{Text: t, Style: style}
}
