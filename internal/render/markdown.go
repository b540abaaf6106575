package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// MarkdownRenderer writes plain UTF-8 Markdown. Units at the top of the
// outline get "##", deeper ones "###"; body headings are demoted below them.
type MarkdownRenderer struct {
	opts Options
}

func (r *MarkdownRenderer) Render(w io.Writer, doc Document) error {
	bw := bufio.NewWriter(w)

	if r.opts.IncludeTitle && doc.Title != "" {
		fmt.Fprintf(bw, "# %s\n\n", doc.Title)
	}

	for i, b := range blocks(doc, r.opts) {
		if i > 0 {
			bw.WriteString("---\n\n")
		}
		level := 2
		if b.Depth > 1 {
			level = 3
		}
		fmt.Fprintf(bw, "%s %s\n\n", strings.Repeat("#", level), b.Path)

		for _, para := range b.Paragraphs {
			if para.Heading > 0 {
				fmt.Fprintf(bw, "%s %s\n\n", strings.Repeat("#", min(6, level+para.Heading)), plainText(para))
				continue
			}
			lines := make([]string, 0, len(para.Lines))
			for _, line := range para.Lines {
				lines = append(lines, markdownLine(line))
			}
			bw.WriteString(strings.Join(lines, "  \n"))
			bw.WriteString("\n\n")
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

func markdownLine(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		switch s.Style {
		case Bold:
			sb.WriteString("**" + s.Text + "**")
		case Italic:
			sb.WriteString("*" + s.Text + "*")
		default:
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

func plainText(p Paragraph) string {
	parts := make([]string, 0, len(p.Lines))
	for _, l := range p.Lines {
		parts = append(parts, lineText(l))
	}
	return strings.Join(parts, " ")
}
