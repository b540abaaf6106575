package render

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// classifyTags styles a paragraph written with b/strong, i/em and h1-h6
// tags. Other tags are dropped and their text kept as plain.
func classifyTags(p string) Paragraph {
	var para Paragraph
	var line []Span
	var bold, italic int

	emit := func(text string) {
		parts := strings.Split(text, "\n")
		for i, part := range parts {
			if i > 0 {
				para.Lines = append(para.Lines, line)
				line = nil
			}
			if part == "" {
				continue
			}
			span := Span{Text: part, Style: Plain}
			switch {
			case para.Heading > 0 && bold == 0 && italic == 0:
				span.Style, span.Level = Heading, para.Heading
			case bold > 0:
				span.Style = Bold
			case italic > 0:
				span.Style = Italic
			}
			line = append(line, span)
		}
	}

	z := html.NewTokenizer(strings.NewReader(p))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				emit(string(z.Raw()))
			}
			break
		}
		tok := z.Token()
		switch tt {
		case html.TextToken:
			emit(tok.Data)
		case html.StartTagToken:
			bold, italic = adjustDepth(tok.Data, bold, italic, 1)
			if lvl := headingTag(tok.Data); lvl > 0 {
				para.Heading = lvl
			}
			if tok.Data == "br" {
				emit("\n")
			}
		case html.EndTagToken:
			bold, italic = adjustDepth(tok.Data, bold, italic, -1)
		case html.SelfClosingTagToken:
			if tok.Data == "br" {
				emit("\n")
			}
		}
	}
	if len(line) > 0 {
		para.Lines = append(para.Lines, line)
	}
	para.Lines = dropEmptyLines(para.Lines)
	if len(para.Lines) == 0 {
		para.Heading = 0
	}
	return para
}

func adjustDepth(tag string, bold, italic, delta int) (int, int) {
	switch tag {
	case "b", "strong":
		bold = max(0, bold+delta)
	case "i", "em":
		italic = max(0, italic+delta)
	}
	return bold, italic
}

func headingTag(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func dropEmptyLines(lines [][]Span) [][]Span {
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(lineText(l)) != "" {
			out = append(out, l)
		}
	}
	return out
}

func lineText(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}
