package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Each non-empty paragraph becomes a block;
// a Title-styled paragraph names the document.
type DOCXParser struct{}

func (p *DOCXParser) Extract(r io.Reader, filename string) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	title := TitleFromFilename(filename)
	titled := false
	var out strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := DocxParagraphText(para)
		if text == "" {
			continue
		}
		if !titled && isTitleStyle(para) {
			title = text
			titled = true
		}
		joinBlocks(&out, text)
	}

	return &Source{Title: title, Text: out.String()}, nil
}

func isTitleStyle(para *docx.Paragraph) bool {
	if para.Properties == nil || para.Properties.Style == nil {
		return false
	}
	return strings.EqualFold(para.Properties.Style.Val, "Title")
}

// DocxHeadingLevel returns 1-6 for heading-styled paragraphs, else 0.
func DocxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") || len(style) != len("heading")+1 {
		return 0
	}
	lvl := int(style[len(style)-1] - '0')
	if lvl < 1 || lvl > 6 {
		return 0
	}
	return lvl
}

// DocxParagraphText concatenates the text runs of a paragraph.
func DocxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
