package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles plain text files. Lines are kept as-is with
// runs of blank lines collapsed to one.
type TextParser struct{}

func (p *TextParser) Extract(r io.Reader, filename string) (*Source, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out strings.Builder
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			joinBlocks(&out, current.String())
			current.Reset()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	joinBlocks(&out, current.String())

	return &Source{Title: TitleFromFilename(filename), Text: out.String()}, nil
}
