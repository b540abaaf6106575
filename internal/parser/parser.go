package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrEmptySource means extraction succeeded but produced no text.
var ErrEmptySource = errors.New("source contains no text")

// Source is the flat text stream extracted from one document.
type Source struct {
	Title string // From document metadata, else the file name stem
	Text  string // Concatenated text; headings kept as their own lines
}

// Extractor converts raw document bytes into a text stream.
type Extractor interface {
	Extract(r io.Reader, filename string) (*Source, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tune extractor behavior.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string, opts Options) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ExtractFile picks an extractor by name and runs it.
func ExtractFile(r io.Reader, filename string, opts Options) (*Source, error) {
	ex, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	src, err := ex.Extract(r, filename)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(src.Text) == "" {
		return nil, ErrEmptySource
	}
	return src, nil
}

// TitleFromFilename strips directory and extension.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// joinBlocks appends block to buf with a blank-line separator.
func joinBlocks(buf *strings.Builder, block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	if buf.Len() > 0 {
		buf.WriteString("\n\n")
	}
	buf.WriteString(block)
}
