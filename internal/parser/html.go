package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoContainer means the expected content region is missing.
var ErrNoContainer = errors.New("content container not found")

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Extract(r io.Reader, filename string) (*Source, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := TitleFromFilename(filename)
	if t := findTitle(doc); t != "" {
		title = t
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}

	var out strings.Builder
	collectBlocks(root, &out, false)
	return &Source{Title: title, Text: out.String()}, nil
}

// ExtractContent pulls the primary content region out of a fetched page:
// the first element whose class list contains containerClass. Paragraph
// text is joined with blank lines and heading elements are skipped.
func ExtractContent(r io.Reader, containerClass string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	container := findByClass(doc, containerClass)
	if container == nil {
		return "", ErrNoContainer
	}
	var out strings.Builder
	collectBlocks(container, &out, true)
	return out.String(), nil
}

// collectBlocks walks n and appends the text of each content block.
func collectBlocks(n *html.Node, out *strings.Builder, skipHeadings bool) {
	if n.Type == html.ElementNode {
		if headingLevel(n.Data) > 0 {
			if !skipHeadings {
				joinBlocks(out, textContent(n))
			}
			return
		}

		switch n.Data {
		case "script", "style", "nav", "footer", "header", "noscript":
			return
		case "p", "li", "td", "blockquote", "pre", "dd":
			joinBlocks(out, textContent(n))
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectBlocks(c, out, skipHeadings)
	}
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
