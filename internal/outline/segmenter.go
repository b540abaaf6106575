package outline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/docadapt/internal/doctree"
)

// ErrNoStructure means no chapter heading was found anywhere in the text.
var ErrNoStructure = errors.New("could not extract structure")

// Segmenter turns a flat text stream into a part/chapter/section outline.
type Segmenter struct {
	matcher *Matcher
}

func NewSegmenter(m *Matcher) *Segmenter {
	if m == nil {
		m = DefaultMatcher()
	}
	return &Segmenter{matcher: m}
}

// Segment builds the outline for text. Text before the first heading of a
// level is preamble and is dropped. A part with no chapters is kept as an
// empty branch; a text with no chapters at all is ErrNoStructure.
func (s *Segmenter) Segment(title, text string) (*doctree.Outline, error) {
	out := &doctree.Outline{Title: title}

	parts := s.matcher.Find(text, doctree.KindPart)
	if len(parts) == 0 {
		out.Children = s.chapters(text)
	} else {
		seen := make(map[string]int)
		for i, p := range parts {
			span := text[p.Offset:spanEnd(parts, i, len(text))]
			out.Children = append(out.Children, &doctree.Node{
				Kind:     doctree.KindPart,
				Title:    uniqueTitle(seen, headingTitle(p.Label)),
				Children: s.chapters(span),
			})
		}
	}

	if countChapters(out.Children) == 0 {
		return nil, ErrNoStructure
	}
	return out, nil
}

// chapters segments one enclosing span into chapter nodes.
func (s *Segmenter) chapters(span string) []*doctree.Node {
	heads := s.matcher.Find(span, doctree.KindChapter)
	nodes := make([]*doctree.Node, 0, len(heads))
	seen := make(map[string]int)

	for i, h := range heads {
		chapterSpan := span[h.Offset:spanEnd(heads, i, len(span))]
		node := &doctree.Node{
			Kind:  doctree.KindChapter,
			Title: uniqueTitle(seen, headingTitle(h.Label)),
		}

		sections := s.matcher.Find(chapterSpan, doctree.KindSection)
		if len(sections) == 0 {
			node.Text = stripLabel(chapterSpan, h.Label)
			nodes = append(nodes, node)
			continue
		}

		secSeen := make(map[string]int)
		for j, sh := range sections {
			sectionSpan := chapterSpan[sh.Offset:spanEnd(sections, j, len(chapterSpan))]
			node.Children = append(node.Children, &doctree.Node{
				Kind:  doctree.KindSection,
				Title: uniqueTitle(secSeen, headingTitle(sh.Label)),
				Text:  stripLabel(sectionSpan, sh.Label),
			})
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// spanEnd is the offset of the next heading, or end of the enclosing span.
func spanEnd(heads []doctree.Heading, i, limit int) int {
	if i+1 < len(heads) {
		return heads[i+1].Offset
	}
	return limit
}

// stripLabel removes the first literal occurrence of label and trims.
func stripLabel(span, label string) string {
	return strings.TrimSpace(strings.Replace(span, label, "", 1))
}

// headingTitle collapses internal whitespace, so "Chapter\n3" reads "Chapter 3".
func headingTitle(label string) string {
	return strings.Join(strings.Fields(label), " ")
}

// uniqueTitle suffixes repeated sibling titles so unit paths stay unique.
func uniqueTitle(seen map[string]int, title string) string {
	seen[title]++
	if n := seen[title]; n > 1 {
		return fmt.Sprintf("%s (%d)", title, n)
	}
	return title
}

func countChapters(nodes []*doctree.Node) int {
	n := 0
	for _, node := range nodes {
		switch node.Kind {
		case doctree.KindChapter:
			n++
		case doctree.KindPart:
			n += countChapters(node.Children)
		}
	}
	return n
}
