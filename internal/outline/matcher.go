package outline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docadapt/internal/doctree"
)

// Keywords are the label words that introduce each heading kind.
type Keywords struct {
	Part    string
	Chapter string
	Section string
}

// DefaultKeywords returns the English heading labels.
func DefaultKeywords() Keywords {
	return Keywords{
		Part:    "Part",
		Chapter: "Chapter",
		Section: "Section",
	}
}

// Patterns maps each heading kind to a regular expression source.
type Patterns map[doctree.HeadingKind]string

// Patterns builds case-insensitive patterns from the keywords: a part
// keyword is followed by a word token, chapters and sections by an integer.
func (k Keywords) Patterns() Patterns {
	return Patterns{
		doctree.KindPart:    keywordPattern(k.Part, `\w+`),
		doctree.KindChapter: keywordPattern(k.Chapter, `\d+`),
		doctree.KindSection: keywordPattern(k.Section, `\d+`),
	}
}

func keywordPattern(keyword, token string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("(?i)")
	// \b is ASCII-only in RE2; a keyword opening with a non-ASCII letter
	// would never sit on a boundary.
	if r, _ := utf8.DecodeRuneInString(keyword); r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
		sb.WriteString(`\b`)
	}
	sb.WriteString(regexp.QuoteMeta(keyword))
	sb.WriteString(`\s+`)
	sb.WriteString(token)
	return sb.String()
}

// Matcher finds heading labels in a text stream.
type Matcher struct {
	patterns map[doctree.HeadingKind]*regexp.Regexp
}

// NewMatcher compiles the given patterns. A kind with an empty pattern
// never matches.
func NewMatcher(p Patterns) (*Matcher, error) {
	m := &Matcher{patterns: make(map[doctree.HeadingKind]*regexp.Regexp, len(p))}
	for kind, src := range p {
		if src == "" {
			continue
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern: %w", kind, err)
		}
		m.patterns[kind] = re
	}
	return m, nil
}

// DefaultMatcher returns a matcher for the English keywords.
func DefaultMatcher() *Matcher {
	m, err := NewMatcher(DefaultKeywords().Patterns())
	if err != nil {
		panic(err)
	}
	return m
}

// Find returns the non-overlapping headings of kind in text, left to right.
// No match yields an empty slice.
func (m *Matcher) Find(text string, kind doctree.HeadingKind) []doctree.Heading {
	re, ok := m.patterns[kind]
	if !ok {
		return []doctree.Heading{}
	}
	locs := re.FindAllStringIndex(text, -1)
	headings := make([]doctree.Heading, 0, len(locs))
	for _, loc := range locs {
		headings = append(headings, doctree.Heading{
			Kind:   kind,
			Label:  text[loc[0]:loc[1]],
			Offset: loc[0],
		})
	}
	return headings
}
