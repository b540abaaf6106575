package outline

import (
	"testing"

	"github.com/dgallion1/docadapt/internal/doctree"
)

func TestMatcher_FindChapters(t *testing.T) {
	m := DefaultMatcher()
	text := "Intro\nChapter 1\nHello.\n\nchapter 22\nWorld?"
	got := m.Find(text, doctree.KindChapter)

	if len(got) != 2 {
		t.Fatalf("expected 2 headings, got %d", len(got))
	}
	if got[0].Label != "Chapter 1" || got[0].Offset != 6 {
		t.Errorf("heading 0: got %q at %d", got[0].Label, got[0].Offset)
	}
	if got[1].Label != "chapter 22" {
		t.Errorf("expected case-insensitive match %q, got %q", "chapter 22", got[1].Label)
	}
	if got[1].Offset <= got[0].Offset {
		t.Errorf("expected headings in left-to-right order")
	}
}

func TestMatcher_NoMatchIsEmpty(t *testing.T) {
	m := DefaultMatcher()
	kinds := []doctree.HeadingKind{doctree.KindPart, doctree.KindChapter, doctree.KindSection}
	for _, k := range kinds {
		got := m.Find("nothing structural here", k)
		if got == nil {
			t.Errorf("%s: expected empty slice, got nil", k)
		}
		if len(got) != 0 {
			t.Errorf("%s: expected no headings, got %v", k, got)
		}
	}
}

func TestMatcher_ChapterNeedsInteger(t *testing.T) {
	m := DefaultMatcher()
	if got := m.Find("Chapter One begins", doctree.KindChapter); len(got) != 0 {
		t.Errorf("expected no match for non-numeric chapter, got %v", got)
	}
}

func TestMatcher_PartTakesWordToken(t *testing.T) {
	m := DefaultMatcher()
	got := m.Find("PART II\ntext\nPart Three\n", doctree.KindPart)
	if len(got) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(got))
	}
	if got[0].Label != "PART II" || got[1].Label != "Part Three" {
		t.Errorf("unexpected labels: %q, %q", got[0].Label, got[1].Label)
	}
}

func TestMatcher_KeywordNeedsWordBoundary(t *testing.T) {
	m := DefaultMatcher()
	if got := m.Find("a Counterpart One exists", doctree.KindPart); len(got) != 0 {
		t.Errorf("expected no part inside another word, got %v", got)
	}
}

func TestMatcher_LocalizedKeywords(t *testing.T) {
	kw := Keywords{Part: "Parte", Chapter: "Capítulo", Section: "Sección"}
	m, err := NewMatcher(kw.Patterns())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.Find("CAPÍTULO 1\nuno\nCapítulo 2\ndos", doctree.KindChapter)
	if len(got) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(got))
	}
}

func TestMatcher_EmptyKeywordDisablesKind(t *testing.T) {
	m, err := NewMatcher(Keywords{Chapter: "Chapter"}.Patterns())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Find("Part One\nChapter 1\n", doctree.KindPart); len(got) != 0 {
		t.Errorf("expected part matching disabled, got %v", got)
	}
}

func TestNewMatcher_InvalidPattern(t *testing.T) {
	_, err := NewMatcher(Patterns{doctree.KindChapter: "(unclosed"})
	if err == nil {
		t.Fatal("expected compile error")
	}
}
