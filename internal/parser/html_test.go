package parser

import (
	"errors"
	"strings"
	"testing"
)

const letterPage = `<html><head><title>Letter II</title></head><body>
<div id="nav">menu</div>
<div class="mw-content-ltr mw-parser-output">
<h2>Letter II</h2>
<p>Judging by what you write me,</p>
<h3>On discursiveness</h3>
<p>Be careful, however,<br>lest this reading.</p>
<script>var x = 1;</script>
</div>
</body></html>`

func TestExtractContent(t *testing.T) {
	got, err := ExtractContent(strings.NewReader(letterPage), "mw-parser-output")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Judging by what you write me,\n\nBe careful, however,\nlest this reading."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExtractContent_MissingContainer(t *testing.T) {
	_, err := ExtractContent(strings.NewReader("<html><body><p>hi</p></body></html>"), "mw-parser-output")
	if !errors.Is(err, ErrNoContainer) {
		t.Fatalf("expected ErrNoContainer, got %v", err)
	}
}

func TestExtractContent_EmptyContainer(t *testing.T) {
	got, err := ExtractContent(strings.NewReader(`<div class="mw-parser-output"><h2>Only a heading</h2></div>`), "mw-parser-output")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty content, got %q", got)
	}
}

func TestHTMLParser_KeepsHeadingsAsBlocks(t *testing.T) {
	p := &HTMLParser{}
	src, err := p.Extract(strings.NewReader(letterPage), "letter.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Title != "Letter II" {
		t.Errorf("expected title from <title>, got %q", src.Title)
	}
	if !strings.HasPrefix(src.Text, "Letter II\n\nJudging") {
		t.Errorf("expected heading kept before body, got %q", src.Text)
	}
	if strings.Contains(src.Text, "var x") || strings.Contains(src.Text, "menu") {
		t.Errorf("expected script and stray div text skipped, got %q", src.Text)
	}
}
