package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const book = "Chapter 1\nHello.\n\nChapter 2\nWorld?\n\nChapter 3\nEnd."

func writeBook(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "book.txt")
	require.NoError(t, os.WriteFile(path, []byte(book), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestChatCompletionsURL(t *testing.T) {
	assert.Equal(t, "https://h/v1/chat/completions", chatCompletionsURL("https://h/v1/"))
	assert.Equal(t, "https://h/v1/chat/completions", chatCompletionsURL("https://h/v1/chat/completions"))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "pdf", formatFromPath("out/letters.pdf"))
	assert.Equal(t, "md", formatFromPath("notes.md"))
	assert.Equal(t, "", formatFromPath("archive.zip"))
	assert.Equal(t, "", formatFromPath(""))
}

func TestOutlineCommand_JSON(t *testing.T) {
	path := writeBook(t)
	out, err := execute(t, "outline", path, "-o", "json")
	require.NoError(t, err, out)

	var view outlineView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "book", view.Title)
	require.Len(t, view.Units, 3)
	assert.Equal(t, "Chapter 2", view.Units[1].Path)
	assert.Equal(t, 2, view.Units[1].Index)
}

func TestAdaptCommand_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Messages[len(req.Messages)-1].Content, "Chapter 2") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"Adapted."}}]}`))
	}))
	defer server.Close()

	path := writeBook(t)
	t.Setenv("PROVIDER_KIND", "http")
	t.Setenv("PROVIDER_BASE_URL", server.URL)
	t.Setenv("PROVIDER_API_KEY", "k")
	t.Setenv("PACING_INTERVAL", "0s")

	dest := filepath.Join(filepath.Dir(path), "adapted.md")
	out, err := execute(t, "adapt", path, "--all", "--out", dest)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Adapted 2/3 units")
	assert.Contains(t, out, "failed: Chapter 2: provider status 500")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, "## Chapter 1\n\nAdapted.\n\n")
	assert.Contains(t, doc, "## Chapter 2\n\nError in adaptation\n\n")
	assert.Contains(t, doc, "## Chapter 3\n\nAdapted.\n\n")
}
