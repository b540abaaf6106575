package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docadapt/internal/doctree"
	"github.com/dgallion1/docadapt/internal/outline"
	"github.com/dgallion1/docadapt/internal/parser"
	"github.com/dgallion1/docadapt/internal/selection"
)

// unitInfo is one addressable unit in an outline response.
type unitInfo struct {
	Index  int    `json:"index"`
	Path   string `json:"path"`
	Tokens int    `json:"tokens"`
}

// upload is a parsed and segmented source document.
type upload struct {
	Filename string
	Outline  *doctree.Outline
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	defer removeForm(r)
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	leaves := selection.Leaves(up.Outline)
	units := make([]unitInfo, len(leaves))
	for i, u := range leaves {
		units[i] = unitInfo{Index: i + 1, Path: u.Path, Tokens: u.Tokens}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"title":    up.Outline.Title,
		"filename": up.Filename,
		"outline":  up.Outline.Children,
		"units":    units,
	})
}

// readUpload parses the multipart "file" field, extracts its text and
// segments it. On failure it writes the error response and returns false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, false
	}

	src, err := parser.ExtractFile(bytes.NewReader(data), filename, parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		if !errors.Is(err, parser.ErrEmptySource) {
			s.log.Warn("extraction failed", "filename", filename, "error", err)
		}
		jsonError(w, "could not read document: "+err.Error(), http.StatusUnprocessableEntity)
		return nil, false
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = src.Title
	}

	out, err := s.segmenter.Segment(title, src.Text)
	if err != nil {
		if errors.Is(err, outline.ErrNoStructure) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return nil, false
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}

	return &upload{Filename: filename, Outline: out}, true
}

// removeForm deletes temporary files of a parsed multipart form.
func removeForm(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
