package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docadapt/internal/letters"
	"github.com/dgallion1/docadapt/internal/pipeline"
	"github.com/dgallion1/docadapt/internal/render"
	"github.com/dgallion1/docadapt/internal/selection"
)

// handleCreateRun segments an uploaded document and queues the selected
// units. Selection is one of all=true, repeated units=<path>, or
// indices=1,3.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	defer removeForm(r)
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	var (
		set selection.Set
		err error
	)
	form := r.MultipartForm.Value
	switch {
	case r.FormValue("all") == "true":
		set, err = selection.All(up.Outline)
	case len(form["units"]) > 0:
		set, err = selection.ByPaths(up.Outline, form["units"])
	case strings.TrimSpace(r.FormValue("indices")) != "":
		var idx []int
		idx, err = selection.ParseIndices(r.FormValue("indices"))
		if err == nil {
			set, err = selection.ByIndices(up.Outline, idx)
		}
	default:
		err = selection.ErrEmptySelection
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.submit(w, pipeline.NewRun(up.Outline.Title, up.Filename, set, nil))
}

// handleCreateLettersRun queues remote letters, given as letters=1,2,3 or
// all=true.
func (s *Server) handleCreateLettersRun(w http.ResponseWriter, r *http.Request) {
	if s.letters == nil {
		jsonError(w, "letters source unavailable", http.StatusServiceUnavailable)
		return
	}

	var (
		set selection.Set
		err error
	)
	if r.FormValue("all") == "true" {
		set, err = selection.LetterRange(s.letters.Max())
	} else {
		var numbers []int
		numbers, err = selection.ParseIndices(r.FormValue("letters"))
		for _, n := range numbers {
			if n > s.letters.Max() {
				err = fmt.Errorf("%w: %d (max %d)", letters.ErrInvalidLetter, n, s.letters.Max())
				break
			}
		}
		if err == nil {
			set, err = selection.Letters(numbers)
		}
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = "Letters"
	}
	s.submit(w, pipeline.NewRun(title, "letters", set, s.letters))
}

func (s *Server) submit(w http.ResponseWriter, run *pipeline.Run) {
	if err := s.orchestrator.Submit(run); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("run queued", "run_id", run.ID, "source", run.Source, "units", len(run.Selection()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":       run.ID,
		"status":       pipeline.StatusQueued,
		"units":        run.Selection().Paths(),
		"poll_url":     fmt.Sprintf("/api/runs/%s/status", run.ID),
		"document_url": fmt.Sprintf("/api/runs/%s/document", run.ID),
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	run := s.orchestrator.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run.Snapshot())
}

// handleRunDocument renders a finished run. Markup comes from the query,
// then the style profile, then configuration.
func (s *Server) handleRunDocument(w http.ResponseWriter, r *http.Request) {
	run := s.orchestrator.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	result := run.Result()
	if result == nil {
		jsonError(w, "run not finished", http.StatusConflict)
		return
	}

	q := r.URL.Query()
	format, err := render.ParseFormat(firstNonEmpty(q.Get("format"), s.cfg.OutputFormat))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	markup, err := render.ParseMarkup(firstNonEmpty(q.Get("markup"), s.profileMarkup(), s.cfg.Markup))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	renderer, err := render.ForFormat(format, render.Options{
		Markup:       markup,
		Placeholder:  s.cfg.FailurePlaceholder,
		IncludeTitle: true,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, render.Document{Title: run.Title, Entries: result.Entries()}); err != nil {
		s.log.Error("render failed", "run_id", run.ID, "format", format, "error", err)
		jsonError(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, render.FileName(run.Title, format)))
	w.Write(buf.Bytes())
}

func (s *Server) profileMarkup() string {
	if s.adapter == nil {
		return ""
	}
	return s.adapter.Profile().Markup
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
