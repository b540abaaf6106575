package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docadapt/internal/adapt"
	"github.com/dgallion1/docadapt/internal/config"
	"github.com/dgallion1/docadapt/internal/letters"
	"github.com/dgallion1/docadapt/internal/pipeline"
)

const testKey = "secret"

const book = "Chapter 1\nHello.\n\nChapter 2\nWorld?\n\nChapter 3\nEnd."

// stubProvider answers every prompt, failing those that mention failOn.
type stubProvider struct {
	calls  atomic.Int32
	failOn string
	gate   chan struct{}
}

func (p *stubProvider) Model() string { return "stub-model" }

func (p *stubProvider) Complete(ctx context.Context, req adapt.Request) (string, error) {
	p.calls.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	if p.failOn != "" && strings.Contains(req.Prompt, p.failOn) {
		return "", &adapt.StatusError{StatusCode: http.StatusInternalServerError}
	}
	return "**Key Point**\nWhy does this matter?", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, provider adapt.Provider, fetcher *letters.Fetcher) *Server {
	t.Helper()
	cfg := config.Config{
		DocadaptAPIKey:     testKey,
		MaxUploadBytes:     1 << 20,
		OutputFormat:       "md",
		Markup:             "heuristic",
		FailurePlaceholder: "Error in adaptation",
	}
	profile, err := adapt.BuiltinProfiles().Get(adapt.DefaultProfile)
	require.NoError(t, err)
	adapter := adapt.NewAdapter(provider, profile, adapt.Settings{}, nil, testLogger())

	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{}, adapter.Adapt, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	orch.Start(ctx)
	t.Cleanup(func() {
		cancel()
		orch.Stop()
	})

	return NewServer(Deps{Orchestrator: orch, Adapter: adapter, Letters: fetcher}, testLogger(), cfg)
}

func uploadRequest(t *testing.T, path, filename, content string, fields url.Values) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, vals := range fields {
		for _, v := range vals {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func authed(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func waitForStatus(t *testing.T, s *Server, runID string, want pipeline.RunStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec := serve(s, authed(http.MethodGet, "/api/runs/"+runID+"/status", nil))
		if rec.Code != http.StatusOK {
			return false
		}
		return decode(t, rec)["status"] == string(want)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing authorization"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = serve(s, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid api key"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	req.Header.Set("Authorization", "bearer "+testKey)
	assert.Equal(t, http.StatusOK, serve(s, req).Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, ok := bearerToken(r)
		assert.Equal(t, tt.ok, ok, "header %q", tt.header)
		assert.Equal(t, tt.want, got, "header %q", tt.header)
	}
}

func TestOutline(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	rec := serve(s, uploadRequest(t, "/api/outline", "book.txt", book, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, "book", out["title"])
	units, ok := out["units"].([]any)
	require.True(t, ok)
	require.Len(t, units, 3)
	first := units[0].(map[string]any)
	assert.Equal(t, "Chapter 1", first["path"])
	assert.EqualValues(t, 1, first["index"])
}

func TestOutline_NoStructure(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	rec := serve(s, uploadRequest(t, "/api/outline", "notes.txt", "Just prose.", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOutline_UnsupportedType(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	rec := serve(s, uploadRequest(t, "/api/outline", "book.exe", book, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRun_SelectionErrors(t *testing.T) {
	provider := &stubProvider{}
	s := newTestServer(t, provider, nil)

	tests := map[string]url.Values{
		"no selection":  nil,
		"unknown unit":  {"units": {"Chapter 9"}},
		"invalid index": {"indices": {"1,x"}},
		"out of range":  {"indices": {"7"}},
	}
	for name, fields := range tests {
		t.Run(name, func(t *testing.T) {
			rec := serve(s, uploadRequest(t, "/api/runs", "book.txt", book, fields))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.Zero(t, provider.calls.Load(), "provider must not be called")
}

func TestRun_EndToEnd(t *testing.T) {
	provider := &stubProvider{failOn: "Chapter 2"}
	s := newTestServer(t, provider, nil)

	rec := serve(s, uploadRequest(t, "/api/runs", "book.txt", book, url.Values{"all": {"true"}}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	created := decode(t, rec)
	runID := created["run_id"].(string)
	require.NotEmpty(t, runID)
	assert.Equal(t, "/api/runs/"+runID+"/status", created["poll_url"])

	waitForStatus(t, s, runID, pipeline.StatusCompleted)

	var snap pipeline.RunSnapshot
	status := serve(s, authed(http.MethodGet, "/api/runs/"+runID+"/status", nil))
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &snap))
	require.NotNil(t, snap.Summary)
	assert.Equal(t, 2, snap.Summary.Succeeded)
	assert.Equal(t, 3, snap.Summary.Total)
	assert.Equal(t, pipeline.RunProgress{Done: 3, Total: 3}, snap.Progress)

	doc := serve(s, authed(http.MethodGet, "/api/runs/"+runID+"/document?format=md", nil))
	require.Equal(t, http.StatusOK, doc.Code, doc.Body.String())
	assert.Equal(t, "text/markdown; charset=utf-8", doc.Header().Get("Content-Type"))
	assert.Contains(t, doc.Header().Get("Content-Disposition"), `filename="book.md"`)

	body := doc.Body.String()
	assert.Contains(t, body, "# book\n\n")
	assert.Contains(t, body, "## Chapter 1\n\n**Key Point**  \n*Why does this matter?*\n\n")
	assert.Contains(t, body, "## Chapter 2\n\nError in adaptation\n\n")
	assert.Equal(t, 2, strings.Count(body, "**Key Point**"))

	docx := serve(s, authed(http.MethodGet, "/api/runs/"+runID+"/document?format=docx", nil))
	require.Equal(t, http.StatusOK, docx.Code)
	assert.True(t, bytes.HasPrefix(docx.Body.Bytes(), []byte("PK")))

	bad := serve(s, authed(http.MethodGet, "/api/runs/"+runID+"/document?format=odt", nil))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestRunDocument_ConflictUntilFinished(t *testing.T) {
	provider := &stubProvider{gate: make(chan struct{})}
	s := newTestServer(t, provider, nil)

	rec := serve(s, uploadRequest(t, "/api/runs", "book.txt", book, url.Values{"units": {"Chapter 3", "Chapter 1"}}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	created := decode(t, rec)
	runID := created["run_id"].(string)
	assert.Equal(t, []any{"Chapter 3", "Chapter 1"}, created["units"])

	doc := serve(s, authed(http.MethodGet, "/api/runs/"+runID+"/document", nil))
	assert.Equal(t, http.StatusConflict, doc.Code)

	close(provider.gate)
	waitForStatus(t, s, runID, pipeline.StatusCompleted)

	doc = serve(s, authed(http.MethodGet, "/api/runs/"+runID+"/document", nil))
	require.Equal(t, http.StatusOK, doc.Code)
	body := doc.Body.String()
	assert.Less(t, strings.Index(body, "## Chapter 3"), strings.Index(body, "## Chapter 1"))
}

func TestRunStatus_NotFound(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	assert.Equal(t, http.StatusNotFound, serve(s, authed(http.MethodGet, "/api/runs/nope/status", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(s, authed(http.MethodGet, "/api/runs/nope/document", nil)).Code)
}

func TestLettersRun(t *testing.T) {
	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/2") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><body><div class="mw-parser-output"><h2>Letter</h2><p>Greetings, Lucilius.</p></div></body></html>`))
	}))
	defer pages.Close()

	fetcher := letters.NewFetcher(letters.Config{URLTemplate: pages.URL + "/letters/{n}", Max: 3}, testLogger())
	s := newTestServer(t, &stubProvider{}, fetcher)

	form := url.Values{"letters": {"1,2"}, "title": {"Moral Letters"}}
	req := authed(http.MethodPost, "/api/letters/runs", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(s, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	runID := decode(t, rec)["run_id"].(string)

	waitForStatus(t, s, runID, pipeline.StatusCompleted)

	var snap pipeline.RunSnapshot
	status := serve(s, authed(http.MethodGet, "/api/runs/"+runID+"/status", nil))
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &snap))
	require.NotNil(t, snap.Summary)
	assert.Equal(t, 1, snap.Summary.Succeeded)
	require.Len(t, snap.Summary.Failures, 1)
	assert.Equal(t, "Letter 2", snap.Summary.Failures[0].Path)

	doc := serve(s, authed(http.MethodGet, "/api/runs/"+runID+"/document", nil))
	require.Equal(t, http.StatusOK, doc.Code)
	assert.Contains(t, doc.Header().Get("Content-Disposition"), `filename="moral-letters.md"`)
}

func TestLettersRun_Validation(t *testing.T) {
	fetcher := letters.NewFetcher(letters.Config{Max: 3}, testLogger())
	s := newTestServer(t, &stubProvider{}, fetcher)

	for _, v := range []string{"", "4", "0", "a"} {
		req := authed(http.MethodPost, "/api/letters/runs?letters="+url.QueryEscape(v), nil)
		assert.Equal(t, http.StatusBadRequest, serve(s, req).Code, "letters=%q", v)
	}
}

func TestLettersRun_Unavailable(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	rec := serve(s, authed(http.MethodPost, "/api/letters/runs?all=true", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLLMStats(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	rec := serve(s, authed(http.MethodGet, "/api/stats/llm", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "stub-model", out["model"])
	assert.Equal(t, adapt.DefaultProfile, out["profile"])
	assert.Contains(t, out, "stats")
}
