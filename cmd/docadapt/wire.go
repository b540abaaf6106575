package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dgallion1/docadapt/internal/adapt"
	"github.com/dgallion1/docadapt/internal/config"
	"github.com/dgallion1/docadapt/internal/doctree"
	"github.com/dgallion1/docadapt/internal/letters"
	"github.com/dgallion1/docadapt/internal/outline"
	"github.com/dgallion1/docadapt/internal/parser"
	"github.com/dgallion1/docadapt/internal/pipeline"
	"github.com/dgallion1/docadapt/internal/render"
)

// newLogger builds the process logger: JSON for the server, text for
// one-shot commands.
func newLogger(w io.Writer, level string, asJSON bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func cliLogger() *slog.Logger {
	return newLogger(os.Stderr, cfg.LogLevel, false)
}

// closer is a provider holding idle connections.
type closer interface {
	Close()
}

func newProvider(c config.Config) (adapt.Provider, error) {
	switch c.ProviderKind {
	case config.ProviderOpenAI:
		return adapt.NewOpenAIProvider(adapt.OpenAIConfig{
			APIKey:  c.ProviderAPIKey,
			BaseURL: c.ProviderBaseURL,
			Model:   c.ProviderModel,
			Timeout: c.ProviderTimeout,
		}), nil
	case config.ProviderHTTP:
		return adapt.NewHTTPProvider(adapt.HTTPConfig{
			URL:        chatCompletionsURL(c.ProviderBaseURL),
			APIKey:     c.ProviderAPIKey,
			AuthScheme: c.ProviderAuthScheme,
			Model:      c.ProviderModel,
			Timeout:    c.ProviderTimeout,
		}), nil
	}
	return nil, fmt.Errorf("unknown provider kind %q", c.ProviderKind)
}

func chatCompletionsURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

// newAdapter wires the provider and the named style profile. An empty
// profile name falls back to configuration. The returned func releases
// the provider's connections.
func newAdapter(c config.Config, profileName string, log *slog.Logger) (*adapt.Adapter, func(), error) {
	if err := c.ValidateProvider(); err != nil {
		return nil, nil, err
	}
	profiles, err := adapt.LoadProfiles(c.ProfilesFile)
	if err != nil {
		return nil, nil, err
	}
	if profileName == "" {
		profileName = c.StyleProfile
	}
	profile, err := profiles.Get(profileName)
	if err != nil {
		return nil, nil, err
	}
	provider, err := newProvider(c)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if cl, ok := provider.(closer); ok {
			cl.Close()
		}
	}
	settings := adapt.Settings{Temperature: c.ProviderTemperature, MaxTokens: c.ProviderMaxTokens}
	return adapt.NewAdapter(provider, profile, settings, nil, log), release, nil
}

func newSegmenter(c config.Config) (*outline.Segmenter, error) {
	kw := outline.Keywords{Part: c.HeadingPart, Chapter: c.HeadingChapter, Section: c.HeadingSection}
	m, err := outline.NewMatcher(kw.Patterns())
	if err != nil {
		return nil, err
	}
	return outline.NewSegmenter(m), nil
}

func newFetcher(c config.Config, log *slog.Logger) *letters.Fetcher {
	return letters.NewFetcher(letters.Config{
		URLTemplate: c.LettersURLTemplate,
		Max:         c.LettersMax,
		CacheTTL:    c.LettersCacheTTL,
		Timeout:     c.FetchTimeout,
	}, log)
}

func batchConfig(c config.Config) pipeline.BatchConfig {
	return pipeline.BatchConfig{
		PacingInterval: c.PacingInterval,
		MaxAttempts:    c.MaxAttempts,
		RetryDelay:     c.RetryDelay,
	}
}

// loadOutline extracts and segments a local file. A non-empty title
// replaces the one derived from the source.
func loadOutline(path, title string, c config.Config) (*doctree.Outline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := parser.ExtractFile(f, path, parser.Options{PDFFallbackPdftotext: c.PDFFallbackPdftotext})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if title != "" {
		src.Title = title
	}
	seg, err := newSegmenter(c)
	if err != nil {
		return nil, err
	}
	out, err := seg.Segment(src.Title, src.Text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// renderFlags are the output options shared by adapt and letters.
type renderFlags struct {
	out     string
	format  string
	markup  string
	profile string
}

// writeDocument renders the result to the requested file and returns its path.
func writeDocument(rf renderFlags, profileMarkup, title string, result *doctree.Result) (string, error) {
	format, err := render.ParseFormat(firstNonEmpty(rf.format, formatFromPath(rf.out), cfg.OutputFormat))
	if err != nil {
		return "", err
	}
	markup, err := render.ParseMarkup(firstNonEmpty(rf.markup, profileMarkup, cfg.Markup))
	if err != nil {
		return "", err
	}
	r, err := render.ForFormat(format, render.Options{
		Markup:       markup,
		Placeholder:  cfg.FailurePlaceholder,
		IncludeTitle: true,
	})
	if err != nil {
		return "", err
	}

	path := rf.out
	if path == "" {
		path = render.FileName(title, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := r.Render(f, render.Document{Title: title, Entries: result.Entries()}); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func formatFromPath(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		if _, err := render.ParseFormat(path[i+1:]); err == nil {
			return path[i+1:]
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
