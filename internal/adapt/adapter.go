package adapt

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Settings are the per-call generation parameters.
type Settings struct {
	Temperature float64
	MaxTokens   int
}

// Adapter rewrites one unit at a time for a style profile.
type Adapter struct {
	provider Provider
	profile  Profile
	settings Settings
	stats    *LLMStats
	logger   *slog.Logger
}

func NewAdapter(provider Provider, profile Profile, settings Settings, stats *LLMStats, logger *slog.Logger) *Adapter {
	if stats == nil {
		stats = NewLLMStats(time.Hour)
	}
	return &Adapter{
		provider: provider,
		profile:  profile,
		settings: settings,
		stats:    stats,
		logger:   logger,
	}
}

// Profile returns the style profile in use.
func (a *Adapter) Profile() Profile {
	return a.profile
}

// Stats returns the call statistics collector.
func (a *Adapter) Stats() *LLMStats {
	return a.stats
}

// Model returns the provider's model identifier.
func (a *Adapter) Model() string {
	return a.provider.Model()
}

// Adapt sends one unit to the provider and returns the trimmed rewrite.
// No retry is attempted here.
func (a *Adapter) Adapt(ctx context.Context, title, body string) (string, error) {
	req := Request{
		System:      a.profile.System,
		Prompt:      BuildPrompt(a.profile, title, body),
		Temperature: a.settings.Temperature,
		MaxTokens:   a.settings.MaxTokens,
	}
	if a.profile.Temperature != nil {
		req.Temperature = *a.profile.Temperature
	}
	if a.profile.MaxTokens > 0 {
		req.MaxTokens = a.profile.MaxTokens
	}

	start := time.Now()
	text, err := a.provider.Complete(ctx, req)
	elapsed := time.Since(start).Milliseconds()
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = ErrEmptyAdaptation
		}
	}
	if err != nil {
		a.stats.RecordFailure(elapsed)
		a.logger.Debug("provider call failed", "title", title, "duration_ms", elapsed, "error", err)
		return "", err
	}

	a.stats.Record(elapsed)
	return text, nil
}
