package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	LogLevel string

	// Auth
	DocadaptAPIKey string

	// Generation provider
	ProviderKind        string // openai or http
	ProviderBaseURL     string
	ProviderAPIKey      string
	ProviderAuthScheme  string
	ProviderModel       string
	ProviderTemperature float64
	ProviderMaxTokens   int
	ProviderTimeout     time.Duration

	// Style
	StyleProfile string
	ProfilesFile string

	// Heading keywords
	HeadingPart    string
	HeadingChapter string
	HeadingSection string

	// Batch
	PacingInterval time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration

	// Output
	OutputFormat       string
	Markup             string
	FailurePlaceholder string

	// Letters
	LettersURLTemplate string
	LettersMax         int
	LettersCacheTTL    time.Duration
	FetchTimeout       time.Duration

	// Runs
	RunTTL         time.Duration
	MaxUploadBytes int64
	MaxQueueSize   int

	// PDF
	PDFFallbackPdftotext bool
}

// Provider kinds.
const (
	ProviderOpenAI = "openai"
	ProviderHTTP   = "http"
)

var defaults = map[string]any{
	"port":                   "8090",
	"log_level":              "info",
	"provider_kind":          ProviderOpenAI,
	"provider_base_url":      "https://api.openai.com/v1",
	"provider_auth_scheme":   "bearer",
	"provider_model":         "gpt-4o-mini",
	"provider_temperature":   0.7,
	"provider_max_tokens":    4000,
	"provider_timeout":       2 * time.Minute,
	"style_profile":          "teen-philosophy",
	"heading_part":           "Part",
	"heading_chapter":        "Chapter",
	"heading_section":        "Section",
	"pacing_interval":        time.Second,
	"max_attempts":           1,
	"retry_delay":            2 * time.Second,
	"output_format":          "docx",
	"markup":                 "heuristic",
	"failure_placeholder":    "Error in adaptation",
	"letters_url_template":   "https://en.wikisource.org/wiki/Moral_letters_to_Lucilius/Letter_{roman}",
	"letters_max":            65,
	"letters_cache_ttl":      time.Hour,
	"fetch_timeout":          30 * time.Second,
	"run_ttl":                time.Hour,
	"max_upload_bytes":       int64(52428800), // 50MB
	"max_queue_size":         100,
	"pdf_fallback_pdftotext": true,
	"docadapt_api_key":       "",
	"provider_api_key":       "",
	"profiles_file":          "",
}

// Load reads configuration from defaults, an optional YAML file, a .env
// file in the working directory, and the environment, in increasing
// precedence. A missing cfgFile is an error; a missing .env is not.
func Load(cfgFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	cfg := Config{
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log_level"),

		DocadaptAPIKey: v.GetString("docadapt_api_key"),

		ProviderKind:        strings.ToLower(v.GetString("provider_kind")),
		ProviderBaseURL:     v.GetString("provider_base_url"),
		ProviderAPIKey:      v.GetString("provider_api_key"),
		ProviderAuthScheme:  strings.ToLower(v.GetString("provider_auth_scheme")),
		ProviderModel:       v.GetString("provider_model"),
		ProviderTemperature: v.GetFloat64("provider_temperature"),
		ProviderMaxTokens:   v.GetInt("provider_max_tokens"),
		ProviderTimeout:     v.GetDuration("provider_timeout"),

		StyleProfile: v.GetString("style_profile"),
		ProfilesFile: v.GetString("profiles_file"),

		HeadingPart:    v.GetString("heading_part"),
		HeadingChapter: v.GetString("heading_chapter"),
		HeadingSection: v.GetString("heading_section"),

		PacingInterval: v.GetDuration("pacing_interval"),
		MaxAttempts:    v.GetInt("max_attempts"),
		RetryDelay:     v.GetDuration("retry_delay"),

		OutputFormat:       v.GetString("output_format"),
		Markup:             v.GetString("markup"),
		FailurePlaceholder: v.GetString("failure_placeholder"),

		LettersURLTemplate: v.GetString("letters_url_template"),
		LettersMax:         v.GetInt("letters_max"),
		LettersCacheTTL:    v.GetDuration("letters_cache_ttl"),
		FetchTimeout:       v.GetDuration("fetch_timeout"),

		RunTTL:         v.GetDuration("run_ttl"),
		MaxUploadBytes: v.GetInt64("max_upload_bytes"),
		MaxQueueSize:   v.GetInt("max_queue_size"),

		PDFFallbackPdftotext: v.GetBool("pdf_fallback_pdftotext"),
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.LettersMax <= 0 {
		cfg.LettersMax = 65
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = time.Hour
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 2 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}

	return cfg, nil
}

// ValidateProvider checks what any command that calls the provider needs.
func (c Config) ValidateProvider() error {
	switch c.ProviderKind {
	case ProviderOpenAI, ProviderHTTP:
	default:
		return fmt.Errorf("PROVIDER_KIND must be %q or %q, got %q", ProviderOpenAI, ProviderHTTP, c.ProviderKind)
	}
	if c.ProviderAPIKey == "" {
		return fmt.Errorf("PROVIDER_API_KEY is required")
	}
	if c.ProviderBaseURL == "" {
		return fmt.Errorf("PROVIDER_BASE_URL is required")
	}
	if c.ProviderKind == ProviderHTTP && c.ProviderAuthScheme != "bearer" && c.ProviderAuthScheme != "raw" {
		return fmt.Errorf("PROVIDER_AUTH_SCHEME must be bearer or raw, got %q", c.ProviderAuthScheme)
	}
	return nil
}

// Validate checks what the HTTP server needs.
func (c Config) Validate() error {
	if c.DocadaptAPIKey == "" {
		return fmt.Errorf("DOCADAPT_API_KEY is required")
	}
	return c.ValidateProvider()
}
