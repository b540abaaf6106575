package letters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/dgallion1/docadapt/internal/doctree"
	"github.com/dgallion1/docadapt/internal/parser"
)

var (
	ErrInvalidLetter = errors.New("invalid letter number")
	ErrNotFound      = errors.New("letter not found")
	ErrUnparseable   = errors.New("unable to parse the letter content")
	ErrEmptyContent  = errors.New("letter content is empty")
)

// DefaultURLTemplate points at the Wikisource letter pages. {roman} and
// {n} are replaced with the letter number.
const DefaultURLTemplate = "https://en.wikisource.org/wiki/Moral_letters_to_Lucilius/Letter_{roman}"

// DefaultContainerClass is the MediaWiki article body class.
const DefaultContainerClass = "mw-parser-output"

// Config controls where and how letters are fetched.
type Config struct {
	URLTemplate    string
	ContainerClass string
	Max            int
	CacheTTL       time.Duration
	Timeout        time.Duration
}

// Fetcher downloads letter pages and extracts their body text. Results
// are cached for the session.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	cache      *cache.Cache
	logger     *slog.Logger
}

func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if cfg.ContainerClass == "" {
		cfg.ContainerClass = DefaultContainerClass
	}
	if cfg.Max <= 0 {
		cfg.Max = 65
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Fetcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger: logger,
	}
}

// Max is the highest letter number accepted.
func (f *Fetcher) Max() int {
	return f.cfg.Max
}

// URL builds the page address for letter n.
func (f *Fetcher) URL(n int) (string, error) {
	if n < 1 || n > f.cfg.Max {
		return "", fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidLetter, n, f.cfg.Max)
	}
	roman, ok := ToRoman(n)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrInvalidLetter, n)
	}
	u := strings.ReplaceAll(f.cfg.URLTemplate, "{roman}", roman)
	return strings.ReplaceAll(u, "{n}", strconv.Itoa(n)), nil
}

// Fetch returns the body text of letter n.
func (f *Fetcher) Fetch(ctx context.Context, n int) (string, error) {
	key := strconv.Itoa(n)
	if v, ok := f.cache.Get(key); ok {
		return v.(string), nil
	}

	u, err := f.URL(n)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("fetch letter %d: %w", n, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: letter %d (status %d)", ErrNotFound, n, resp.StatusCode)
	}

	text, err := parser.ExtractContent(io.LimitReader(resp.Body, 8<<20), f.cfg.ContainerClass)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}

	f.cache.Set(key, text, cache.DefaultExpiration)
	f.logger.Debug("letter fetched", "letter", n, "chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// LoadBody resolves a lazily loaded letter unit by its Ref.
func (f *Fetcher) LoadBody(ctx context.Context, unit doctree.Unit) (string, error) {
	n, err := strconv.Atoi(unit.Ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLetter, unit.Ref)
	}
	return f.Fetch(ctx, n)
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.httpClient.CloseIdleConnections()
}
