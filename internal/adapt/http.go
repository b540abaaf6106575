package adapt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Authorization header schemes for HTTPProvider.
const (
	AuthBearer = "bearer"
	AuthRaw    = "raw"
)

// HTTPConfig configures a raw chat completions client.
type HTTPConfig struct {
	URL        string // Full endpoint, e.g. https://host/chat/completions
	APIKey     string
	AuthScheme string // AuthBearer (default) or AuthRaw
	Model      string
	Timeout    time.Duration
}

// HTTPProvider posts chat completion requests as plain JSON, for gateways
// that take the key verbatim or differ from the SDK's expectations.
type HTTPProvider struct {
	url        string
	apiKey     string
	authScheme string
	model      string
	httpClient *http.Client
}

func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = AuthBearer
	}
	return &HTTPProvider{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		authScheme: cfg.AuthScheme,
		model:      cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *HTTPProvider) Model() string {
	return p.model
}

func (p *HTTPProvider) Complete(ctx context.Context, req Request) (string, error) {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		if p.authScheme == AuthRaw {
			httpReq.Header.Set("Authorization", p.apiKey)
		} else {
			httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
		}
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", ErrEmptyAdaptation
	}
	if len(apiResp.Choices) == 0 {
		return "", ErrEmptyAdaptation
	}
	text := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyAdaptation
	}
	return text, nil
}

// Close releases idle connections.
func (p *HTTPProvider) Close() {
	p.httpClient.CloseIdleConnections()
}
