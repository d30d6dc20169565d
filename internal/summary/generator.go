// Package summary generates short book summaries by calling an ordered
// list of OpenAI-compatible inference providers until one succeeds.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Sentinel errors for summary generation.
var (
	// ErrNotConfigured means no provider credential is set; no network
	// call was attempted.
	ErrNotConfigured = errors.New("no inference provider configured")

	// ErrGenerationFailed means every configured provider was tried and
	// the last one failed.
	ErrGenerationFailed = errors.New("summary generation failed")
)

// attemptTimeout bounds a single inference request.
const attemptTimeout = 30 * time.Second

// Provider is one chat-completion endpoint in the fallback chain.
// A provider with an empty APIKey is skipped without a network call.
type Provider struct {
	Name     string
	Endpoint string
	Model    string
	APIKey   string
}

// DefaultProviders returns the fallback chain in attempt order:
// OpenAI first, then Groq.
func DefaultProviders(openAIKey, groqKey string) []Provider {
	return []Provider{
		{
			Name:     "openai",
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-3.5-turbo",
			APIKey:   openAIKey,
		},
		{
			Name:     "groq",
			Endpoint: "https://api.groq.com/openai/v1/chat/completions",
			Model:    "llama-3.3-70b-versatile",
			APIKey:   groqKey,
		},
	}
}

// Generator produces book summaries via the provider chain.
type Generator struct {
	providers  []Provider
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

// NewGenerator creates a Generator. Pass nil for client to use a
// default one; per-attempt deadlines are enforced via context.
func NewGenerator(providers []Provider, client *http.Client, logger *slog.Logger) *Generator {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		providers:  providers,
		httpClient: client,
		logger:     logger,
		timeout:    attemptTimeout,
	}
}

// Summarize builds the prompt and walks the provider chain in order,
// returning the first successful completion. Only one request is in
// flight at a time; a provider is attempted only if its credential is
// configured and every earlier attempt failed.
func (g *Generator) Summarize(ctx context.Context, title, author string) (string, error) {
	prompt := buildPrompt(title, author)

	var lastErr error
	attempted := false

	for _, p := range g.providers {
		if p.APIKey == "" {
			continue
		}
		attempted = true

		text, err := g.complete(ctx, p, prompt)
		if err == nil {
			return text, nil
		}

		// Non-final failures are swallowed; the chain just moves on.
		g.logger.Warn("inference provider failed",
			slog.String("provider", p.Name),
			slog.String("error", err.Error()),
		)
		lastErr = err
	}

	if !attempted {
		return "", ErrNotConfigured
	}
	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

// chatRequest is the OpenAI-compatible completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the completion response we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete issues one bounded completion request to a single provider.
func (g *Generator) complete(ctx context.Context, p Provider, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: p.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s returned status %d: %s", p.Name, resp.StatusCode, detail)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", p.Name, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.Name)
	}

	return completion.Choices[0].Message.Content, nil
}

// buildPrompt produces the fixed-shape summary prompt.
func buildPrompt(title, author string) string {
	return fmt.Sprintf(`Please provide a concise summary of the book "%s" by %s.

Include:
1. A brief plot overview (2-3 sentences)
2. Main themes (2-3 key themes)
3. Notable aspects or why it's significant

Keep the response under 200 words and make it informative for someone deciding whether to read the book.`, title, author)
}
