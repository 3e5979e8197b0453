package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sift/internal/llmschema"
	"sift/internal/services"
)

const (
	providerName       = "openrouter"
	defaultBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout = 60 * time.Second

	// AnalystSystemPrompt frames every pipeline completion.
	AnalystSystemPrompt = "You are a user-research analyst. Respond with a single JSON object and nothing else."

	healthSystemPrompt = "You must respond with JSON only."
	healthUserPrompt   = `Respond with {"ok":true}`
)

// Config captures the runtime settings required to talk to OpenRouter.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client sends chat completions to OpenRouter and returns the raw text the
// model produced. Parsing is left to the caller.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      retryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts sets the transport attempt budget. The default of 1
// disables retries.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff overrides the base and maximum retry delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithSleeper replaces the retry sleep, for tests.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.sleep = sleeper
	}
}

// NewClient constructs an OpenRouter client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		retry:      defaultRetryPolicy(),
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider for breaker and log fields.
func (c *Client) Name() string {
	return providerName
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends prompt under the analyst system prompt and returns the raw
// model output.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("llm complete: prompt required")
	}
	return c.chat(ctx, "complete", AnalystSystemPrompt, prompt)
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.chat(ctx, "health", healthSystemPrompt, healthUserPrompt)
	if err != nil {
		return err
	}
	parsed, err := llmschema.Extract(content)
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	if ok, _ := parsed["ok"].(bool); !ok {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

func (c *Client) chat(ctx context.Context, op, system, user string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", op, "api key required", nil)
	}
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	attempt := 1
	for {
		content, err := c.send(ctx, op, req)
		if err == nil {
			return content, nil
		}
		delay, again := c.retry.next(ctx, err, attempt)
		if !again {
			if attempt > 1 {
				err = fmt.Errorf("failed after %d attempts: %w", attempt, err)
			}
			return "", classify(op, err)
		}
		if err := c.retry.wait(ctx, delay); err != nil {
			return "", classify(op, err)
		}
		attempt++
	}
}
