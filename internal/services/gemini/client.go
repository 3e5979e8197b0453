package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"sift/internal/llmschema"
	"sift/internal/services"
)

const (
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 60 * time.Second
	jsonMIMEType   = "application/json"

	systemPrompt = "You are a user-research analyst. Respond with a single JSON object and nothing else."
)

// Config captures the settings required to talk to the Gemini API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the Google Gen AI SDK behind the pipeline's model client
// contract.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client handed to the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a Gemini client. The SDK client itself is built per
// call so a missing key surfaces as a configuration error at call time.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	if c.cfg.Model == "" {
		c.cfg.Model = defaultModel
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider for breaker and log fields.
func (c *Client) Name() string {
	return "gemini"
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends prompt and returns the concatenated text of the first
// candidate.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("gemini complete: prompt required")
	}
	return c.generate(ctx, "complete", prompt)
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.generate(ctx, "health", "Respond with {\"ok\":true}")
	if err != nil {
		return err
	}
	parsed, err := llmschema.Extract(content)
	if err != nil {
		return fmt.Errorf("gemini health: %w", err)
	}
	if ok, _ := parsed["ok"].(bool); !ok {
		return errors.New("gemini health: unexpected response")
	}
	return nil
}

func (c *Client) generate(ctx context.Context, op, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "gemini", op, "api key required", nil)
	}
	clientCfg := &genai.ClientConfig{
		APIKey:     c.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "gemini", op, "create client", err)
	}

	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  jsonMIMEType,
		Temperature:       &temperature,
	}
	result, err := client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(prompt), config)
	if err != nil {
		return "", classify(op, err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", services.Wrap(services.ErrEmptyResponse, "gemini", op, "no candidates", nil)
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		reason := string(result.Candidates[0].FinishReason)
		return "", services.Wrap(services.ErrEmptyResponse, "gemini", op, "empty content (finish_reason="+reason+")", nil)
	}
	return text, nil
}

func classify(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return services.Wrap(services.ErrTimeout, "gemini", op, "", err)
	default:
		return services.Wrap(services.ErrExternalService, "gemini", op, "generate content", err)
	}
}
