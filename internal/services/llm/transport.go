package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"sift/internal/services"
)

const snippetLimit = 160

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// chatChoice tolerates the shapes providers return in practice: a regular
// message, a streaming delta sent with stream=false, legacy completion text,
// or JSON carried in tool or function call arguments.
type chatChoice struct {
	Message      replyMessage `json:"message"`
	Delta        replyMessage `json:"delta"`
	Text         string       `json:"text"`
	FinishReason string       `json:"finish_reason"`
}

type replyMessage struct {
	Content      string        `json:"content"`
	Refusal      string        `json:"refusal"`
	FunctionCall *functionCall `json:"function_call"`
	ToolCalls    []struct {
		Function functionCall `json:"function"`
	} `json:"tool_calls"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (m replyMessage) arguments() string {
	if m.FunctionCall != nil {
		if args := strings.TrimSpace(m.FunctionCall.Arguments); args != "" {
			return args
		}
	}
	for _, call := range m.ToolCalls {
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			return args
		}
	}
	return ""
}

func (ch chatChoice) content() string {
	for _, candidate := range []string{ch.Message.Content, ch.Delta.Content, ch.Text, ch.Message.arguments(), ch.Delta.arguments()} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type statusError struct {
	code       int
	body       string
	retryAfter string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.code, e.body)
}

type emptyContentError struct {
	op           string
	finishReason string
	refusal      string
	snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.op, e.finishReason, e.refusal, e.snippet)
}

// send performs one HTTP round trip and returns the first non-empty choice.
func (c *Client) send(ctx context.Context, op string, payload chatRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &statusError{
			code:       resp.StatusCode,
			body:       strings.TrimSpace(string(body)),
			retryAfter: resp.Header.Get("Retry-After"),
		}
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	if len(decoded.Choices) == 0 {
		return "", &emptyContentError{op: op, snippet: snippet(body)}
	}
	for _, choice := range decoded.Choices {
		if content := choice.content(); content != "" {
			return content, nil
		}
	}
	first := decoded.Choices[0]
	return "", &emptyContentError{
		op:           op,
		finishReason: strings.TrimSpace(first.FinishReason),
		refusal:      strings.TrimSpace(first.Message.Refusal + first.Delta.Refusal),
		snippet:      snippet(body),
	}
}

// classify tags a failure with the services marker callers branch on.
func classify(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return services.Wrap(services.ErrTimeout, "llm", op, "", err)
	case errors.As(err, new(*emptyContentError)):
		return services.Wrap(services.ErrEmptyResponse, "llm", op, "", err)
	default:
		return services.Wrap(services.ErrExternalService, "llm", op, "", err)
	}
}

func snippet(body []byte) string {
	clean := strings.Join(strings.Fields(string(body)), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > snippetLimit {
		return string(runes[:snippetLimit]) + "..."
	}
	return clean
}
