package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sift/internal/services"
)

func writeChoice(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	payload := map[string]any{"choices": []any{choice}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		writeChoice(t, w, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChoice(t, w, map[string]any{"message": map[string]any{"content": "```json\n{\"ok\":true}\n```"}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	err := client.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected health check to fail")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service marker, got %v", err)
	}
}

func TestClientMissingAPIKeyIsConfigurationError(t *testing.T) {
	client := NewClient(Config{Model: "demo"})
	_, err := client.Complete(context.Background(), "prompt")
	if !services.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestClientCompleteSendsAnalystPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "sift" {
			t.Fatalf("unexpected title header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "demo-model" || len(req.Messages) != 2 {
			t.Fatalf("unexpected request %#v", req)
		}
		if req.Messages[0].Content != AnalystSystemPrompt || req.Messages[1].Content != "List the problem areas." {
			t.Fatalf("unexpected messages %#v", req.Messages)
		}
		writeChoice(t, w, map[string]any{"message": map[string]any{"content": `{"problemAreas":[]}`}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Title: "sift"})
	out, err := client.Complete(context.Background(), "  List the problem areas.  ")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if out != `{"problemAreas":[]}` {
		t.Fatalf("unexpected content %q", out)
	}
}

func TestClientCompleteAlternatePayloadShapes(t *testing.T) {
	cases := map[string]map[string]any{
		"tool call arguments": {
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"content": "",
				"tool_calls": []any{map[string]any{
					"type":     "function",
					"id":       "call_1",
					"function": map[string]any{"name": "emit", "arguments": `{"text":"tool"}`},
				}},
			},
		},
		"delta content": {"delta": map[string]any{"content": `{"text":"delta"}`}},
		"legacy text":   {"finish_reason": "stop", "text": `{"text":"legacy"}`},
	}
	for name, choice := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeChoice(t, w, choice)
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
			out, err := client.Complete(context.Background(), "prompt")
			if err != nil {
				t.Fatalf("Complete returned error: %v", err)
			}
			if !strings.Contains(out, `"text"`) {
				t.Fatalf("unexpected content %q", out)
			}
		})
	}
}

func TestClientEmptyContentHasSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChoice(t, w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected complete to fail")
	}
	if !errors.Is(err, services.ErrEmptyResponse) {
		t.Fatalf("expected empty response marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestClientDoesNotRetryByDefault(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if _, err := client.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestClientRetriesOnHTTP429WhenConfigured(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		writeChoice(t, w, map[string]any{"message": map[string]any{"content": `{"text":"ok"}`}})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(3),
	)
	if _, err := client.Complete(context.Background(), "prompt"); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientTimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
	)
	_, err := client.Complete(context.Background(), "prompt")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}
