package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sift/internal/services"
)

func geminiServer(t *testing.T, text string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "demo-model:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": status, "message": "unavailable", "status": "UNAVAILABLE"},
			})
			return
		}
		payload := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			}},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func TestCompleteReturnsCandidateText(t *testing.T) {
	server := geminiServer(t, `{"problemAreas":[]}`, http.StatusOK)
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	out, err := client.Complete(context.Background(), "List the problem areas.")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if out != `{"problemAreas":[]}` {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestHealthCheck(t *testing.T) {
	server := geminiServer(t, "```json\n{\"ok\":true}\n```", http.StatusOK)
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestCompleteServerErrorIsExternalServiceFailure(t *testing.T) {
	server := geminiServer(t, "", http.StatusServiceUnavailable)
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	_, err := client.Complete(context.Background(), "prompt")
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service marker, got %v", err)
	}
}

func TestMissingKeyIsConfigurationError(t *testing.T) {
	client := NewClient(Config{Model: "demo-model"})
	_, err := client.Complete(context.Background(), "prompt")
	if !services.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if client.Name() != "gemini" || client.Model() != "demo-model" {
		t.Fatalf("unexpected identity %s/%s", client.Name(), client.Model())
	}
}
