package services_test

import (
	"errors"
	"strings"
	"testing"

	"sift/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "llm", "complete", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"llm", "complete", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestIsConfiguration(t *testing.T) {
	if !services.IsConfiguration(services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)) {
		t.Fatal("expected configuration error to be detected")
	}
	if services.IsConfiguration(services.Wrap(services.ErrTimeout, "llm", "complete", "", nil)) {
		t.Fatal("timeout should not be a configuration error")
	}
}
