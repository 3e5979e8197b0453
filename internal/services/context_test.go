package services_test

import (
	"context"
	"testing"

	"sift/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithAnalysisID(ctx, "a-42")
	ctx = services.WithStage(ctx, "excerpts")
	ctx = services.WithSource(ctx, "inbox/interview.vtt")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.AnalysisIDFromContext(ctx); !ok || id != "a-42" {
		t.Fatalf("unexpected analysis id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "excerpts" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if source, ok := services.SourceFromContext(ctx); !ok || source != "inbox/interview.vtt" {
		t.Fatalf("unexpected source: %v %v", source, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.AnalysisIDFromContext(services.WithAnalysisID(ctx, "")); ok {
		t.Fatal("expected no analysis id value")
	}
}
