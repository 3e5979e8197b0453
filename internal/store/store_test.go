package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sift/internal/analysis"
	"sift/internal/store"
	"sift/internal/testsupport"
	"sift/internal/transcript"
)

func sampleResult(t *testing.T) *analysis.Result {
	t.Helper()
	chunks := transcript.Segment(testsupport.SampleCaptions)
	areas := []analysis.ProblemArea{{
		ID:    "1",
		Title: "Manual invoice tracking",
		Excerpts: []analysis.Excerpt{{
			Categories:  []analysis.Category{analysis.CategoryPainPoint},
			Insight:     "Weekly manual effort",
			ChunkNumber: 2,
		}},
	}}
	return analysis.Assemble(chunks, areas, analysis.Synthesis{Text: "summary"}, analysis.AssembleOptions{})
}

func TestPersistAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	record, err := s.Persist(ctx, sampleResult(t), store.Metadata{ProjectID: "proj-1", UserID: "user-7", SourceName: "call.vtt"})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if record.ID == "" || record.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %#v", record)
	}

	stored, err := s.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.ProjectID != "proj-1" || stored.UserID != "user-7" || stored.SourceName != "call.vtt" {
		t.Fatalf("unexpected caller metadata %#v", stored.Summary)
	}
	if stored.TranscriptLength != 3 || stored.ProblemAreaCount != 1 || stored.ExcerptCount != 1 {
		t.Fatalf("unexpected counts %#v", stored.Summary)
	}
	areas := stored.Result.ProblemAreas()
	if len(areas) != 1 || areas[0].Excerpts[0].Quote == "" {
		t.Fatalf("expected backfilled quote to survive round trip, got %#v", areas)
	}
}

func TestPersistHonoursExplicitID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	record, err := s.Persist(context.Background(), sampleResult(t), store.Metadata{ID: "fixed-id"})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if record.ID != "fixed-id" {
		t.Fatalf("expected explicit id, got %q", record.ID)
	}
	if _, err := s.Persist(context.Background(), sampleResult(t), store.Metadata{ID: "fixed-id"}); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var ids []string
	for range 3 {
		record, err := s.Persist(ctx, sampleResult(t), store.Metadata{})
		if err != nil {
			t.Fatalf("Persist failed: %v", err)
		}
		ids = append(ids, record.ID)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("expected newest first, got %v before %v", all[i-1].CreatedAt, all[i].CreatedAt)
		}
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestListOrdersRecordsWithinOneSecond(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	stamps := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(120 * time.Millisecond),
		base.Add(120*time.Millisecond + time.Microsecond),
	}
	next := 0
	s, err := store.Open(cfg, store.WithClock(func() time.Time {
		ts := stamps[next]
		next++
		return ts
	}))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	var ids []string
	for range stamps {
		record, err := s.Persist(ctx, sampleResult(t), store.Metadata{})
		if err != nil {
			t.Fatalf("Persist failed: %v", err)
		}
		ids = append(ids, record.ID)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != len(stamps) {
		t.Fatalf("expected %d summaries, got %d", len(stamps), len(all))
	}
	for i, summary := range all {
		want := len(stamps) - 1 - i
		if summary.ID != ids[want] || !summary.CreatedAt.Equal(stamps[want]) {
			t.Fatalf("position %d: got %s at %s, want %s at %s", i, summary.ID, summary.CreatedAt, ids[want], stamps[want])
		}
	}
}

func TestDeleteAndNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	record, err := s.Persist(ctx, sampleResult(t), store.Metadata{})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if err := s.Delete(ctx, record.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, record.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, record.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if _, err := first.Persist(context.Background(), sampleResult(t), store.Metadata{ID: "keep"}); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := testsupport.MustOpenStore(t, cfg)
	if _, err := second.Get(context.Background(), "keep"); err != nil {
		t.Fatalf("expected record to survive reopen: %v", err)
	}
}
