package inbox_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"sift/internal/config"
	"sift/internal/inbox"
	"sift/internal/pipeline"
	"sift/internal/store"
	"sift/internal/testsupport"
)

func newWatcher(t *testing.T, cfg *config.Config, model *testsupport.StubModel) (*inbox.Watcher, *store.Store) {
	t.Helper()
	s := testsupport.MustOpenStore(t, cfg)
	analyzer, err := pipeline.NewAnalyzer(pipeline.Options{Model: model, Store: s})
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	w, err := inbox.New(inbox.Options{
		Dir:         cfg.Paths.InboxDir,
		LockPath:    cfg.LockPath(),
		Analyzer:    analyzer,
		SettleDelay: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("inbox.New failed: %v", err)
	}
	return w, s
}

func waitFor(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
}

func TestProcessMovesAnalysedFileToDone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	w, s := newWatcher(t, cfg, testsupport.NewStubModel(testsupport.AnalysisResponses()...))

	path := filepath.Join(cfg.Paths.InboxDir, "call.vtt")
	testsupport.WriteFile(t, path, testsupport.SampleCaptions)

	outcome, err := w.Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !outcome.Succeeded() || outcome.Record.ID == "" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.MovedTo != filepath.Join(cfg.Paths.InboxDir, inbox.DoneDir, "call.vtt") {
		t.Fatalf("unexpected destination %q", outcome.MovedTo)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected source file to be moved, stat err=%v", err)
	}

	stored, err := s.Get(context.Background(), outcome.Record.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.SourceName != "call.vtt" {
		t.Fatalf("expected source name to be recorded, got %q", stored.SourceName)
	}
}

func TestProcessMovesFailedFileWithErrorNote(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	model := testsupport.NewStubModel("the model rambled without any json")
	w, s := newWatcher(t, cfg, model)

	path := filepath.Join(cfg.Paths.InboxDir, "broken.vtt")
	testsupport.WriteFile(t, path, testsupport.SampleCaptions)

	outcome, err := w.Process(context.Background(), path)
	if err == nil {
		t.Fatal("expected Process to fail")
	}
	if outcome.Kind != pipeline.KindParse {
		t.Fatalf("expected ParseError, got %q", outcome.Kind)
	}
	if outcome.MovedTo != filepath.Join(cfg.Paths.InboxDir, inbox.FailedDir, "broken.vtt") {
		t.Fatalf("unexpected destination %q", outcome.MovedTo)
	}
	note, err := os.ReadFile(outcome.MovedTo + ".error")
	if err != nil {
		t.Fatalf("read error note: %v", err)
	}
	if !strings.Contains(string(note), "kind: ParseError") {
		t.Fatalf("unexpected note %q", note)
	}
	list, err := s.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected nothing persisted, got %d", len(list))
	}
}

func TestProcessEmptyTranscriptIsNoContent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	model := testsupport.NewStubModel()
	w, _ := newWatcher(t, cfg, model)

	path := filepath.Join(cfg.Paths.InboxDir, "empty.txt")
	testsupport.WriteFile(t, path, "WEBVTT\n\njust some text without cues\n")

	outcome, err := w.Process(context.Background(), path)
	if pipeline.KindOf(err) != pipeline.KindNoContent || outcome.Kind != pipeline.KindNoContent {
		t.Fatalf("expected NoContent, got %v", err)
	}
	if model.Calls() != 0 {
		t.Fatalf("expected no model calls, got %d", model.Calls())
	}
}

func TestMoveKeepsExistingDoneFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	responses := append(testsupport.AnalysisResponses(), testsupport.AnalysisResponses()...)
	w, _ := newWatcher(t, cfg, testsupport.NewStubModel(responses...))

	path := filepath.Join(cfg.Paths.InboxDir, "call.vtt")
	testsupport.WriteFile(t, path, testsupport.SampleCaptions)
	first, err := w.Process(context.Background(), path)
	if err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	testsupport.WriteFile(t, path, testsupport.SampleCaptions)
	second, err := w.Process(context.Background(), path)
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if first.MovedTo == second.MovedTo {
		t.Fatalf("expected distinct destinations, got %q twice", first.MovedTo)
	}
	if !strings.HasPrefix(filepath.Base(second.MovedTo), "call-") {
		t.Fatalf("unexpected renamed destination %q", second.MovedTo)
	}
}

func TestRunProcessesPendingAndNewFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	responses := append(testsupport.AnalysisResponses(), testsupport.AnalysisResponses()...)
	w, _ := newWatcher(t, cfg, testsupport.NewStubModel(responses...))

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InboxDir, "waiting.vtt"), testsupport.SampleCaptions)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InboxDir, "notes.md"), "ignored")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, filepath.Join(cfg.Paths.InboxDir, inbox.DoneDir, "waiting.vtt"))

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InboxDir, "fresh.txt"), testsupport.SampleCaptions)
	waitFor(t, filepath.Join(cfg.Paths.InboxDir, inbox.DoneDir, "fresh.txt"))

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.InboxDir, "notes.md")); err != nil {
		t.Fatalf("expected non-transcript file to stay, got %v", err)
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	w, _ := newWatcher(t, cfg, testsupport.NewStubModel())

	if err := os.MkdirAll(filepath.Dir(cfg.LockPath()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	holder := flock.New(cfg.LockPath())
	ok, err := holder.TryLock()
	if err != nil || !ok {
		t.Fatalf("failed to take lock: ok=%v err=%v", ok, err)
	}
	defer holder.Unlock()

	if err := w.Run(context.Background()); !errors.Is(err, inbox.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := inbox.New(inbox.Options{Dir: cfg.Paths.InboxDir, LockPath: cfg.LockPath()}); err == nil {
		t.Fatal("expected error without analyzer")
	}
	if !inbox.IsTranscriptFile("a/B.VTT") || inbox.IsTranscriptFile("a/b.srt") {
		t.Fatal("unexpected extension filter")
	}
}
