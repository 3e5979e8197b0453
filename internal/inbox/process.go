package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sift/internal/logging"
	"sift/internal/pipeline"
	"sift/internal/services"
	"sift/internal/store"
)

// Outcome describes where a processed inbox file ended up.
type Outcome struct {
	Source   string
	Record   store.Record
	MovedTo  string
	Kind     pipeline.Kind
	Duration time.Duration
}

// Succeeded reports whether the file was analysed and stored.
func (o Outcome) Succeeded() bool {
	return o.Kind == ""
}

// Process analyses one transcript file and moves it to done/ on success or
// failed/ on error. A failed file gets a sibling .error note carrying the
// error kind and message.
func (w *Watcher) Process(ctx context.Context, path string) (Outcome, error) {
	source := filepath.Base(path)
	ctx = services.WithSource(ctx, source)
	logger := logging.WithContext(ctx, w.logger)
	started := time.Now()
	outcome := Outcome{Source: source}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return outcome, fmt.Errorf("inbox: %s vanished before processing: %w", source, err)
		}
		return outcome, fmt.Errorf("inbox: read %s: %w", source, err)
	}

	record, _, runErr := w.analyzer.AnalyzeAndStore(ctx, string(data), store.Metadata{SourceName: source})
	outcome.Duration = time.Since(started)
	if runErr != nil {
		outcome.Kind = pipeline.KindOf(runErr)
		moved, moveErr := w.moveTo(path, FailedDir)
		if moveErr != nil {
			return outcome, errors.Join(runErr, moveErr)
		}
		outcome.MovedTo = moved
		if noteErr := writeErrorNote(moved, outcome.Kind, runErr); noteErr != nil {
			logger.Warn("failed to write error note", logging.Error(noteErr))
		}
		logging.ErrorWithContext(logger, "inbox file failed", "inbox_failed",
			logging.String("error_kind", string(outcome.Kind)),
			logging.String("moved_to", moved),
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "fix the cause and move the file back into the inbox"),
		)
		return outcome, runErr
	}

	outcome.Record = record
	moved, err := w.moveTo(path, DoneDir)
	if err != nil {
		return outcome, err
	}
	outcome.MovedTo = moved
	logger.Info("inbox file analysed",
		logging.String(logging.FieldEventType, "inbox_done"),
		logging.String("analysis_id", record.ID),
		logging.String("moved_to", moved),
		logging.Duration("duration", outcome.Duration),
	)
	return outcome, nil
}

// moveTo renames path into the given subdirectory, adding a timestamp when a
// file of the same name already exists there.
func (w *Watcher) moveTo(path, sub string) (string, error) {
	name := filepath.Base(path)
	target := filepath.Join(w.dir, sub, name)
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		target = filepath.Join(w.dir, sub, fmt.Sprintf("%s-%s%s", stem, time.Now().UTC().Format("20060102T150405.000000000"), ext))
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("inbox: move %s to %s: %w", name, sub, err)
	}
	return target, nil
}

func writeErrorNote(movedPath string, kind pipeline.Kind, err error) error {
	note := fmt.Sprintf("kind: %s\nmessage: %s\n", kind, pipeline.MessageOf(err))
	return os.WriteFile(movedPath+".error", []byte(note), 0o644)
}
