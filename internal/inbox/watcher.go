package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"sift/internal/analysis"
	"sift/internal/logging"
	"sift/internal/store"
)

const (
	// DoneDir and FailedDir are created inside the inbox directory.
	DoneDir   = "done"
	FailedDir = "failed"

	defaultSettleDelay = 500 * time.Millisecond
)

// ErrAlreadyRunning is returned when another watcher holds the lock.
var ErrAlreadyRunning = errors.New("another sift watcher is already running")

// Analyzer runs and persists one analysis.
type Analyzer interface {
	AnalyzeAndStore(ctx context.Context, raw string, meta store.Metadata) (store.Record, *analysis.Result, error)
}

// Options configures a Watcher.
type Options struct {
	Dir      string
	LockPath string
	Analyzer Analyzer
	Logger   *slog.Logger
	// SettleDelay is waited after a create event so writers can finish.
	SettleDelay time.Duration
	// MaxConcurrent caps in-flight analyses. Defaults to 1.
	MaxConcurrent int
}

// Watcher analyses transcript files dropped into the inbox directory.
type Watcher struct {
	dir       string
	analyzer  Analyzer
	logger    *slog.Logger
	lock      *flock.Flock
	settle    time.Duration
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New validates opts and prepares the inbox directories.
func New(opts Options) (*Watcher, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, errors.New("inbox: directory required")
	}
	if opts.Analyzer == nil {
		return nil, errors.New("inbox: analyzer required")
	}
	if strings.TrimSpace(opts.LockPath) == "" {
		return nil, errors.New("inbox: lock path required")
	}
	for _, sub := range []string{"", DoneDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("inbox: create %s: %w", filepath.Join(dir, sub), err)
		}
	}
	settle := opts.SettleDelay
	if settle < 0 {
		settle = 0
	} else if settle == 0 {
		settle = defaultSettleDelay
	}
	workers := opts.MaxConcurrent
	if workers <= 0 {
		workers = 1
	}
	return &Watcher{
		dir:       dir,
		analyzer:  opts.Analyzer,
		logger:    logging.NewComponentLogger(opts.Logger, "inbox"),
		lock:      flock.New(opts.LockPath),
		settle:    settle,
		semaphore: make(chan struct{}, workers),
		inflight:  make(map[string]struct{}),
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run holds the single-instance lock, processes files already waiting in the
// inbox and then watches for new ones until ctx is cancelled. In-flight
// analyses are allowed to finish before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("inbox: acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.lock.Unlock(); err != nil {
			w.logger.Warn("failed to release watcher lock", logging.Error(err))
		}
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", w.dir, err)
	}

	w.logger.Info("inbox watcher started",
		logging.String(logging.FieldEventType, "watch_start"),
		logging.String("dir", w.dir),
		logging.Int("max_concurrent", cap(w.semaphore)),
	)

	pending, err := w.Pending()
	if err != nil {
		return err
	}
	for _, path := range pending {
		if !w.dispatch(ctx, path) {
			return w.stop(ctx)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return w.stop(ctx)
		case event, ok := <-fsw.Events:
			if !ok {
				w.wg.Wait()
				return errors.New("inbox: watcher events channel closed")
			}
			// Files moved into the inbox also arrive as Create.
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !IsTranscriptFile(event.Name) {
				w.logger.Debug("ignoring inbox entry", logging.String("path", event.Name))
				continue
			}
			if w.settle > 0 {
				select {
				case <-time.After(w.settle):
				case <-ctx.Done():
					return w.stop(ctx)
				}
			}
			if !w.dispatch(ctx, event.Name) {
				return w.stop(ctx)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				w.wg.Wait()
				return errors.New("inbox: watcher errors channel closed")
			}
			logging.WarnWithContext(w.logger, "inbox watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some inbox events may have been missed"),
			)
		}
	}
}

func (w *Watcher) stop(ctx context.Context) error {
	w.logger.Info("waiting for in-flight analyses", logging.String(logging.FieldEventType, "watch_drain"))
	w.wg.Wait()
	w.logger.Info("inbox watcher stopped", logging.String(logging.FieldEventType, "watch_stop"))
	return ctx.Err()
}

// dispatch hands path to a worker. It returns false when ctx ended while
// waiting for a free slot.
func (w *Watcher) dispatch(ctx context.Context, path string) bool {
	if !w.claim(path) {
		return true
	}
	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		w.release(path)
		return false
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.semaphore }()
		defer w.release(path)
		// Analyses already started run to completion on shutdown.
		if _, err := w.Process(context.WithoutCancel(ctx), path); err != nil {
			w.logger.Debug("inbox file failed", logging.String("path", path), logging.Error(err))
		}
	}()
	return true
}

func (w *Watcher) claim(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inflight[path]; busy {
		return false
	}
	w.inflight[path] = struct{}{}
	return true
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	delete(w.inflight, path)
	w.mu.Unlock()
}

// Pending lists transcript files waiting in the inbox, sorted by name.
func (w *Watcher) Pending() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("inbox: read %s: %w", w.dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsTranscriptFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// IsTranscriptFile reports whether path has a supported transcript extension.
func IsTranscriptFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vtt", ".txt":
		return true
	default:
		return false
	}
}
