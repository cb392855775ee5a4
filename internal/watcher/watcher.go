// Package watcher feeds newly arrived media files into the queue. It
// watches the library roots recursively and waits for files to stop
// growing before enqueueing them.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vodarr/vodarr/internal/scanner"
)

// Enqueuer is the queue-facing side of the watcher.
type Enqueuer interface {
	Enqueue(sourcePath string, highPriority bool) (created bool)
}

// EnqueueFunc adapts a function to Enqueuer.
type EnqueueFunc func(sourcePath string, highPriority bool) bool

func (f EnqueueFunc) Enqueue(sourcePath string, highPriority bool) bool {
	return f(sourcePath, highPriority)
}

// Watcher observes the library roots for new video files.
type Watcher struct {
	roots    []string
	settle   time.Duration
	enqueuer Enqueuer
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a Watcher over the given roots. Roots that do not exist are
// skipped at start.
func New(roots []string, settle time.Duration, enqueuer Enqueuer, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &Watcher{
		roots:    roots,
		settle:   settle,
		enqueuer: enqueuer,
		logger:   logger.With(slog.String("component", "watcher")),
		pending:  make(map[string]*time.Timer),
	}
}

// Run watches until the context is cancelled. Writes reset the settle
// timer, so a file still being copied is only enqueued once it goes quiet.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, root := range w.roots {
		if err := w.addRecursive(fsw, root); err != nil {
			w.logger.Warn("watching root failed",
				slog.String("root", root),
				slog.String("error", err.Error()),
			)
		}
	}

	w.logger.Info("watcher started", slog.Int("roots", len(w.roots)))

	for {
		select {
		case <-ctx.Done():
			w.cancelTimers()
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	// New directories join the watch so nested drops are seen.
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.addRecursive(fsw, event.Name); err != nil {
				w.logger.Warn("watching new directory failed",
					slog.String("dir", event.Name),
					slog.String("error", err.Error()),
				)
			}
		}
		return
	}

	if !scanner.IsVideoFile(event.Name) {
		return
	}
	w.touch(event.Name)
}

// touch (re)arms the settle timer for a path.
func (w *Watcher) touch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.settled(path)
	})
}

// settled fires once a file has been quiet for the settle window. Watched
// arrivals are user-visible events, so they enter at high priority.
func (w *Watcher) settled(path string) {
	if created := w.enqueuer.Enqueue(path, true); created {
		w.logger.Info("queued new file", slog.String("path", path))
	}
}

func (w *Watcher) cancelTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return nil
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
