package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceWindow coalesces rapid editor events for one file.
const DefaultDebounceWindow = 200 * time.Millisecond

// Watcher re-ingests markdown files as they change on disk. Rapid
// events for the same path within the debounce window collapse into
// one ingest.
type Watcher struct {
	window time.Duration
	ingest func(ctx context.Context, path string) error

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher feeding the pipeline. A non-positive
// window uses the default.
func NewWatcher(p *Pipeline, window time.Duration) *Watcher {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Watcher{
		window: window,
		ingest: func(ctx context.Context, path string) error {
			_, err := p.Ingest(ctx, Request{Source: path})
			return err
		},
		timers: make(map[string]*time.Timer),
	}
}

// Watch observes dir and its subdirectories until the context ends.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := addRecursive(fw, dir); err != nil {
		return err
	}
	slog.Info("watching for markdown changes", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addRecursive(fw, event.Name); err != nil {
				slog.Warn("watch subdirectory failed",
					slog.String("dir", event.Name),
					slog.String("error", err.Error()))
			}
			return
		}
	}
	if !isMarkdown(event.Name) {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	w.enqueue(ctx, event.Name)
}

// enqueue schedules one ingest for the path after the debounce window,
// resetting the clock on every new event.
func (w *Watcher) enqueue(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.window, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if err := w.ingest(ctx, path); err != nil {
			slog.Error("re-ingest failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}
