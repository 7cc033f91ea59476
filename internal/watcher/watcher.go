package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a reload fires
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches topology files and calls onChange once writes settle
type Watcher struct {
	paths    []string
	onChange func(path string)
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a new file watcher for one or more files
func New(onChange func(path string), paths ...string) *Watcher {
	return &Watcher{
		paths:    paths,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// WithLogger sets the logger
func (w *Watcher) WithLogger(l *slog.Logger) *Watcher {
	if l != nil {
		w.logger = l
	}
	return w
}

// Watch starts watching the files for changes.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch the containing directories so files replaced by editors
	// (write to temp, rename over) are still seen
	watchedDirs := make(map[string]bool)
	fileSet := make(map[string]bool)

	for _, path := range w.paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := fw.Add(dir); err != nil {
				return err
			}
			watchedDirs[dir] = true
		}
		fileSet[absPath] = true
		w.logger.Info("Watching file for changes", "path", absPath)
	}

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil || !fileSet[absPath] {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			mu.Lock()
			if t, exists := timers[absPath]; exists {
				t.Stop()
			}
			timers[absPath] = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				w.logger.Info("File changed", "path", absPath)
				w.onChange(absPath)
			})
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
