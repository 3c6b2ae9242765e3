package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher debounces filesystem change events under one connector's root,
// using a debounce/accumulate pattern, and feeds the "sync --watch"
// continuous-ingestion mode.
type Watcher struct {
	fsw          *fsnotify.Watcher
	root         string
	debounce     time.Duration
	accumulated  map[string]bool
	accumulateMu sync.Mutex
	timer        *time.Timer
	timerMu      sync.Mutex
}

// NewWatcher recursively watches dir and all its subdirectories.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:         fsw,
		root:        dir,
		debounce:    500 * time.Millisecond,
		accumulated: make(map[string]bool),
	}
	if err := w.addRecursively(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursively(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Start runs until ctx is cancelled, invoking onChange with the set of
// changed relative paths after each debounce-quiet period.
func (w *Watcher) Start(ctx context.Context, onChange func(paths []string)) {
	go func() {
		defer w.fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				w.record(ev.Name)
				w.scheduleFlush(onChange)
			case <-w.fsw.Errors:
				// Swallow watcher-internal errors; the debounce loop keeps running.
			}
		}
	}()
}

func (w *Watcher) record(path string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	w.accumulateMu.Lock()
	w.accumulated[filepath.ToSlash(rel)] = true
	w.accumulateMu.Unlock()
}

func (w *Watcher) scheduleFlush(onChange func(paths []string)) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.accumulateMu.Lock()
		paths := make([]string, 0, len(w.accumulated))
		for p := range w.accumulated {
			paths = append(paths, p)
		}
		w.accumulated = make(map[string]bool)
		w.accumulateMu.Unlock()
		if len(paths) > 0 {
			onChange(paths)
		}
	})
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
