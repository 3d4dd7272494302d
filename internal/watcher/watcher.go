// Package watcher reports files that appear or change in the data folders.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"docrag/internal/logger"
)

const DefaultSettle = 500 * time.Millisecond

// Watcher emits a path once it has stopped changing for the settle interval,
// so a file being copied in is reported once rather than per write.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions map[string]struct{}
	settle     time.Duration
}

// New creates a watcher for files with the given extensions.
func New(extensions []string, settle time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	return &Watcher{watcher: w, extensions: exts, settle: settle}, nil
}

// Watch starts monitoring dirs. The returned channel closes when ctx is done
// or the watcher is stopped.
func (w *Watcher) Watch(ctx context.Context, dirs ...string) (<-chan string, error) {
	for _, dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return nil, err
		}
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		pending := make(map[string]time.Time)
		tick := time.NewTicker(w.settle / 4)
		defer tick.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.watched(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				pending[event.Name] = time.Now()
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher: %v", err)
			case now := <-tick.C:
				for path, last := range pending {
					if now.Sub(last) < w.settle {
						continue
					}
					delete(pending, path)
					select {
					case out <- path:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) watched(path string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
