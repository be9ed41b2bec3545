package reflux

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher is a Watcher for a control file. Every write to the file emits
// its full contents as one message, so the file holds a single encoded
// action that operators overwrite to issue the next one.
type FileWatcher struct {
	path        string
	skipInitial bool
}

// NewFileWatcher creates a FileWatcher for the given file path. The current
// contents are emitted as soon as Watch is called; see SkipInitial.
func NewFileWatcher(path string) *FileWatcher {
	return &FileWatcher{path: path}
}

// SkipInitial stops the watcher from emitting the contents present when Watch
// is called, so only later writes are dispatched.
func (w *FileWatcher) SkipInitial() *FileWatcher {
	w.skipInitial = true
	return w
}

// Watch begins watching the file and returns a channel that emits the file
// contents whenever the file is written or recreated. Empty reads, such as
// the truncation step of an editor save, are skipped.
func (w *FileWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch file %s: %w", w.path, err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer watcher.Close()

		emit := func() bool {
			data, err := os.ReadFile(w.path)
			if err != nil || len(data) == 0 {
				return true
			}
			select {
			case out <- data:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !w.skipInitial && !emit() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if !emit() {
					return
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, nil
}

var _ Watcher = (*FileWatcher)(nil)
