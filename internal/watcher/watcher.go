package watcher

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is reported
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to one project file
type Watcher struct {
	path     string
	onChange func(ctx context.Context, path string)
	debounce time.Duration
}

// New creates a new file watcher. onChange runs on the Watch goroutine, so
// a slow callback delays but never overlaps the next one.
func New(path string, onChange func(ctx context.Context, path string)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch blocks until the context is cancelled or the watcher fails
func (w *Watcher) Watch(ctx context.Context) error {
	return w.watch(ctx, nil)
}

// watch signals ready once the directory is being watched
func (w *Watcher) watch(ctx context.Context, ready chan<- struct{}) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	abs, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}

	// Watch the directory: editors often replace the file instead of
	// writing it in place
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	log.Printf("Watching %s for changes", abs)
	if ready != nil {
		close(ready)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stop()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Restart the quiet period
			stop()
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			log.Printf("File changed: %s", abs)
			w.onChange(ctx, abs)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
