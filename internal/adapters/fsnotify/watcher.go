// Package fsnotify implements the ports.Watcher interface using OS change
// notification via github.com/fsnotify/fsnotify. It recursively watches a
// directory tree, filters events through the configured path filter, and
// debounces bursts (editors often trigger multiple writes per save) into a
// single ChangeEvent.
package fsnotify

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corey/rewatch/internal/domain/debounce"
	"github.com/corey/rewatch/internal/domain/filter"
	"github.com/corey/rewatch/internal/ports"
)

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw       *fsnotify.Watcher
	filter   *filter.Filter
	debounce *debounce.Debouncer

	root   string
	events chan ports.ChangeEvent
	errs   chan error
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
}

// NewWatcher creates a file system watcher. quiet is the debounce interval:
// a ChangeEvent fires only after that much time passes with no further
// qualifying changes.
func NewWatcher(f *filter.Filter, quiet time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:     fw,
		filter: f,
		events: make(chan ports.ChangeEvent, 1),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	w.debounce = debounce.New(quiet, w.emit)
	return w, nil
}

// Watch starts monitoring root recursively.
func (w *Watcher) Watch(root string) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.root = absPath

	// Walk and add all directories, pruning ignored ones
	err = filepath.Walk(absPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == absPath {
				return err
			}
			return nil // skip inaccessible paths
		}
		if info.IsDir() {
			if w.filter.IgnoreDir(info.Name()) && path != absPath {
				return filepath.SkipDir
			}
			return w.fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.loop()
	return nil
}

// Events returns the coalescing change channel.
func (w *Watcher) Events() <-chan ports.ChangeEvent {
	return w.events
}

// Errors returns the fatal watch error channel.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// The kernel queue overran: changes happened but were
				// lost, so count the overflow itself as a change.
				slog.Warn("event queue overflowed, forcing a change event")
				w.debounce.Touch()
				continue
			}
			w.fail(err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// The watch root disappearing ends the session.
	if path == w.root && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
		w.fail(fmt.Errorf("watch root removed: %s", w.root))
		return
	}

	// For Create events, extend the watch into new directories. Files that
	// landed inside before the watch registered are picked up by the scan.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.filter.IgnoreDir(info.Name()) {
				w.addNewTree(path)
			}
			return
		}
	}

	// Deletions don't restart anything: the next build would only fail
	// sooner, and save-then-delete churn from editors stays quiet.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	if !w.relevant(path) {
		return
	}

	slog.Debug("change detected", "path", path, "op", event.Op.String())
	w.debounce.Touch()
}

// relevant applies the filter to the root-relative form of path, so ignore
// names match directories inside the tree only, never ancestors of the
// root itself.
func (w *Watcher) relevant(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.filter.Relevant(rel)
}

// addNewTree registers watches for a directory created after Watch started,
// including any directories nested inside it, and counts files already in
// it as changes.
func (w *Watcher) addNewTree(dir string) {
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if w.filter.IgnoreDir(info.Name()) && path != dir {
				return filepath.SkipDir
			}
			w.fw.Add(path)
			return nil
		}
		if w.relevant(path) {
			slog.Debug("change detected", "path", path, "op", "CREATE")
			w.debounce.Touch()
		}
		return nil
	})
}

// emit delivers a ChangeEvent without blocking. When the slot already holds
// a pending event the new change coalesces into it.
func (w *Watcher) emit() {
	select {
	case w.events <- ports.ChangeEvent{At: time.Now()}:
	default:
	}
}

// fail reports a fatal watch error. Only the first one matters; later
// failures are dropped.
func (w *Watcher) fail(err error) {
	select {
	case w.errs <- err:
	default:
	}
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	w.debounce.Stop()
	return w.fw.Close()
}
