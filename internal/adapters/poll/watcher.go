// Package poll implements the ports.Watcher interface by periodically
// scanning the directory tree and diffing file metadata between scans.
// It costs a full walk per interval but works on filesystems where change
// notification is unavailable or unreliable (NFS mounts, some container
// overlays); the fsnotify adapter is preferred everywhere else.
package poll

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/corey/rewatch/internal/domain/debounce"
	"github.com/corey/rewatch/internal/domain/filter"
	"github.com/corey/rewatch/internal/ports"
)

// Watcher implements ports.Watcher by scan-and-diff.
type Watcher struct {
	filter   *filter.Filter
	debounce *debounce.Debouncer
	interval time.Duration

	root   string
	events chan ports.ChangeEvent
	errs   chan error
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
}

// fileStamp is the per-file metadata compared between scans. A file counts
// as changed when either field differs; a path missing from the previous
// scan counts as new. Paths that disappear are not a trigger.
type fileStamp struct {
	modTime time.Time
	size    int64
}

// NewWatcher creates a polling watcher. quiet is the debounce interval,
// interval the time between tree scans.
func NewWatcher(f *filter.Filter, quiet, interval time.Duration) *Watcher {
	w := &Watcher{
		filter:   f,
		interval: interval,
		events:   make(chan ports.ChangeEvent, 1),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
	w.debounce = debounce.New(quiet, w.emit)
	return w
}

// Watch takes a baseline scan of root and starts the scan loop.
func (w *Watcher) Watch(root string) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", absPath)
	}
	w.root = absPath

	baseline, err := w.scan()
	if err != nil {
		return err
	}

	go w.loop(baseline)
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

func (w *Watcher) loop(prev map[string]fileStamp) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			next, err := w.scan()
			if err != nil {
				w.fail(fmt.Errorf("scan %s: %w", w.root, err))
				return
			}
			w.diff(prev, next)
			prev = next

		case <-w.done:
			return
		}
	}
}

// scan walks the tree and stamps every relevant file. A read failure on
// the root itself is fatal; failures deeper in the tree are skipped, the
// same way the notification adapter skips unreadable subtrees.
func (w *Watcher) scan() (map[string]fileStamp, error) {
	stamps := make(map[string]fileStamp)
	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == w.root {
				return err
			}
			return nil
		}
		if info.IsDir() {
			if w.filter.IgnoreDir(info.Name()) && path != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if w.relevant(path) {
			stamps[path] = fileStamp{modTime: info.ModTime(), size: info.Size()}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stamps, nil
}

// relevant runs the filter on the root-relative form of path; ignore names
// never match directories above the root.
func (w *Watcher) relevant(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.filter.Relevant(rel)
}

// diff feeds new and modified paths into the debouncer.
func (w *Watcher) diff(prev, next map[string]fileStamp) {
	for path, stamp := range next {
		old, seen := prev[path]
		if !seen {
			slog.Debug("change detected", "path", path, "op", "new")
			w.debounce.Touch()
			continue
		}
		if stamp != old {
			slog.Debug("change detected", "path", path, "op", "modified")
			w.debounce.Touch()
		}
	}
}

// emit delivers a ChangeEvent without blocking; a pending event already in
// the slot absorbs the new one.
func (w *Watcher) emit() {
	select {
	case w.events <- ports.ChangeEvent{At: time.Now()}:
	default:
	}
}

func (w *Watcher) fail(err error) {
	select {
	case w.errs <- err:
	default:
	}
}

// Stop ends the scan loop. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	w.debounce.Stop()
	return nil
}
