package ports

import "time"

// ChangeEvent signals that at least one qualifying file change happened.
// It deliberately carries no path: by the time the debounce window closes
// the set of touched files is stale, and the loop restarts the child either
// way. Contributing paths show up in debug logs only.
type ChangeEvent struct {
	// At is when the debounce window closed.
	At time.Time
}

// Watcher monitors a directory tree and reports qualifying file changes,
// filtered and debounced. Two implementations exist: adapters/fsnotify
// (OS change notification) and adapters/poll (periodic tree scan, for
// filesystems without notification support). Only one Watch call may be
// active per Watcher.
type Watcher interface {
	// Watch starts monitoring root recursively and returns once the watch
	// is registered; events are delivered asynchronously. Returns an error
	// if root doesn't exist or can't be read.
	Watch(root string) error

	// Events returns the change channel. It has capacity one and holds the
	// latest pending change: sends are non-blocking, so changes arriving
	// while the consumer is busy coalesce into a single event. The channel
	// is never closed.
	Events() <-chan ChangeEvent

	// Errors returns the channel for unrecoverable watch failures, such as
	// the root directory disappearing. Receiving from it means the watch
	// is no longer reliable and the consumer should shut down.
	Errors() <-chan error

	// Stop ends monitoring and releases OS resources. After Stop returns,
	// no further events fire. Safe to call multiple times.
	Stop() error
}
