// Package debounce collapses bursts of events into a single notification.
//
// Editors and build tools touch files several times per save. A Debouncer
// absorbs every Touch and fires its callback once, after the configured
// interval has passed with no further touches (quiet-period semantics:
// each touch pushes the deadline out again).
package debounce

import (
	"sync"
	"time"
)

// Debouncer defers a callback until an interval of quiet.
type Debouncer struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64 // bumped per armed timer; a fire with an older gen is stale
	stopped bool
}

// New creates a Debouncer that invokes fn once per quiet period.
// fn runs on a timer goroutine and must not block for long.
func New(interval time.Duration, fn func()) *Debouncer {
	return &Debouncer{interval: interval, fn: fn}
}

// Touch records an event, starting or resetting the quiet-period timer.
func (d *Debouncer) Touch() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	// Stop can miss: a timer that already expired has its fire queued
	// behind the mutex. The generation check in fire discards it.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen) })
}

// fire runs the callback when gen still matches the armed timer. A stale
// gen means a Touch re-armed after this timer expired, so the quiet
// period is not over and the callback must wait for the current timer.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || gen != d.gen {
		return
	}
	d.timer = nil
	d.fn()
}

// Stop cancels any pending fire. After Stop returns no callback will run,
// and further touches are ignored. Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
