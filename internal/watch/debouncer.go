// Package watch delivers coalesced file-system change notifications for a
// single directory. It wraps fsnotify with temp-file filtering and
// rename-pairing, and provides the debouncer that turns bursty event
// streams into one refresh per quiet period.
package watch

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces a burst of triggers into a single callback invocation
// after a fixed quiescence window. Each Trigger cancels the previously
// scheduled invocation and re-arms the timer, so the callback runs once,
// roughly one window after the last trigger of the burst.
//
// Trigger and Stop are safe to call from any goroutine. The callback runs
// on a timer goroutine; it is the caller's job to marshal onto whatever
// execution context it needs.
type Debouncer struct {
	window time.Duration
	fn     func()

	mu      sync.Mutex
	cancel  context.CancelFunc
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiescence window.
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

// Trigger schedules the callback to run one window from now, superseding
// any previously scheduled run.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.cancelPendingLocked()

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.timer = time.AfterFunc(d.window, func() {
		// Cancellation and firing can race; a fired timer whose context
		// is already cancelled must do no work. The check runs under the
		// lock so a concurrent Trigger or Stop cannot slip in between the
		// check and the bookkeeping.
		d.mu.Lock()
		if ctx.Err() != nil || d.stopped {
			d.mu.Unlock()
			return
		}
		d.cancel = nil
		d.timer = nil
		d.mu.Unlock()

		d.fn()
	})
}

// Pending reports whether an invocation is currently scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil && !d.stopped
}

// Stop cancels any scheduled invocation and prevents future triggers.
// Idempotent and safe from any goroutine.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	d.cancelPendingLocked()
}

func (d *Debouncer) cancelPendingLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
