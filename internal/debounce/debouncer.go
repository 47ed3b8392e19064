// Package debounce provides a trailing-edge, cancellable scheduled task.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn once the window has elapsed since the last Trigger.
// Each Trigger cancels the previous schedule. A timer that fires after
// Cancel or Stop does nothing.
type Debouncer struct {
	window time.Duration
	fn     func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool
}

// New returns a debouncer for fn. A non-positive window runs fn on the next
// scheduler tick after Trigger.
func New(window time.Duration, fn func()) *Debouncer {
	if window < 0 {
		window = 0
	}
	return &Debouncer{window: window, fn: fn}
}

// Window returns the configured delay.
func (d *Debouncer) Window() time.Duration { return d.window }

// Trigger (re)starts the window. It reports false once the debouncer is stopped.
func (d *Debouncer) Trigger() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	d.gen++
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
	return true
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel drops the scheduled run, if any, and reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

func (d *Debouncer) cancelLocked() bool {
	was := d.pending
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return was
}

// Flush runs a pending fn immediately in the caller's goroutine and reports
// whether it ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return false
	}
	d.cancelLocked()
	d.mu.Unlock()

	d.fn()
	return true
}

// Stop cancels any pending run and rejects further triggers. A run that
// already started is not interrupted.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}
