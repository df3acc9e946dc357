// Package watch reparses files incrementally as they change on disk.
package watch

import (
	"sync"
	"time"
)

// MaxPendingFiles is the maximum number of files that can be pending.
// Reaching it flushes immediately.
const MaxPendingFiles = 1000

// Debouncer coalesces rapid change events for the same files into one
// batch, so an editor that writes a file several times per save triggers a
// single reparse.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	window  time.Duration
	onFlush func(paths []string)
	stopped bool
}

// NewDebouncer creates a debouncer that calls onFlush with the changed
// paths once window has passed without new events.
func NewDebouncer(window time.Duration, onFlush func(paths []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]struct{}),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a change to path.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending[path] = struct{}{}

	if len(d.pending) >= MaxPendingFiles {
		d.stopTimerLocked()
		paths := d.takeLocked()
		d.mu.Unlock()
		d.deliver(paths)
		return
	}

	// A timer that already fired finds nothing pending and returns.
	d.stopTimerLocked()
	d.timer = time.AfterFunc(d.window, d.FlushNow)
	d.mu.Unlock()
}

// FlushNow delivers pending paths without waiting for the window.
func (d *Debouncer) FlushNow() {
	d.mu.Lock()
	d.stopTimerLocked()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	paths := d.takeLocked()
	d.mu.Unlock()
	d.deliver(paths)
}

// Stop stops the debouncer after delivering anything still pending.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.stopTimerLocked()
	paths := d.takeLocked()
	d.mu.Unlock()
	d.deliver(paths)
}

// PendingCount returns the number of files waiting to be flushed.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) takeLocked() []string {
	if len(d.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	return paths
}

// deliver runs the callback without holding the lock.
func (d *Debouncer) deliver(paths []string) {
	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}
