// Package timing provides the debounce and throttle gates the
// workbench uses to coalesce bursts: rapid slider drags collapse into
// one recorded change, and config reloads fire once per save burst.
package timing

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of calls into one trailing call: fn runs
// once the calls stop for the configured interval. Safe for concurrent
// use; the pending fn runs on a timer goroutine.
type Debouncer struct {
	mu      sync.Mutex
	d       time.Duration
	timer   *time.Timer
	pending func()
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(d time.Duration) *Debouncer {
	return &Debouncer{d: d}
}

// Do schedules fn to run after the quiet interval, replacing any
// previously scheduled call.
func (db *Debouncer) Do(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.stopped {
		return
	}
	db.pending = fn
	if db.timer != nil {
		db.timer.Stop()
	}
	db.timer = time.AfterFunc(db.d, db.fire)
}

func (db *Debouncer) fire() {
	db.mu.Lock()
	fn := db.pending
	db.pending = nil
	db.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Flush runs the pending call immediately on the calling goroutine,
// if there is one.
func (db *Debouncer) Flush() {
	db.mu.Lock()
	if db.timer != nil {
		db.timer.Stop()
	}
	fn := db.pending
	db.pending = nil
	db.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop cancels any pending call and disables the debouncer.
func (db *Debouncer) Stop() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.stopped = true
	db.pending = nil
	if db.timer != nil {
		db.timer.Stop()
	}
}

// Throttler rate-limits calls: the first call runs immediately on the
// calling goroutine, and while the gate is closed the latest call is
// kept to run once when the interval expires.
type Throttler struct {
	mu       sync.Mutex
	d        time.Duration
	blocked  bool
	trailing func()
	stopped  bool
}

// NewThrottler creates a throttler with the given gate interval.
func NewThrottler(d time.Duration) *Throttler {
	return &Throttler{d: d}
}

// Do runs fn now when the gate is open, otherwise keeps it (replacing
// any earlier kept call) to run when the gate reopens.
func (th *Throttler) Do(fn func()) {
	th.mu.Lock()
	if th.stopped {
		th.mu.Unlock()
		return
	}
	if th.blocked {
		th.trailing = fn
		th.mu.Unlock()
		return
	}
	th.blocked = true
	time.AfterFunc(th.d, th.open)
	th.mu.Unlock()
	fn()
}

func (th *Throttler) open() {
	th.mu.Lock()
	if th.stopped {
		th.blocked = false
		th.trailing = nil
		th.mu.Unlock()
		return
	}
	fn := th.trailing
	th.trailing = nil
	if fn == nil {
		th.blocked = false
		th.mu.Unlock()
		return
	}
	// The trailing call closes the gate for another interval.
	time.AfterFunc(th.d, th.open)
	th.mu.Unlock()
	fn()
}

// Stop drops any kept call and disables the throttler.
func (th *Throttler) Stop() {
	th.mu.Lock()
	defer th.mu.Unlock()
	th.stopped = true
	th.trailing = nil
}
