package watchdog

import (
	"sync"
	"time"
)

// Watchdog is safe for concurrent use.
type Watchdog struct {
	timeout time.Duration
	onFire  func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// New arms a watchdog that calls onFire after timeout without a Feed.
// timeout must be positive.
func New(timeout time.Duration, onFire func()) *Watchdog {
	w := &Watchdog{timeout: timeout, onFire: onFire}
	w.mu.Lock()
	w.arm()
	w.mu.Unlock()
	return w
}

// Timeout returns the configured inactivity interval.
func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}

// Feed restarts the countdown. It has no effect after Stop.
func (w *Watchdog) Feed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.arm()
}

// Stop cancels the countdown for good. Calling it again is a no-op.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Stopped reports whether Stop has been called.
func (w *Watchdog) Stopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// arm must be called with mu held.
func (w *Watchdog) arm() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(w.timeout, func() { w.fire(gen) })
}

func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	// A Feed or Stop since this countdown was armed supersedes it.
	if w.stopped || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	w.onFire()
}
