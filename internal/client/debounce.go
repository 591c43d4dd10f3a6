package client

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a pending save is submitted.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer coalesces values submitted within a quiet window and passes only
// the latest to fn. Calls to fn never overlap.
type Debouncer[T any] struct {
	wait time.Duration
	fn   func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending *T
	stopped bool

	run      sync.Mutex
	inflight sync.WaitGroup
}

// NewDebouncer creates a Debouncer. A non-positive wait uses DefaultDebounce.
func NewDebouncer[T any](wait time.Duration, fn func(T)) *Debouncer[T] {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Debouncer[T]{wait: wait, fn: fn}
}

// Submit records v as the latest value and restarts the quiet window.
func (d *Debouncer[T]) Submit(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = &v
	if d.timer != nil && d.timer.Stop() {
		d.inflight.Done()
	}
	d.inflight.Add(1)
	d.timer = time.AfterFunc(d.wait, func() {
		defer d.inflight.Done()
		d.fire()
	})
}

// Flush runs fn with the pending value now, if there is one.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil && d.timer.Stop() {
		d.inflight.Done()
	}
	d.timer = nil
	d.mu.Unlock()

	d.fire()
}

// Stop drops any pending value and waits for a running fn to return.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = nil
	if d.timer != nil && d.timer.Stop() {
		d.inflight.Done()
	}
	d.timer = nil
	d.mu.Unlock()

	d.inflight.Wait()
	d.run.Lock()
	d.run.Unlock()
}

func (d *Debouncer[T]) fire() {
	d.run.Lock()
	defer d.run.Unlock()

	d.mu.Lock()
	v := d.pending
	d.pending = nil
	d.mu.Unlock()

	if v != nil {
		d.fn(*v)
	}
}
