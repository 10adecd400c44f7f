// Package debounce delays a call until its input has been quiet for a while.
package debounce

import (
	"sync"
	"time"
)

const defaultDelay = 300 * time.Millisecond

// Debouncer keeps one pending timer per key. Triggering a key again resets its
// timer; Stop cancels everything that has not fired yet.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*entry
	gen     uint64 // shared by all keys so a generation is never reused
	stopped bool
}

type entry struct {
	timer *time.Timer
	gen   uint64
}

// New creates a Debouncer. A non-positive delay falls back to 300ms.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = defaultDelay
	}
	return &Debouncer{delay: delay, timers: make(map[string]*entry)}
}

// Delay returns the configured quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules fn under key, replacing any call still pending for it.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.schedule(key, fn)
}

// schedule caller holds d.mu.
func (d *Debouncer) schedule(key string, fn func()) {
	e, ok := d.timers[key]
	if ok {
		e.timer.Stop()
	} else {
		e = &entry{}
		d.timers[key] = e
	}
	d.gen++
	gen := d.gen
	e.gen = gen
	e.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cur, ok := d.timers[key]
		// a newer Trigger or a Cancel won the race with this timer
		if !ok || cur.gen != gen || d.stopped {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops the call pending under key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancel(key)
}

// cancel caller holds d.mu.
func (d *Debouncer) cancel(key string) {
	if e, ok := d.timers[key]; ok {
		e.timer.Stop()
		delete(d.timers, key)
	}
}

// Pending reports whether a call is waiting under key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// Stop cancels all pending calls; later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, e := range d.timers {
		e.timer.Stop()
		delete(d.timers, key)
	}
}
