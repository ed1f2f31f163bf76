package watcher

import (
	"sync"
	"time"
)

// pendingTimer is a scheduled callback. gen tells a timer that already
// fired apart from the one that replaced it.
type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

// Debouncer coalesces bursts of events per key into a single callback
// fired once the key has been quiet for the delay.
type Debouncer struct {
	delay    time.Duration
	pending  map[string]pendingTimer
	gen      uint64
	callback func(key string)
	mu       sync.Mutex
}

// NewDebouncer creates a new Debouncer with the specified delay and callback.
func NewDebouncer(delay time.Duration, callback func(key string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		pending:  make(map[string]pendingTimer),
		callback: callback,
	}
}

// Add schedules key, restarting its timer if it is already pending.
func (d *Debouncer) Add(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, exists := d.pending[key]; exists {
		p.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.pending[key] = pendingTimer{
		gen:   gen,
		timer: time.AfterFunc(d.delay, func() { d.fire(key, gen) }),
	}
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	p, exists := d.pending[key]
	if !exists || p.gen != gen {
		// Replaced or cancelled while this timer waited for the lock.
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	// Outside the lock: the callback may Add again.
	if d.callback != nil {
		d.callback(key)
	}
}

// CancelAll drops every pending key.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

func (d *Debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
