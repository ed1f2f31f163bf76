package watcher

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewDebouncer(t *testing.T) {
	d := NewDebouncer(100*time.Millisecond, func(string) {})

	if d.delay != 100*time.Millisecond {
		t.Errorf("expected delay 100ms, got %v", d.delay)
	}
	if d.pendingCount() != 0 {
		t.Errorf("expected 0 pending, got %d", d.pendingCount())
	}
}

func TestDebouncer_FiresOnceAfterQuietPeriod(t *testing.T) {
	var called atomic.Int32
	var got string
	var mu sync.Mutex

	delay := 50 * time.Millisecond
	d := NewDebouncer(delay, func(key string) {
		mu.Lock()
		got = key
		mu.Unlock()
		called.Add(1)
	})

	d.Add("books.json")
	if d.pendingCount() != 1 {
		t.Error("key should be pending after Add")
	}

	time.Sleep(delay + 50*time.Millisecond)

	if called.Load() != 1 {
		t.Errorf("expected one callback, got %d", called.Load())
	}
	mu.Lock()
	if got != "books.json" {
		t.Errorf("expected key books.json, got %q", got)
	}
	mu.Unlock()
	if d.pendingCount() != 0 {
		t.Error("key should not be pending after firing")
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var called atomic.Int32
	delay := 60 * time.Millisecond
	d := NewDebouncer(delay, func(string) { called.Add(1) })

	for i := 0; i < 5; i++ {
		d.Add("books.json")
		time.Sleep(10 * time.Millisecond)
	}
	if called.Load() != 0 {
		t.Errorf("callback fired during the burst")
	}

	time.Sleep(delay + 50*time.Millisecond)
	if called.Load() != 1 {
		t.Errorf("expected burst to coalesce into one callback, got %d", called.Load())
	}
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	d := NewDebouncer(30*time.Millisecond, func(key string) {
		mu.Lock()
		seen[key]++
		mu.Unlock()
	})

	d.Add("a.json")
	d.Add("b.json")
	if d.pendingCount() != 2 {
		t.Errorf("expected 2 pending, got %d", d.pendingCount())
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if seen["a.json"] != 1 || seen["b.json"] != 1 {
		t.Errorf("expected one callback per key, got %v", seen)
	}
}

func TestDebouncer_CancelAll(t *testing.T) {
	var called atomic.Int32
	d := NewDebouncer(40*time.Millisecond, func(string) { called.Add(1) })

	d.Add("a.json")
	d.Add("b.json")
	d.CancelAll()

	if d.pendingCount() != 0 {
		t.Errorf("expected nothing pending, got %d", d.pendingCount())
	}
	time.Sleep(80 * time.Millisecond)
	if called.Load() != 0 {
		t.Errorf("expected no callbacks, got %d", called.Load())
	}
}

func TestDebouncer_NilCallback(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, nil)
	d.Add("books.json")
	time.Sleep(40 * time.Millisecond)
	if d.pendingCount() != 0 {
		t.Errorf("expected timer to clear, got %d pending", d.pendingCount())
	}
}

func TestDebouncer_ConcurrentAdd(t *testing.T) {
	var called atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func(string) { called.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Add("books.json")
		}()
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)
	if called.Load() != 1 {
		t.Errorf("expected 1 callback, got %d", called.Load())
	}
}

func TestDebouncer_StaleTimerDoesNotFireReplacement(t *testing.T) {
	var called atomic.Int32
	d := NewDebouncer(time.Hour, func(string) { called.Add(1) })

	d.Add("books.json")
	d.mu.Lock()
	stale := d.pending["books.json"].gen
	d.mu.Unlock()

	d.Add("books.json")

	// The first timer fired but lost the lock race to the second Add.
	d.fire("books.json", stale)

	if called.Load() != 0 {
		t.Errorf("stale timer ran the callback %d times", called.Load())
	}
	if d.pendingCount() != 1 {
		t.Errorf("expected replacement to stay pending, got %d", d.pendingCount())
	}

	d.mu.Lock()
	current := d.pending["books.json"].gen
	d.mu.Unlock()
	d.fire("books.json", current)

	if called.Load() != 1 {
		t.Errorf("expected one callback from the replacement, got %d", called.Load())
	}
	if d.pendingCount() != 0 {
		t.Errorf("expected nothing pending, got %d", d.pendingCount())
	}
	d.CancelAll()
}
