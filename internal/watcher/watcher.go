// Package watcher reloads the catalog when its data file is edited outside
// the program.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"bookshelf/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Summary contains stats from a watch session.
type Summary struct {
	Events   int // fsnotify events for the watched file
	Changes  int // handler calls after debouncing
	Failures int // handler calls that returned an error
	Duration time.Duration
}

// ChangeHandler is called once the watched file has been quiet for the
// debounce delay.
type ChangeHandler func(path string) error

// Watcher monitors a single file. The parent directory is watched so the
// file can be replaced by rename, as editors and the store itself do.
type Watcher struct {
	path      string
	handler   ChangeHandler
	debouncer *Debouncer
	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time

	mu       sync.Mutex
	events   int
	changes  int
	failures int
}

// New creates a Watcher for path. A non-positive debounce uses DefaultDebounce.
func New(path string, debounce time.Duration, handler ChangeHandler) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		path:    absPath,
		handler: handler,
		done:    make(chan struct{}),
	}
	w.debouncer = NewDebouncer(debounce, w.handleChange)
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching. The watcher runs until Stop is called and cannot
// be restarted afterwards.
func (w *Watcher) Start() error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.mu.Lock()
	w.fsWatcher = fsWatcher
	w.startTime = time.Now()
	w.mu.Unlock()

	w.wg.Add(1)
	go w.processEvents()

	logging.Info().Str("file", w.path).Dur("debounce", w.debouncer.delay).Msg("Watching data file")
	return nil
}

// Stop shuts the watcher down, drops pending changes and returns a summary.
func (w *Watcher) Stop() *Summary {
	close(w.done)
	w.wg.Wait()
	w.debouncer.CancelAll()

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return &Summary{
		Events:   w.events,
		Changes:  w.changes,
		Failures: w.failures,
		Duration: time.Since(w.startTime),
	}
}

// Run starts the watcher and blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	summary := w.Stop()
	logging.Info().
		Int("events", summary.Events).
		Int("changes", summary.Changes).
		Int("failures", summary.Failures).
		Dur("duration", summary.Duration).
		Msg("Watcher stopped")
	return nil
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.mu.Lock()
				w.events++
				w.mu.Unlock()
				w.debouncer.Add(w.path)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Err(err).Str("file", w.path).Msg("Watcher error")
		}
	}
}

// relevant reports whether event changes the watched file's content.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) handleChange(path string) {
	err := w.handler(path)

	w.mu.Lock()
	w.changes++
	if err != nil {
		w.failures++
	}
	w.mu.Unlock()

	if err != nil {
		logging.Error().Err(err).Str("file", path).Msg("Failed to handle data file change")
	}
}

// running reports whether the watcher is between Start and Stop.
func (w *Watcher) running() bool {
	select {
	case <-w.done:
		return false
	default:
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsWatcher != nil
}
