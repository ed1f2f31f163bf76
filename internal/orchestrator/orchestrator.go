// Package orchestrator wires the configured journal, catalog, console,
// API server and file watcher together for one Bookshelf session.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"bookshelf/internal/audit"
	"bookshelf/internal/catalog"
	"bookshelf/internal/config"
	"bookshelf/internal/console"
	"bookshelf/internal/logging"
	"bookshelf/internal/metrics"
	"bookshelf/internal/output"
	"bookshelf/internal/server"
	"bookshelf/internal/store"
	"bookshelf/internal/watcher"

	"golang.org/x/sync/errgroup"
)

// Orchestrator owns the resources of one session.
type Orchestrator struct {
	config  *config.Configuration
	catalog *catalog.Catalog
	journal *audit.Writer
	session audit.SessionID
	started time.Time
}

// New opens the journal (when enabled), starts a session and loads the catalog.
func New(cfg *config.Configuration, appVersion string) (*Orchestrator, error) {
	o := &Orchestrator{
		config:  cfg,
		started: time.Now(),
	}

	var recorder audit.Recorder = audit.NopRecorder{}
	if cfg.Audit.Enabled {
		journal, err := audit.NewWriter(cfg.Audit)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit journal: %w", err)
		}
		session, err := journal.StartSession(appVersion)
		if err != nil {
			journal.Close()
			return nil, fmt.Errorf("failed to start audit session: %w", err)
		}
		o.journal = journal
		o.session = session
		recorder = journal
	}

	c, err := catalog.Open(store.New(cfg.DataFile),
		catalog.WithRecorder(metrics.NewRecorder(recorder)),
		catalog.WithSearchObserver(metrics.RecordSearch),
	)
	if err != nil {
		o.closeJournal()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	o.catalog = c

	logging.Debug().
		Str("session", string(o.session)).
		Bool("audit", cfg.Audit.Enabled).
		Bool("watch", cfg.Watch.Enabled).
		Msg("Session started")
	return o, nil
}

// Catalog returns the loaded catalog.
func (o *Orchestrator) Catalog() *catalog.Catalog {
	return o.catalog
}

// Session returns the journal session ID, or "" when the journal is disabled.
func (o *Orchestrator) Session() audit.SessionID {
	return o.session
}

// History returns the journal reader, or nil when the journal is disabled.
func (o *Orchestrator) History() *audit.Reader {
	if !o.config.Audit.Enabled {
		return nil
	}
	return audit.NewReader(o.config.Audit.Directory)
}

// RunConsole runs the interactive menu on in and out. When watching is
// enabled, external edits to the data file are picked up meanwhile.
func (o *Orchestrator) RunConsole(in io.Reader, out *output.Output) error {
	if o.config.Watch.Enabled {
		w, err := o.newWatcher()
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
	}

	var history console.History
	if reader := o.History(); reader != nil {
		history = reader
	}
	return console.New(in, out, o.catalog, history).Run()
}

// Serve runs the HTTP API, plus the watcher when enabled, until ctx is
// cancelled or one of them fails.
func (o *Orchestrator) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := server.New(o.catalog, o.config.Server)
	g.Go(func() error {
		return srv.Run(ctx)
	})

	if o.config.Watch.Enabled {
		w, err := o.newWatcher()
		if err != nil {
			return err
		}
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	return g.Wait()
}

func (o *Orchestrator) newWatcher() (*watcher.Watcher, error) {
	w, err := watcher.New(o.config.DataFile, o.config.Watch.Debounce, func(string) error {
		_, err := o.catalog.ReloadIfChanged()
		return err
	})
	if err != nil {
		return nil, err
	}
	logging.Info().Str("file", w.Path()).Dur("debounce", o.config.Watch.Debounce).Msg("Watching data file")
	return w, nil
}

// Close ends the journal session and returns what it recorded.
func (o *Orchestrator) Close() (*Summary, error) {
	summary := &Summary{Session: o.session, Duration: time.Since(o.started)}
	if o.journal == nil {
		return summary, nil
	}

	if err := o.journal.EndSession(); err != nil {
		o.closeJournal()
		return summary, err
	}
	if err := o.journal.Close(); err != nil {
		return summary, err
	}
	o.journal = nil

	events, err := audit.NewReader(o.config.Audit.Directory).Filter(audit.EventFilter{SessionID: o.session})
	if err != nil {
		return summary, fmt.Errorf("failed to read session events: %w", err)
	}
	summary.count(events)
	return summary, nil
}

func (o *Orchestrator) closeJournal() {
	if o.journal == nil {
		return
	}
	if err := o.journal.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close audit journal")
	}
	o.journal = nil
}
