package orchestrator

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bookshelf/internal/audit"
	"bookshelf/internal/config"
	"bookshelf/internal/metrics"
	"bookshelf/internal/output"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig(t *testing.T) *config.Configuration {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataFile = filepath.Join(dir, "books.json")
	cfg.Audit.Directory = filepath.Join(dir, "audit")
	cfg.Watch.Debounce = 50 * time.Millisecond
	return cfg
}

func runConsole(t *testing.T, o *Orchestrator, input string) string {
	t.Helper()
	var buf bytes.Buffer
	out := output.New(output.Config{Writer: &buf, ErrWriter: &buf})
	if err := o.RunConsole(strings.NewReader(input), out); err != nil {
		t.Fatalf("RunConsole: %v", err)
	}
	return buf.String()
}

func TestSessionIsJournaled(t *testing.T) {
	cfg := testConfig(t)

	o, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o.Session() == "" {
		t.Fatal("expected a session ID with the journal enabled")
	}

	got := runConsole(t, o, "1\nDune\nFrank Herbert\nSci-Fi\n3\nana\n1\n5\n6\n")
	if !strings.Contains(got, "Rating submitted.") {
		t.Errorf("unexpected console output %q", got)
	}

	summary, err := o.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if summary.BooksAdded != 1 || summary.BooksRated != 1 || !summary.Changed() {
		t.Errorf("unexpected summary %+v", summary)
	}
	if !strings.HasPrefix(summary.String(), "Session: 1 books added, 1 ratings, 0 reloads") {
		t.Errorf("unexpected summary string %q", summary.String())
	}

	sessions, err := audit.NewReader(cfg.Audit.Directory).ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].EndTime == nil || sessions[0].AppVersion != "test" {
		t.Errorf("expected one closed session, got %+v", sessions)
	}
}

func TestHistoryShowsEarlierSessions(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	runConsole(t, first, "1\nEmma\nJane Austen\nRomance\n6\n")
	if _, err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer second.Close()

	if second.Catalog().Len() != 1 {
		t.Errorf("expected the saved book to load, got %d", second.Catalog().Len())
	}
	got := runConsole(t, second, "7\n6\n")
	if !strings.Contains(got, `Added "Emma"`) {
		t.Errorf("expected earlier session in history, got %q", got)
	}
}

func TestJournalDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Enabled = false

	o, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o.Session() != "" || o.History() != nil {
		t.Error("expected no session or history without a journal")
	}

	got := runConsole(t, o, "1\nEmma\n\n\n7\n6\n")
	if !strings.Contains(got, "Activity history is disabled.") {
		t.Errorf("expected disabled history, got %q", got)
	}

	summary, err := o.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if summary.Changed() {
		t.Errorf("no journal means nothing counted, got %+v", summary)
	}
	if _, err := os.Stat(cfg.Audit.Directory); !os.IsNotExist(err) {
		t.Errorf("audit directory should not be created, stat err = %v", err)
	}
}

func TestNew_InvalidDataFile(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.DataFile, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(cfg, "test"); err == nil {
		t.Fatal("expected error for invalid data file")
	}
}

func TestRunConsole_WatchEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watch.Enabled = true

	o, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	got := runConsole(t, o, "6\n")
	if !strings.Contains(got, "Goodbye!") {
		t.Errorf("unexpected output %q", got)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watch.Enabled = true

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Addr = ln.Addr().String()
	ln.Close()

	o, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Serve(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_ListenFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Addr = "not-an-address"

	o, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	if err := o.Serve(context.Background()); err == nil {
		t.Error("expected listen error")
	}
}

func TestConsoleSearchesAreCounted(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Enabled = false

	o, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	before := testutil.ToFloat64(metrics.SearchesTotal)
	got := runConsole(t, o, "1\nDune\nFrank Herbert\nSci-Fi\n5\ndu\n6\n")
	if !strings.Contains(got, "Dune") {
		t.Errorf("unexpected console output %q", got)
	}
	o.Catalog().Search("zz")

	if after := testutil.ToFloat64(metrics.SearchesTotal); after != before+2 {
		t.Errorf("expected 2 searches counted, got %v", after-before)
	}
}
