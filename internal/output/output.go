// Package output handles user-facing CLI text: menus, book listings and
// verbose diagnostics.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"bookshelf/internal/audit"
	"bookshelf/internal/models"

	"golang.org/x/term"
)

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
}

// Output writes formatted text for the console and subcommands.
type Output struct {
	config Config
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{
		config: config,
	}
}

// DefaultConfig returns a Config writing to stdout/stderr with TTY detection.
func DefaultConfig() Config {
	return Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	o.line(o.config.Writer, format, args...)
}

// Info prints an informational message (always shown).
func (o *Output) Info(format string, args ...interface{}) {
	o.line(o.config.Writer, format, args...)
}

// Error prints an error message to stderr.
func (o *Output) Error(format string, args ...interface{}) {
	o.line(o.config.ErrWriter, format, args...)
}

// Prompt prints text without a trailing newline.
func (o *Output) Prompt(text string) {
	fmt.Fprint(o.config.Writer, text)
}

// Heading prints a section title, bold on a terminal.
func (o *Output) Heading(text string) {
	if o.config.IsTTY {
		text = "\033[1m" + text + "\033[0m"
	}
	fmt.Fprintln(o.config.Writer, text)
}

// Books prints one line per book. When numbered, lines carry the 1-based
// position used to select a book for rating.
func (o *Output) Books(books []models.Book, numbered bool) {
	for i, book := range books {
		if numbered {
			fmt.Fprintf(o.config.Writer, "%d. %s\n", i+1, book)
			continue
		}
		fmt.Fprintln(o.config.Writer, book.String())
	}
}

// Events prints one journal event per line, oldest first.
func (o *Output) Events(events []audit.Event) {
	for _, e := range events {
		fmt.Fprintf(o.config.Writer, "%s  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), DescribeEvent(e))
	}
}

// Sessions prints one line per journal session, oldest first.
func (o *Output) Sessions(sessions []audit.SessionInfo) {
	for _, s := range sessions {
		status := "open"
		if s.EndTime != nil {
			status = s.EndTime.Sub(s.StartTime).Round(time.Second).String()
		}
		fmt.Fprintf(o.config.Writer, "%s  %s  %d added, %d ratings, %d reloads (%s)\n",
			s.StartTime.Local().Format("2006-01-02 15:04:05"), s.SessionID,
			s.BooksAdded, s.BooksRated, s.Reloads, status)
	}
}

// DescribeEvent renders an event as a short human-readable phrase.
func DescribeEvent(e audit.Event) string {
	switch e.EventType {
	case audit.EventBookAdded:
		return fmt.Sprintf("Added %q", e.Title)
	case audit.EventBookRated:
		return fmt.Sprintf("%s rated %q %d/%d", e.User, e.Title, e.Rating, models.MaxRating)
	case audit.EventCatalogReloaded:
		return fmt.Sprintf("Reloaded catalog (%s books)", e.Metadata["books"])
	case audit.EventSessionStart:
		return "Session started"
	case audit.EventSessionEnd:
		return "Session ended"
	default:
		return string(e.EventType)
	}
}

func (o *Output) line(w io.Writer, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(w, msg)
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}
